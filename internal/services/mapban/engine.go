// Package mapban implements the alternating map elimination.
//
// Functions never mutate their input. Bans continue until one map is left; that
// map becomes the selection and the phase closes.
package mapban

import (
	"slices"
	"time"

	"github.com/mcoot/lobbyengine/internal/model"
)

// Start opens a ban phase over maps with first on turn. turn is the per-ban time budget.
// Blank and repeated names are dropped so every listed map can be banned once.
func Start(maps []string, first model.Team, turn time.Duration, now time.Time) *model.MapBanState {
	state := &model.MapBanState{
		AvailableMaps:  model.NormalizeMapPool(maps),
		BannedMaps:     []string{},
		CurrentBanTeam: first,
		BanHistory:     []model.BanRecord{},
		MapBanPhase:    true,
		TimeLeft:       int(turn / time.Second),
		TurnEndsAt:     now.Add(turn),
	}
	settle(state)
	return state
}

// Ban eliminates mapName on behalf of team
func Ban(state *model.MapBanState, team model.Team, mapName string, now time.Time) (*model.MapBanState, error) {
	if state == nil || !state.MapBanPhase {
		return nil, model.ErrBanPhaseInactive
	}
	if team != state.CurrentBanTeam {
		return nil, model.ErrNotYourTurn
	}
	if !slices.Contains(state.AvailableMaps, mapName) || state.IsBanned(mapName) {
		return nil, model.ErrInvalidMap
	}
	return apply(state, mapName, false, now), nil
}

// AutoBan bans the first remaining map in catalog order for the team on turn.
// It is applied when a ban turn runs out of time.
func AutoBan(state *model.MapBanState, now time.Time) (*model.MapBanState, error) {
	if state == nil || !state.MapBanPhase {
		return nil, model.ErrBanPhaseInactive
	}
	remaining := state.Remaining()
	if len(remaining) < 2 {
		return nil, model.ErrBanPhaseInactive
	}
	return apply(state, remaining[0], true, now), nil
}

func apply(state *model.MapBanState, mapName string, auto bool, now time.Time) *model.MapBanState {
	next := state.Clone()
	next.BannedMaps = append(next.BannedMaps, mapName)
	next.BanHistory = append(next.BanHistory, model.BanRecord{
		Team:      state.CurrentBanTeam,
		Map:       mapName,
		Auto:      auto,
		Timestamp: now,
	})
	next.CurrentBanTeam = state.CurrentBanTeam.Opponent()
	next.TurnEndsAt = now.Add(time.Duration(next.TimeLeft) * time.Second)
	settle(next)
	return next
}

// settle closes the phase once exactly one map survives
func settle(state *model.MapBanState) {
	remaining := state.Remaining()
	if len(remaining) == 1 {
		state.SelectedMap = remaining[0]
		state.MapBanPhase = false
		state.TurnEndsAt = time.Time{}
	}
}

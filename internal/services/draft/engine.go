// Package draft implements the alternating captain pick.
//
// Every function is pure: the input state is never mutated and a fresh state is
// returned on success, so the caller can discard it if persisting fails.
package draft

import (
	"slices"
	"time"

	"github.com/mcoot/lobbyengine/internal/model"
)

// Start builds an active draft. captainA picks first; every other roster member
// is placed in the pool in roster order.
func Start(captainA, captainB model.UserID, roster []model.UserID) *model.DraftState {
	pool := make([]model.UserID, 0, len(roster))
	for _, id := range roster {
		if id != captainA && id != captainB {
			pool = append(pool, id)
		}
	}
	return &model.DraftState{
		CaptainA:    captainA,
		CaptainB:    captainB,
		Pool:        pool,
		PickHistory: []model.PickRecord{},
		CurrentTurn: model.DraftTurnCaptainA,
		IsActive:    len(pool) > 0,
	}
}

// Pick assigns pickedID to the captain on turn and passes the turn over.
// The draft deactivates once the pool is empty.
func Pick(state *model.DraftState, captainID, pickedID model.UserID, now time.Time) (*model.DraftState, error) {
	if state == nil || !state.IsActive {
		return nil, model.ErrDraftInactive
	}
	if captainID != state.CurrentCaptain() {
		return nil, model.ErrNotYourTurn
	}
	idx := slices.Index(state.Pool, pickedID)
	if idx < 0 {
		return nil, model.ErrInvalidSelection
	}

	next := state.Clone()
	next.Pool = slices.Delete(next.Pool, idx, idx+1)
	next.PickHistory = append(next.PickHistory, model.PickRecord{
		Captain:        captainID,
		PickedPlayerID: pickedID,
		Timestamp:      now,
	})
	next.CurrentTurn = state.CurrentTurn.Next()
	next.IsActive = len(next.Pool) > 0
	return next, nil
}

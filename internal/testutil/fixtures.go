package testutil

import (
	"fmt"
	"time"

	"github.com/mcoot/lobbyengine/internal/model"
)

// Epoch is the fixed start time used by mock clocks in tests
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Entries builds n queue entries u0..u(n-1) with elo base, base+step, ...
// joined one second apart.
func Entries(n, base, step int) []model.QueueEntry {
	entries := make([]model.QueueEntry, n)
	for i := range entries {
		entries[i] = model.QueueEntry{
			UserID:    model.UserID(fmt.Sprintf("u%d", i)),
			Username:  fmt.Sprintf("user%d", i),
			EloRating: base + i*step,
			JoinedAt:  Epoch.Add(time.Duration(i) * time.Second),
		}
	}
	return entries
}

// Lobby builds a waiting lobby with a full roster of unready human players
func Lobby(id model.LobbyID) *model.Lobby {
	players := make([]model.LobbyPlayer, 0, model.Quorum)
	for _, e := range Entries(model.Quorum, 1000, 100) {
		players = append(players, model.LobbyPlayer{
			UserID:    e.UserID,
			Username:  e.Username,
			EloRating: e.EloRating,
			Team:      model.TeamUnassigned,
			Role:      model.PlayerRoleMember,
			JoinedAt:  e.JoinedAt,
		})
	}
	return &model.Lobby{
		ID:        id,
		Status:    model.LobbyStatusWaitingReady,
		Source:    model.LobbySourceQueue,
		Players:   players,
		CreatedAt: Epoch,
		UpdatedAt: Epoch,
	}
}

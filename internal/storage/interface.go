package storage

import (
	"context"

	"github.com/mcoot/lobbyengine/internal/model"
)

// Storage is the durable record of lobby snapshots. Every write replaces the full
// snapshot and keeps the membership indexes in step with it.
type Storage interface {
	// SaveLobby writes the full snapshot. Non-terminal lobbies are indexed as active
	// and claim their human players; terminal lobbies release both.
	SaveLobby(ctx context.Context, lobby *model.Lobby) error
	GetLobby(ctx context.Context, id model.LobbyID) (*model.Lobby, error)
	// DeleteLobby removes a snapshot, if any, and drops the lobby from every index
	DeleteLobby(ctx context.Context, id model.LobbyID) error

	// ActiveLobbyFor returns the non-terminal lobby a user belongs to, or "" if none
	ActiveLobbyFor(ctx context.Context, userID model.UserID) (model.LobbyID, error)
	// ListActiveLobbies returns ids of every non-terminal lobby
	ListActiveLobbies(ctx context.Context) ([]model.LobbyID, error)
}

// MatchArchive is the append-only history of matches handed to a server
type MatchArchive interface {
	// SaveMatch records a match. Returns model.ErrMatchExists if already archived.
	SaveMatch(ctx context.Context, match *model.Match) error
	GetMatch(ctx context.Context, id model.LobbyID) (*model.Match, error)
	// ListMatches returns the most recently archived matches first
	ListMatches(ctx context.Context, limit int) ([]*model.Match, error)
}

package memory

import (
	"context"
	"sync"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/storage"
)

// Archive keeps match history in process memory. Used when no archive path is configured.
type Archive struct {
	mu      sync.RWMutex
	matches map[model.LobbyID]*model.Match
	order   []model.LobbyID
}

// NewArchive creates an empty in-memory archive
func NewArchive() *Archive {
	return &Archive{matches: make(map[model.LobbyID]*model.Match)}
}

var _ storage.MatchArchive = (*Archive)(nil)

func (a *Archive) SaveMatch(ctx context.Context, match *model.Match) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.matches[match.LobbyID]; ok {
		return model.ErrMatchExists
	}
	stored := *match
	stored.Lobby = *match.Lobby.Clone()
	a.matches[match.LobbyID] = &stored
	a.order = append(a.order, match.LobbyID)
	return nil
}

func (a *Archive) GetMatch(ctx context.Context, id model.LobbyID) (*model.Match, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	out := *m
	return &out, nil
}

func (a *Archive) ListMatches(ctx context.Context, limit int) ([]*model.Match, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*model.Match, 0, len(a.order))
	for i := len(a.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		m := *a.matches[a.order[i]]
		out = append(out, &m)
	}
	return out, nil
}

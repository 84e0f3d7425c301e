package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Snapshots are held encoded so callers never share mutable state with the store.
type Storage struct {
	mu sync.RWMutex

	lobbies   map[model.LobbyID][]byte
	userIndex map[model.UserID]model.LobbyID
	active    map[model.LobbyID]struct{}
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		lobbies:   make(map[model.LobbyID][]byte),
		userIndex: make(map[model.UserID]model.LobbyID),
		active:    make(map[model.LobbyID]struct{}),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveLobby(ctx context.Context, lobby *model.Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lobbies[lobby.ID] = data

	if lobby.Status.IsTerminal() {
		delete(s.active, lobby.ID)
		for _, id := range lobby.HumanIDs() {
			if s.userIndex[id] == lobby.ID {
				delete(s.userIndex, id)
			}
		}
		return nil
	}

	s.active[lobby.ID] = struct{}{}
	for _, id := range lobby.HumanIDs() {
		s.userIndex[id] = lobby.ID
	}
	return nil
}

func (s *Storage) GetLobby(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	s.mu.RLock()
	data, ok := s.lobbies[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrLobbyNotFound
	}

	var lobby model.Lobby
	if err := json.Unmarshal(data, &lobby); err != nil {
		return nil, err
	}
	return &lobby, nil
}

// DeleteLobby removes a snapshot and drops the lobby from every index
func (s *Storage) DeleteLobby(ctx context.Context, id model.LobbyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, id)
	delete(s.active, id)
	for user, lobbyID := range s.userIndex {
		if lobbyID == id {
			delete(s.userIndex, user)
		}
	}
	return nil
}

func (s *Storage) ActiveLobbyFor(ctx context.Context, userID model.UserID) (model.LobbyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userIndex[userID], nil
}

func (s *Storage) ListActiveLobbies(ctx context.Context) ([]model.LobbyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.LobbyID, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

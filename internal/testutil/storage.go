package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/storage"
)

// ErrInjected is returned by FailingStorage while failures are switched on
var ErrInjected = errors.New("injected storage failure")

// FailingStorage wraps a store and fails writes on demand
type FailingStorage struct {
	storage.Storage
	failSaves atomic.Bool
	failWhen  atomic.Pointer[func(*model.Lobby) bool]
	saves     atomic.Int64
	expired   sync.Map
}

// NewFailingStorage wraps inner
func NewFailingStorage(inner storage.Storage) *FailingStorage {
	return &FailingStorage{Storage: inner}
}

// FailSaves switches write failures on or off
func (s *FailingStorage) FailSaves(fail bool) {
	s.failSaves.Store(fail)
}

// FailWhen fails only the writes matching pred. A nil pred clears it.
func (s *FailingStorage) FailWhen(pred func(*model.Lobby) bool) {
	if pred == nil {
		s.failWhen.Store(nil)
		return
	}
	s.failWhen.Store(&pred)
}

// Expire hides a snapshot from reads while leaving its index entries in place
func (s *FailingStorage) Expire(id model.LobbyID) {
	s.expired.Store(id, struct{}{})
}

// Saves returns the number of successful writes
func (s *FailingStorage) Saves() int {
	return int(s.saves.Load())
}

func (s *FailingStorage) SaveLobby(ctx context.Context, lobby *model.Lobby) error {
	if s.failSaves.Load() {
		return ErrInjected
	}
	if pred := s.failWhen.Load(); pred != nil && (*pred)(lobby) {
		return ErrInjected
	}
	if err := s.Storage.SaveLobby(ctx, lobby); err != nil {
		return err
	}
	s.saves.Add(1)
	return nil
}

func (s *FailingStorage) GetLobby(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	if _, ok := s.expired.Load(id); ok {
		return nil, model.ErrLobbyNotFound
	}
	return s.Storage.GetLobby(ctx, id)
}

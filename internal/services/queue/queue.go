// Package queue holds players waiting for a lobby and merges them ten at a time.
package queue

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mcoot/lobbyengine/internal/dependencies/clock"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/storage"
)

// LobbyCreator turns a merged batch into a lobby. An error hands the batch back to the queue.
type LobbyCreator interface {
	CreateFromQueue(ctx context.Context, entries []model.QueueEntry) (*model.Lobby, error)
}

// Config holds queue settings
type Config struct {
	// DisconnectGrace is how long an offline user keeps their place
	DisconnectGrace time.Duration
}

// DefaultConfig returns default queue configuration
func DefaultConfig() Config {
	return Config{
		DisconnectGrace: 60 * time.Second,
	}
}

// Queue is the FIFO of waiting players. Join, leave and merge are serialized by mu.
type Queue struct {
	storage storage.Storage
	creator LobbyCreator
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger

	mu      sync.Mutex
	entries []model.QueueEntry
	// merging holds users popped into a batch whose lobby is still being created
	merging map[model.UserID]bool
	grace   map[model.UserID]clock.Timer
}

// New creates a Queue
func New(store storage.Storage, creator LobbyCreator, clk clock.Clock, cfg Config, logger *slog.Logger) *Queue {
	if cfg.DisconnectGrace <= 0 {
		cfg.DisconnectGrace = DefaultConfig().DisconnectGrace
	}
	return &Queue{
		storage: store,
		creator: creator,
		clock:   clk,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "queue")),
		merging: make(map[model.UserID]bool),
		grace:   make(map[model.UserID]clock.Timer),
	}
}

// Join appends a player and merges if a full batch is waiting
func (q *Queue) Join(ctx context.Context, entry model.QueueEntry) error {
	if entry.UserID == "" {
		return model.Validationf("userId is required")
	}

	active, err := q.storage.ActiveLobbyFor(ctx, entry.UserID)
	if err != nil {
		return model.PersistenceError(err)
	}
	if active != "" {
		return model.ErrAlreadyInLobby
	}

	q.mu.Lock()
	if q.indexOf(entry.UserID) >= 0 || q.merging[entry.UserID] {
		q.mu.Unlock()
		return model.ErrAlreadyQueued
	}
	entry.JoinedAt = q.clock.Now()
	q.entries = append(q.entries, entry)
	size := len(q.entries)
	q.mu.Unlock()

	q.logger.Info("player joined queue",
		slog.String("user_id", string(entry.UserID)),
		slog.Int("queue_size", size),
	)

	if size >= model.Quorum {
		if err := q.Merge(ctx); err != nil {
			q.logger.Error("merge failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Leave removes a player. It is a no-op when the player is not queued.
func (q *Queue) Leave(userID model.UserID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopGraceLocked(userID)
	idx := q.indexOf(userID)
	if idx < 0 {
		return false
	}
	q.entries = slices.Delete(q.entries, idx, idx+1)
	q.logger.Info("player left queue", slog.String("user_id", string(userID)))
	return true
}

// Merge pops full batches until fewer than a quorum remain. A batch whose lobby
// cannot be created is restored to the head of the queue in its original order.
func (q *Queue) Merge(ctx context.Context) error {
	for {
		batch := q.pop()
		if batch == nil {
			return nil
		}

		batch, stale, err := q.dropClaimed(ctx, batch)
		if err != nil {
			q.restore(batch)
			return err
		}
		q.release(stale)
		if len(batch) < model.Quorum {
			q.restore(batch)
			continue
		}

		lobby, err := q.creator.CreateFromQueue(ctx, batch)
		if err != nil {
			q.restore(batch)
			return err
		}
		q.release(batch)
		q.logger.Info("merged queue into lobby", slog.String("lobby_id", string(lobby.ID)))
	}
}

func (q *Queue) pop() []model.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) < model.Quorum {
		return nil
	}
	batch := slices.Clone(q.entries[:model.Quorum])
	q.entries = slices.Delete(q.entries, 0, model.Quorum)
	for _, e := range batch {
		q.merging[e.UserID] = true
		q.stopGraceLocked(e.UserID)
	}
	return batch
}

// dropClaimed removes entries whose user was placed in a lobby by another path since joining
func (q *Queue) dropClaimed(ctx context.Context, batch []model.QueueEntry) (kept, stale []model.QueueEntry, err error) {
	kept = make([]model.QueueEntry, 0, len(batch))
	for _, e := range batch {
		active, err := q.storage.ActiveLobbyFor(ctx, e.UserID)
		if err != nil {
			return batch, nil, model.PersistenceError(err)
		}
		if active != "" {
			stale = append(stale, e)
			continue
		}
		kept = append(kept, e)
	}
	return kept, stale, nil
}

func (q *Queue) restore(batch []model.QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range batch {
		delete(q.merging, e.UserID)
	}
	q.entries = append(slices.Clone(batch), q.entries...)
}

func (q *Queue) release(batch []model.QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range batch {
		delete(q.merging, e.UserID)
	}
}

// UserDisconnected arms the grace timer for a queued user whose last handle closed
func (q *Queue) UserDisconnected(userID model.UserID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.indexOf(userID) < 0 {
		return
	}
	q.stopGraceLocked(userID)

	var timer clock.Timer
	timer = q.clock.AfterFunc(q.cfg.DisconnectGrace, func() {
		q.mu.Lock()
		if q.grace[userID] != timer {
			q.mu.Unlock()
			return
		}
		delete(q.grace, userID)
		q.mu.Unlock()

		if q.Leave(userID) {
			q.logger.Info("removed disconnected player from queue", slog.String("user_id", string(userID)))
		}
	})
	q.grace[userID] = timer
}

// UserConnected cancels a pending grace timer
func (q *Queue) UserConnected(userID model.UserID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopGraceLocked(userID)
}

func (q *Queue) stopGraceLocked(userID model.UserID) {
	if t, ok := q.grace[userID]; ok {
		t.Stop()
		delete(q.grace, userID)
	}
}

// Contains reports whether the user is waiting
func (q *Queue) Contains(userID model.UserID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexOf(userID) >= 0
}

// Len returns the number of waiting players
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Entries returns a copy of the waiting players, oldest first
func (q *Queue) Entries() []model.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.entries)
}

func (q *Queue) indexOf(userID model.UserID) int {
	return slices.IndexFunc(q.entries, func(e model.QueueEntry) bool { return e.UserID == userID })
}

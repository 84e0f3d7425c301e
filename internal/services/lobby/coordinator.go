// Package lobby runs each lobby as a single-goroutine actor and routes commands to it.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/lobbyengine/internal/dependencies/clock"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/protocol"
	"github.com/mcoot/lobbyengine/internal/services/allocator"
	"github.com/mcoot/lobbyengine/internal/services/bot"
	"github.com/mcoot/lobbyengine/internal/services/queue"
	"github.com/mcoot/lobbyengine/internal/storage"
)

// ErrClosed is returned once the coordinator has shut down
var ErrClosed = errors.New("lobby coordinator is closed")

// Notifier fans server messages out to connected players
type Notifier interface {
	SendTo(userID model.UserID, msg protocol.ServerMessage)
	BroadcastToLobby(lobbyID model.LobbyID, msg protocol.ServerMessage)
	BindLobby(lobbyID model.LobbyID, roster []model.UserID)
	UnbindLobby(lobbyID model.LobbyID)
}

// Allocator submits server allocation requests
type Allocator interface {
	Reserve(lobby *model.Lobby) (model.AllocationRequest, error)
	Publish(ctx context.Context, req model.AllocationRequest) error
	Forget(requestID string)
	PendingFor(lobbyID model.LobbyID) (string, bool)
}

// Coordinator owns the lobby id -> actor table. It is the only place actors are created or removed.
type Coordinator struct {
	storage   storage.Storage
	archive   storage.MatchArchive
	notifier  Notifier
	allocator Allocator
	bots      *bot.Service
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	actors map[model.LobbyID]*actor
	closed bool
}

var _ queue.LobbyCreator = (*Coordinator)(nil)

// NewCoordinator creates a Coordinator. archive may be nil.
func NewCoordinator(
	store storage.Storage,
	archive storage.MatchArchive,
	notifier Notifier,
	alloc Allocator,
	bots *bot.Service,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		storage:   store,
		archive:   archive,
		notifier:  notifier,
		allocator: alloc,
		bots:      bots,
		clock:     clk,
		cfg:       cfg.withDefaults(),
		logger:    logger.With(slog.String("component", "lobby")),
		ctx:       ctx,
		cancel:    cancel,
		actors:    make(map[model.LobbyID]*actor),
	}
}

// Close stops every actor and waits for them to exit. Lobby state stays in the store.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// ActiveActors returns the number of lobbies with a running actor
func (c *Coordinator) ActiveActors() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.actors)
}

// CreateFromQueue builds a lobby from a merged queue batch
func (c *Coordinator) CreateFromQueue(ctx context.Context, entries []model.QueueEntry) (*model.Lobby, error) {
	if len(entries) != model.Quorum {
		return nil, model.Validationf("queue batch must hold %d players, got %d", model.Quorum, len(entries))
	}

	now := c.clock.Now()
	l := c.newLobby(model.LobbySourceQueue, model.LobbyOptions{}, now)
	for _, e := range entries {
		l.Players = append(l.Players, model.LobbyPlayer{
			UserID:    e.UserID,
			Username:  e.Username,
			Avatar:    e.Avatar,
			EloRating: e.EloRating,
			Team:      model.TeamUnassigned,
			Role:      model.PlayerRoleMember,
			JoinedAt:  e.JoinedAt,
		})
	}
	if err := c.prepareFull(l, now); err != nil {
		return nil, err
	}
	return c.create(ctx, l)
}

// CreateLobby builds a lobby directly from an administrator request. The roster may be short
// until it is filled with bots.
func (c *Coordinator) CreateLobby(ctx context.Context, players []model.UserProfile, opts model.LobbyOptions) (*model.Lobby, error) {
	if len(players) > model.Quorum {
		return nil, model.Validationf("at most %d players allowed, got %d", model.Quorum, len(players))
	}
	seen := make(map[model.UserID]bool, len(players))
	for _, p := range players {
		if p.UserID == "" {
			return nil, model.Validationf("userId is required for every player")
		}
		if seen[p.UserID] {
			return nil, model.Validationf("duplicate player %s", p.UserID)
		}
		seen[p.UserID] = true
	}
	for _, p := range players {
		id, err := c.storage.ActiveLobbyFor(ctx, p.UserID)
		if err != nil {
			return nil, model.PersistenceError(err)
		}
		if id != "" {
			return nil, fmt.Errorf("%w: %s", model.ErrAlreadyInLobby, p.UserID)
		}
	}

	now := c.clock.Now()
	l := c.newLobby(model.LobbySourceAdmin, opts, now)
	for _, p := range players {
		l.Players = append(l.Players, model.LobbyPlayer{
			UserID:    p.UserID,
			Username:  p.Username,
			Avatar:    p.Avatar,
			EloRating: p.EloRating,
			Team:      model.TeamUnassigned,
			Role:      model.PlayerRoleMember,
			JoinedAt:  now,
		})
	}
	if l.IsFull() {
		if err := c.prepareFull(l, now); err != nil {
			return nil, err
		}
	}
	return c.create(ctx, l)
}

func (c *Coordinator) newLobby(source model.LobbySource, opts model.LobbyOptions, now time.Time) *model.Lobby {
	return &model.Lobby{
		ID:        model.LobbyID(uuid.NewString()),
		Status:    model.LobbyStatusWaitingReady,
		Source:    source,
		Options:   opts,
		Players:   make([]model.LobbyPlayer, 0, model.Quorum),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// prepareFull assigns captains to a full roster and either starts the ready check or,
// when nobody needs to confirm, the draft.
func (c *Coordinator) prepareFull(l *model.Lobby, now time.Time) error {
	entries := make([]model.QueueEntry, len(l.Players))
	for i, p := range l.Players {
		entries[i] = p.Entry()
	}
	captainA, captainB, err := queue.SelectCaptains(entries)
	if err != nil {
		return err
	}

	l.Captains = []model.UserID{captainA, captainB}
	for i := range l.Players {
		p := &l.Players[i]
		switch p.UserID {
		case captainA:
			p.Role = model.PlayerRoleCaptain
			p.Team = model.TeamAlpha
		case captainB:
			p.Role = model.PlayerRoleCaptain
			p.Team = model.TeamBravo
		}
	}

	if l.Options.SkipReadyCheck || l.AllReady() {
		return startDraft(l, now)
	}
	deadline := now.Add(c.cfg.ReadyCheckTimeout)
	l.ReadyDeadline = &deadline
	return nil
}

func (c *Coordinator) create(ctx context.Context, l *model.Lobby) (*model.Lobby, error) {
	sctx, cancel := context.WithTimeout(ctx, c.cfg.PersistTimeout)
	defer cancel()
	if err := c.storage.SaveLobby(sctx, l); err != nil {
		return nil, model.PersistenceError(err)
	}

	out := l.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.spawnLocked(l, true)
	c.logger.Info("lobby created",
		slog.String("lobby_id", string(l.ID)),
		slog.String("source", string(l.Source)),
		slog.Int("players", len(l.Players)),
	)
	return out, nil
}

func (c *Coordinator) spawnLocked(l *model.Lobby, announce bool) *actor {
	a := newActor(c, l)
	a.inbox <- resumeMsg{announce: announce}
	c.actors[l.ID] = a

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		a.run(c.ctx)
	}()
	return a
}

func (c *Coordinator) remove(a *actor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.actors[a.id] == a {
		delete(c.actors, a.id)
	}
}

// actorFor returns the running actor for a lobby, rehydrating it from the store if needed.
// A terminal lobby has no actor; its stored snapshot is returned instead.
func (c *Coordinator) actorFor(ctx context.Context, id model.LobbyID) (*actor, *model.Lobby, error) {
	c.mu.RLock()
	a, ok := c.actors[id]
	c.mu.RUnlock()
	if ok {
		return a, nil, nil
	}

	sctx, cancel := context.WithTimeout(ctx, c.cfg.PersistTimeout)
	defer cancel()
	stored, err := c.storage.GetLobby(sctx, id)
	if err != nil {
		if errors.Is(err, model.ErrLobbyNotFound) {
			return nil, nil, err
		}
		return nil, nil, model.PersistenceError(err)
	}
	if stored.Status.IsTerminal() {
		return nil, stored, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.actors[id]; ok {
		return a, nil, nil
	}
	if c.closed {
		return nil, nil, ErrClosed
	}
	c.logger.Info("rehydrating lobby",
		slog.String("lobby_id", string(id)),
		slog.String("status", string(stored.Status)),
		slog.Int("version", stored.Version),
	)
	return c.spawnLocked(stored, false), nil, nil
}

// call sends a command to the lobby's actor and waits for its reply. Commands against a
// finished lobby are rejected, except state queries which return the stored snapshot.
func (c *Coordinator) call(ctx context.Context, id model.LobbyID, readOnly bool, build func(replyTo) message) (*model.Lobby, error) {
	for {
		if c.ctx.Err() != nil {
			return nil, ErrClosed
		}
		a, finished, err := c.actorFor(ctx, id)
		if err != nil {
			return nil, err
		}
		if a == nil {
			if readOnly {
				return finished, nil
			}
			return nil, model.ErrWrongPhase
		}

		rt := make(replyTo, 1)
		select {
		case a.inbox <- build(rt):
		case <-a.done:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.ctx.Done():
			return nil, ErrClosed
		}

		select {
		case r := <-rt:
			return r.lobby, r.err
		case <-a.done:
			select {
			case r := <-rt:
				return r.lobby, r.err
			default:
				// retired before reaching our command
				continue
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.ctx.Done():
			return nil, ErrClosed
		}
	}
}

// Ready marks a roster member ready
func (c *Coordinator) Ready(ctx context.Context, id model.LobbyID, userID model.UserID) (*model.Lobby, error) {
	return c.call(ctx, id, false, func(rt replyTo) message {
		return readyCmd{userID: userID, reply: rt}
	})
}

// Pick applies a captain's draft pick
func (c *Coordinator) Pick(ctx context.Context, id model.LobbyID, userID, pickedID model.UserID) (*model.Lobby, error) {
	return c.call(ctx, id, false, func(rt replyTo) message {
		return pickCmd{userID: userID, pickedID: pickedID, reply: rt}
	})
}

// Ban applies a captain's map ban on behalf of team
func (c *Coordinator) Ban(ctx context.Context, id model.LobbyID, userID model.UserID, team model.Team, mapName string) (*model.Lobby, error) {
	return c.call(ctx, id, false, func(rt replyTo) message {
		return banCmd{userID: userID, team: team, mapName: mapName, reply: rt}
	})
}

// Leave cancels the lobby on behalf of a departing roster member
func (c *Coordinator) Leave(ctx context.Context, id model.LobbyID, userID model.UserID) (*model.Lobby, error) {
	return c.call(ctx, id, false, func(rt replyTo) message {
		return leaveCmd{userID: userID, reply: rt}
	})
}

// Reset ends the lobby: negotiating lobbies are cancelled, running matches completed
func (c *Coordinator) Reset(ctx context.Context, id model.LobbyID, reason string) (*model.Lobby, error) {
	return c.call(ctx, id, false, func(rt replyTo) message {
		return resetCmd{reason: reason, reply: rt}
	})
}

// State returns the persisted snapshot, in order with the lobby's other commands
func (c *Coordinator) State(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	return c.call(ctx, id, true, func(rt replyTo) message {
		return stateCmd{reply: rt}
	})
}

// FillBots fills the empty roster slots with synthetic players
func (c *Coordinator) FillBots(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	return c.call(ctx, id, false, func(rt replyTo) message {
		return fillBotsCmd{reply: rt}
	})
}

// RetryAllocation resubmits a failed server allocation
func (c *Coordinator) RetryAllocation(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	return c.call(ctx, id, false, func(rt replyTo) message {
		return retryCmd{reply: rt}
	})
}

// Complete records that a running match has finished
func (c *Coordinator) Complete(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	return c.call(ctx, id, false, func(rt replyTo) message {
		return completeCmd{reply: rt}
	})
}

// ActiveLobby returns the non-terminal lobby a user belongs to, or "" if none
func (c *Coordinator) ActiveLobby(ctx context.Context, userID model.UserID) (model.LobbyID, error) {
	id, err := c.storage.ActiveLobbyFor(ctx, userID)
	if err != nil {
		return "", model.PersistenceError(err)
	}
	return id, nil
}

// DeliverAllocation routes an allocator result to its lobby
func (c *Coordinator) DeliverAllocation(res allocator.Result) {
	a, _, err := c.actorFor(c.ctx, res.LobbyID)
	if err != nil || a == nil {
		attrs := []any{
			slog.String("lobby_id", string(res.LobbyID)),
			slog.String("request_id", res.RequestID),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		c.logger.Warn("dropping allocation result for inactive lobby", attrs...)
		return
	}
	a.post(allocationResult{result: res})
}

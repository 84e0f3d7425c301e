// Package allocator hands finished negotiations to the external server allocator
// and routes its answers back to the owning lobby.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/lobbyengine/internal/bus"
	"github.com/mcoot/lobbyengine/internal/dependencies/clock"
	"github.com/mcoot/lobbyengine/internal/model"
)

// Result is the outcome of one allocation request. Exactly one of ServerInfo and Err is set.
type Result struct {
	LobbyID    model.LobbyID
	RequestID  string
	ServerInfo *model.ServerInfo
	Err        error
}

// Config holds bridge settings
type Config struct {
	// Timeout is how long a request may stay unanswered
	Timeout time.Duration
}

// DefaultConfig returns default bridge configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 15 * time.Second,
	}
}

type pending struct {
	lobbyID model.LobbyID
	timer   clock.Timer
}

// Bridge tracks outstanding requests. Each lobby has at most one.
type Bridge struct {
	bus    bus.Bus
	clock  clock.Clock
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	pending  map[string]*pending
	byLobby  map[model.LobbyID]string
	onResult func(Result)
}

// New creates a Bridge
func New(b bus.Bus, clk clock.Clock, cfg Config, logger *slog.Logger) *Bridge {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Bridge{
		bus:      b,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "allocator")),
		pending:  make(map[string]*pending),
		byLobby:  make(map[model.LobbyID]string),
		onResult: func(Result) {},
	}
}

// OnResult sets the receiver for results. Call before the first Request.
func (b *Bridge) OnResult(fn func(Result)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onResult = fn
}

// Request reserves and publishes a fresh allocation request in one step
func (b *Bridge) Request(ctx context.Context, lobby *model.Lobby) (model.AllocationRequest, error) {
	req, err := b.Reserve(lobby)
	if err != nil {
		return model.AllocationRequest{}, err
	}
	if err := b.Publish(ctx, req); err != nil {
		return model.AllocationRequest{}, err
	}
	return req, nil
}

// Reserve registers a pending request for a lobby whose map is selected and arms
// its timeout. Nothing reaches the allocator until Publish.
func (b *Bridge) Reserve(lobby *model.Lobby) (model.AllocationRequest, error) {
	if lobby.MapBanState == nil || lobby.MapBanState.SelectedMap == "" {
		return model.AllocationRequest{}, model.ErrWrongPhase
	}

	attempt := 1
	if lobby.Allocation != nil {
		attempt = lobby.Allocation.Attempt + 1
	}
	req := model.AllocationRequest{
		RequestID: uuid.NewString(),
		LobbyID:   lobby.ID,
		Map:       lobby.MapBanState.SelectedMap,
		Roster:    lobby.RosterIDs(),
		Attempt:   attempt,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, busy := b.byLobby[lobby.ID]; busy {
		return model.AllocationRequest{}, model.ErrAllocationPending
	}
	p := &pending{lobbyID: lobby.ID}
	p.timer = b.clock.AfterFunc(b.cfg.Timeout, func() { b.expire(req.RequestID, p) })
	b.pending[req.RequestID] = p
	b.byLobby[lobby.ID] = req.RequestID
	return req, nil
}

// Publish sends a reserved request to the allocator. A request that cannot be
// published is forgotten.
func (b *Bridge) Publish(ctx context.Context, req model.AllocationRequest) error {
	if err := b.bus.PublishRequest(ctx, req); err != nil {
		b.Forget(req.RequestID)
		return fmt.Errorf("%w: publish: %w", model.ErrAllocatorFailure, err)
	}

	b.logger.Info("allocation requested",
		slog.String("lobby_id", string(req.LobbyID)),
		slog.String("request_id", req.RequestID),
		slog.Int("attempt", req.Attempt),
	)
	return nil
}

// Resolve applies an allocator ack. Unknown, stale, or mismatched request ids are rejected.
func (b *Bridge) Resolve(ack model.AllocationAck) error {
	if ack.RequestID == "" {
		return model.Validationf("requestId is required")
	}
	if !ack.Failed() && ack.IP == "" {
		return model.Validationf("ip is required for a successful allocation")
	}

	b.mu.Lock()
	p, ok := b.pending[ack.RequestID]
	if !ok || (ack.LobbyID != "" && ack.LobbyID != p.lobbyID) {
		b.mu.Unlock()
		return model.ErrUnknownAllocation
	}
	b.removeLocked(ack.RequestID, p)
	deliver := b.onResult
	b.mu.Unlock()

	res := Result{LobbyID: p.lobbyID, RequestID: ack.RequestID}
	if ack.Failed() {
		res.Err = fmt.Errorf("%w: %s", model.ErrAllocatorFailure, ack.FailureCode)
		b.logger.Warn("allocation failed",
			slog.String("lobby_id", string(p.lobbyID)),
			slog.String("request_id", ack.RequestID),
			slog.String("failure_code", ack.FailureCode),
		)
	} else {
		res.ServerInfo = &model.ServerInfo{IP: ack.IP, Password: ack.Password}
		b.logger.Info("allocation acknowledged",
			slog.String("lobby_id", string(p.lobbyID)),
			slog.String("request_id", ack.RequestID),
		)
	}
	deliver(res)
	return nil
}

// Forget drops a pending request without delivering a result
func (b *Bridge) Forget(requestID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pending[requestID]; ok {
		b.removeLocked(requestID, p)
	}
}

// PendingFor returns the outstanding request id for a lobby
func (b *Bridge) PendingFor(lobbyID model.LobbyID) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.byLobby[lobbyID]
	return id, ok
}

// Run consumes acks from the bus until ctx is cancelled
func (b *Bridge) Run(ctx context.Context) error {
	acks, err := b.bus.Acks(ctx)
	if err != nil {
		return err
	}
	for ack := range acks {
		if err := b.Resolve(ack); err != nil {
			b.logger.Warn("rejected allocator ack",
				slog.String("request_id", ack.RequestID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (b *Bridge) expire(requestID string, p *pending) {
	b.mu.Lock()
	if b.pending[requestID] != p {
		b.mu.Unlock()
		return
	}
	b.removeLocked(requestID, p)
	deliver := b.onResult
	b.mu.Unlock()

	b.logger.Warn("allocation timed out",
		slog.String("lobby_id", string(p.lobbyID)),
		slog.String("request_id", requestID),
	)
	deliver(Result{LobbyID: p.lobbyID, RequestID: requestID, Err: model.ErrAllocatorTimeout})
}

func (b *Bridge) removeLocked(requestID string, p *pending) {
	p.timer.Stop()
	delete(b.pending, requestID)
	if b.byLobby[p.lobbyID] == requestID {
		delete(b.byLobby, p.lobbyID)
	}
}

package lobby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/lobbyengine/internal/dependencies/clock"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/protocol"
	"github.com/mcoot/lobbyengine/internal/services/allocator"
	"github.com/mcoot/lobbyengine/internal/services/draft"
	"github.com/mcoot/lobbyengine/internal/services/mapban"
)

// CodeReadyCheckFailed is the error code sent when a ready check expires
const CodeReadyCheckFailed = "READY_CHECK_FAILED"

type armedTimer struct {
	timer clock.Timer
	gen   uint64
}

// actor owns one lobby. Only its goroutine reads or replaces a.lobby, and the
// adopted snapshot is never mutated: every change goes through a clone.
type actor struct {
	c      *Coordinator
	id     model.LobbyID
	lobby  *model.Lobby
	inbox  chan message
	done   chan struct{}
	timers map[timerKind]armedTimer
	gen    uint64
	logger *slog.Logger
}

func newActor(c *Coordinator, lobby *model.Lobby) *actor {
	return &actor{
		c:      c,
		id:     lobby.ID,
		lobby:  lobby,
		inbox:  make(chan message, c.cfg.InboxSize),
		done:   make(chan struct{}),
		timers: make(map[timerKind]armedTimer),
		logger: c.logger.With(slog.String("lobby_id", string(lobby.ID))),
	}
}

func (a *actor) run(ctx context.Context) {
	defer close(a.done)
	defer a.stopAllTimers()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.inbox:
			a.handle(ctx, msg)
			if a.lobby.Status.IsTerminal() {
				a.retire()
				return
			}
		}
	}
}

// post delivers msg unless the actor has stopped. Never call it from the actor goroutine.
func (a *actor) post(msg message) {
	select {
	case a.inbox <- msg:
	case <-a.done:
	}
}

func (a *actor) handle(ctx context.Context, msg message) {
	switch m := msg.(type) {
	case resumeMsg:
		a.resume(ctx, m.announce)
	case readyCmd:
		m.reply.send(a.ready(ctx, m.userID))
	case pickCmd:
		m.reply.send(a.pick(ctx, m.userID, m.pickedID))
	case banCmd:
		m.reply.send(a.ban(ctx, m.userID, m.team, m.mapName))
	case leaveCmd:
		m.reply.send(a.leave(ctx, m.userID))
	case resetCmd:
		m.reply.send(a.reset(ctx, m.reason))
	case stateCmd:
		m.reply.send(a.state(ctx))
	case fillBotsCmd:
		m.reply.send(a.fillBots(ctx))
	case retryCmd:
		m.reply.send(a.retry(ctx))
	case completeCmd:
		m.reply.send(a.complete(ctx))
	case allocationResult:
		a.onAllocation(ctx, m.result)
	case timerFired:
		a.onTimer(ctx, m)
	case botTurn:
		a.onBotTurn(ctx, m)
	default:
		a.logger.Error("unknown inbox message", slog.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (a *actor) retire() {
	a.c.notifier.UnbindLobby(a.id)
	a.c.remove(a)
	a.logger.Info("lobby finished",
		slog.String("status", string(a.lobby.Status)),
		slog.String("reason", a.lobby.CancelReason),
	)
}

func (a *actor) snapshot() *model.Lobby {
	return a.lobby.Clone()
}

// commit persists next and adopts it. On failure a.lobby is untouched.
func (a *actor) commit(ctx context.Context, next *model.Lobby) error {
	next.Version = a.lobby.Version + 1
	next.UpdatedAt = a.c.clock.Now()

	sctx, cancel := context.WithTimeout(ctx, a.c.cfg.PersistTimeout)
	defer cancel()
	if err := a.c.storage.SaveLobby(sctx, next); err != nil {
		a.logger.Error("failed to persist lobby",
			slog.String("status", string(next.Status)),
			slog.Int("version", next.Version),
			slog.String("error", err.Error()),
		)
		return model.PersistenceError(err)
	}

	a.lobby = next
	a.c.notifier.BindLobby(a.id, next.HumanIDs())
	return nil
}

func (a *actor) broadcast(msgs ...protocol.ServerMessage) {
	for _, msg := range msgs {
		a.c.notifier.BroadcastToLobby(a.id, msg)
	}
}

func (a *actor) update() protocol.ServerMessage {
	return protocol.LobbyUpdate{Lobby: a.lobby}
}

func (a *actor) matchReady() protocol.ServerMessage {
	return protocol.MatchReady{LobbyID: a.id, Captains: a.lobby.Captains}
}

// resume runs once when the actor starts, either for a new lobby or one read back from the store
func (a *actor) resume(ctx context.Context, announce bool) {
	a.c.notifier.BindLobby(a.id, a.lobby.HumanIDs())
	now := a.c.clock.Now()
	l := a.lobby

	if announce {
		switch {
		case l.Status == model.LobbyStatusDrafting:
			a.broadcast(a.matchReady(), protocol.ReadyPhaseStarted{LobbyID: a.id}, a.update())
		case l.IsFull():
			a.broadcast(a.matchReady(), a.update())
		default:
			a.broadcast(a.update())
		}
	}

	a.armPhaseTimers(now)
	switch l.Status {
	case model.LobbyStatusDrafting, model.LobbyStatusMapBan:
		a.scheduleBot()
	case model.LobbyStatusServerAssign:
		a.resumeAllocation(ctx)
	}
}

// armPhaseTimers makes the ready and ban timers match the adopted lobby's deadlines
func (a *actor) armPhaseTimers(now time.Time) {
	l := a.lobby
	if l.Status == model.LobbyStatusWaitingReady && l.ReadyDeadline != nil {
		a.armTimer(timerReady, l.ReadyDeadline.Sub(now))
	} else {
		a.stopTimer(timerReady)
	}
	if l.Status == model.LobbyStatusMapBan && l.MapBanState != nil && l.MapBanState.MapBanPhase {
		a.armTimer(timerBan, l.MapBanState.TurnEndsAt.Sub(now))
	} else {
		a.stopTimer(timerBan)
	}
}

// resumeAllocation repairs a lobby whose request did not survive a restart
func (a *actor) resumeAllocation(ctx context.Context) {
	alloc := a.lobby.Allocation
	if alloc == nil {
		if err := a.requestAllocation(ctx); err != nil {
			a.logger.Error("failed to resubmit allocation", slog.String("error", err.Error()))
		}
		return
	}
	if !alloc.Pending {
		return
	}
	if id, ok := a.c.allocator.PendingFor(a.id); ok && id == alloc.RequestID {
		return
	}

	next := a.lobby.Clone()
	next.Allocation.Pending = false
	next.Allocation.LastError = "allocation request lost on restart"
	if err := a.commit(ctx, next); err != nil {
		return
	}
	a.broadcast(a.update(), protocol.ServerError{LobbyID: a.id, Error: next.Allocation.LastError, Retryable: true})
}

func (a *actor) ready(ctx context.Context, userID model.UserID) (*model.Lobby, error) {
	l := a.lobby
	if l.Status != model.LobbyStatusWaitingReady {
		return nil, model.ErrWrongPhase
	}
	player := l.GetPlayer(userID)
	if player == nil {
		return nil, model.ErrNotInLobby
	}
	if player.Ready {
		return a.snapshot(), nil
	}

	next := l.Clone()
	next.GetPlayer(userID).Ready = true
	started := false
	if next.AllReady() {
		if err := startDraft(next, a.c.clock.Now()); err != nil {
			return nil, err
		}
		started = true
	}
	if err := a.commit(ctx, next); err != nil {
		return nil, err
	}

	a.logger.Info("player ready", slog.String("user_id", string(userID)))
	if started {
		a.onDraftStarted()
	} else {
		a.broadcast(a.update())
	}
	return a.snapshot(), nil
}

// startDraft moves a full, ready lobby into the captain draft
func startDraft(l *model.Lobby, now time.Time) error {
	if err := l.Transition(model.LobbyStatusDrafting, now); err != nil {
		return err
	}
	l.DraftState = draft.Start(l.Captains[0], l.Captains[1], l.RosterIDs())
	l.ReadyDeadline = nil
	return nil
}

func (a *actor) onDraftStarted() {
	a.stopTimer(timerReady)
	a.logger.Info("draft started")
	a.broadcast(protocol.ReadyPhaseStarted{LobbyID: a.id}, a.update())
	a.scheduleBot()
}

func (a *actor) pick(ctx context.Context, userID, pickedID model.UserID) (*model.Lobby, error) {
	l := a.lobby
	if l.Status != model.LobbyStatusDrafting {
		return nil, model.ErrWrongPhase
	}
	if l.GetPlayer(userID) == nil {
		return nil, model.ErrNotInLobby
	}

	now := a.c.clock.Now()
	nextDraft, err := draft.Pick(l.DraftState, userID, pickedID, now)
	if err != nil {
		return nil, err
	}

	next := l.Clone()
	next.DraftState = nextDraft
	team := model.TeamAlpha
	if userID == nextDraft.CaptainB {
		team = model.TeamBravo
	}
	next.GetPlayer(pickedID).Team = team

	if !nextDraft.IsActive {
		if err := next.Transition(model.LobbyStatusMapBan, now); err != nil {
			return nil, err
		}
		next.MapBanState = mapban.Start(a.c.cfg.MapPool, model.TeamAlpha, a.c.cfg.MapBanTurnTimeout, now)
	}
	if err := a.commit(ctx, next); err != nil {
		return nil, err
	}

	a.logger.Info("draft pick",
		slog.String("captain", string(userID)),
		slog.String("picked", string(pickedID)),
	)
	a.broadcast(a.update())
	if next.Status == model.LobbyStatusMapBan {
		a.armTimer(timerBan, a.c.cfg.MapBanTurnTimeout)
	}
	a.scheduleBot()
	return a.snapshot(), nil
}

func (a *actor) ban(ctx context.Context, userID model.UserID, team model.Team, mapName string) (*model.Lobby, error) {
	l := a.lobby
	if l.Status != model.LobbyStatusMapBan {
		return nil, model.ErrWrongPhase
	}
	if l.GetPlayer(userID) == nil {
		return nil, model.ErrNotInLobby
	}
	if l.CaptainOf(team) != userID {
		return nil, model.ErrNotYourTurn
	}

	nextBans, err := mapban.Ban(l.MapBanState, team, mapName, a.c.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := a.applyBan(ctx, nextBans); err != nil {
		return nil, err
	}
	return a.snapshot(), nil
}

// applyBan adopts a new ban state and, once a map is selected, hands off to the allocator
func (a *actor) applyBan(ctx context.Context, bans *model.MapBanState) error {
	next := a.lobby.Clone()
	next.MapBanState = bans
	if bans.SelectedMap != "" {
		if err := next.Transition(model.LobbyStatusServerAssign, a.c.clock.Now()); err != nil {
			return err
		}
	}
	if err := a.commit(ctx, next); err != nil {
		return err
	}

	last := bans.BanHistory[len(bans.BanHistory)-1]
	a.logger.Info("map banned",
		slog.String("team", string(last.Team)),
		slog.String("map", last.Map),
		slog.Bool("auto", last.Auto),
	)
	a.broadcast(a.update())

	if next.Status == model.LobbyStatusServerAssign {
		a.stopTimer(timerBan)
		a.logger.Info("map selected", slog.String("map", bans.SelectedMap))
		// the ban itself is committed; allocation trouble is left to retry-allocation
		if err := a.requestAllocation(ctx); err != nil {
			a.logger.Error("failed to record allocation request", slog.String("error", err.Error()))
		}
		return nil
	}
	a.armTimer(timerBan, a.c.cfg.MapBanTurnTimeout)
	a.scheduleBot()
	return nil
}

// requestAllocation records a pending request before publishing it, so every ack
// the allocator can send matches a stored request. Allocator errors and a failed
// write are both reported to the roster as retryable; only the write failure is
// returned.
func (a *actor) requestAllocation(ctx context.Context) error {
	req, err := a.c.allocator.Reserve(a.lobby)
	if err != nil {
		return err
	}

	next := a.lobby.Clone()
	next.Allocation = &model.AllocationState{
		RequestID:   req.RequestID,
		Attempt:     req.Attempt,
		Pending:     true,
		RequestedAt: a.c.clock.Now(),
	}
	if err := a.commit(ctx, next); err != nil {
		a.c.allocator.Forget(req.RequestID)
		a.broadcast(protocol.ServerError{LobbyID: a.id, Error: "could not record allocation request", Retryable: true})
		return err
	}

	if pubErr := a.c.allocator.Publish(ctx, req); pubErr != nil {
		a.logger.Warn("allocation request failed", slog.String("error", pubErr.Error()))
		failed := a.lobby.Clone()
		failed.Allocation.Pending = false
		failed.Allocation.LastError = pubErr.Error()
		if err := a.commit(ctx, failed); err != nil {
			// the stored request stays pending with no bridge entry, which retry accepts
			a.broadcast(protocol.ServerError{LobbyID: a.id, Error: pubErr.Error(), Retryable: true})
			return err
		}
		a.broadcast(a.update(), protocol.ServerError{LobbyID: a.id, Error: pubErr.Error(), Retryable: true})
		return nil
	}

	a.broadcast(a.update())
	return nil
}

func (a *actor) onAllocation(ctx context.Context, res allocator.Result) {
	l := a.lobby
	if l.Status != model.LobbyStatusServerAssign || l.Allocation == nil ||
		!l.Allocation.Pending || l.Allocation.RequestID != res.RequestID {
		a.logger.Warn("dropping stale allocation result", slog.String("request_id", res.RequestID))
		return
	}

	now := a.c.clock.Now()
	next := l.Clone()
	next.Allocation.Pending = false

	if res.Err != nil {
		next.Allocation.LastError = res.Err.Error()
		if err := a.commit(ctx, next); err != nil {
			return
		}
		a.broadcast(a.update(), protocol.ServerError{LobbyID: a.id, Error: res.Err.Error(), Retryable: true})
		return
	}

	info := *res.ServerInfo
	next.ServerInfo = &info
	next.Allocation.LastError = ""
	if err := next.Transition(model.LobbyStatusInProgress, now); err != nil {
		a.logger.Error("cannot start match", slog.String("error", err.Error()))
		return
	}
	if err := a.commit(ctx, next); err != nil {
		return
	}

	a.archive(ctx)
	a.logger.Info("match started", slog.String("server", info.IP))
	a.broadcast(a.update(), protocol.MatchStart{
		LobbyID:    a.id,
		Map:        next.MapBanState.SelectedMap,
		ServerInfo: info,
	})
}

// archive records the started match. The lobby has already moved on, so failures are only logged.
func (a *actor) archive(ctx context.Context) {
	if a.c.archive == nil {
		return
	}
	actx, cancel := context.WithTimeout(ctx, a.c.cfg.PersistTimeout)
	defer cancel()
	if err := a.c.archive.SaveMatch(actx, model.NewMatch(a.lobby, a.c.clock.Now())); err != nil {
		level := slog.LevelError
		if errors.Is(err, model.ErrMatchExists) {
			level = slog.LevelWarn
		}
		a.logger.Log(actx, level, "failed to archive match", slog.String("error", err.Error()))
	}
}

func (a *actor) retry(ctx context.Context) (*model.Lobby, error) {
	l := a.lobby
	if l.Status != model.LobbyStatusServerAssign {
		return nil, model.ErrWrongPhase
	}
	if l.Allocation != nil && l.Allocation.Pending {
		if _, ok := a.c.allocator.PendingFor(a.id); ok {
			return nil, model.ErrAllocationPending
		}
	}
	if err := a.requestAllocation(ctx); err != nil {
		return nil, err
	}
	return a.snapshot(), nil
}

func (a *actor) leave(ctx context.Context, userID model.UserID) (*model.Lobby, error) {
	l := a.lobby
	if l.GetPlayer(userID) == nil {
		return nil, model.ErrNotInLobby
	}
	if l.Status == model.LobbyStatusInProgress {
		return nil, model.ErrWrongPhase
	}
	if err := a.cancel(ctx, fmt.Sprintf("player %s left", userID)); err != nil {
		return nil, err
	}
	return a.snapshot(), nil
}

// cancel ends a non-terminal lobby. extra messages follow the final LOBBY_UPDATE.
func (a *actor) cancel(ctx context.Context, reason string, extra ...protocol.ServerMessage) error {
	next := a.lobby.Clone()
	if err := next.Transition(model.LobbyStatusCancelled, a.c.clock.Now()); err != nil {
		return err
	}
	next.CancelReason = reason
	next.ReadyDeadline = nil
	if err := a.commit(ctx, next); err != nil {
		return err
	}

	a.teardown()
	a.logger.Info("lobby cancelled", slog.String("reason", reason))
	a.broadcast(append([]protocol.ServerMessage{a.update()}, extra...)...)
	return nil
}

func (a *actor) teardown() {
	a.stopAllTimers()
	if alloc := a.lobby.Allocation; alloc != nil && alloc.RequestID != "" {
		a.c.allocator.Forget(alloc.RequestID)
	}
}

// reset cancels a negotiating lobby or completes one already in progress
func (a *actor) reset(ctx context.Context, reason string) (*model.Lobby, error) {
	if a.lobby.Status == model.LobbyStatusInProgress {
		next := a.lobby.Clone()
		if err := next.Transition(model.LobbyStatusCompleted, a.c.clock.Now()); err != nil {
			return nil, err
		}
		if err := a.commit(ctx, next); err != nil {
			return nil, err
		}
		a.teardown()
		a.broadcast(a.update(), protocol.MatchReset{LobbyID: a.id})
		return a.snapshot(), nil
	}

	if err := a.cancel(ctx, reason, protocol.MatchReset{LobbyID: a.id}); err != nil {
		return nil, err
	}
	return a.snapshot(), nil
}

func (a *actor) complete(ctx context.Context) (*model.Lobby, error) {
	if a.lobby.Status != model.LobbyStatusInProgress {
		return nil, model.ErrWrongPhase
	}
	next := a.lobby.Clone()
	if err := next.Transition(model.LobbyStatusCompleted, a.c.clock.Now()); err != nil {
		return nil, err
	}
	if err := a.commit(ctx, next); err != nil {
		return nil, err
	}
	a.logger.Info("match completed")
	a.broadcast(a.update())
	return a.snapshot(), nil
}

// state answers from the store. A snapshot written elsewhere since this actor
// last committed replaces the cached one.
func (a *actor) state(ctx context.Context) (*model.Lobby, error) {
	sctx, cancel := context.WithTimeout(ctx, a.c.cfg.PersistTimeout)
	defer cancel()
	stored, err := a.c.storage.GetLobby(sctx, a.id)
	if err != nil {
		if errors.Is(err, model.ErrLobbyNotFound) {
			return nil, err
		}
		return nil, model.PersistenceError(err)
	}
	if stored.Version != a.lobby.Version {
		a.logger.Warn("adopting stored snapshot",
			slog.Int("cached_version", a.lobby.Version),
			slog.Int("stored_version", stored.Version),
		)
		a.lobby = stored
		a.c.notifier.BindLobby(a.id, stored.HumanIDs())
		a.armPhaseTimers(a.c.clock.Now())
		a.scheduleBot()
	}
	return stored.Clone(), nil
}

func (a *actor) fillBots(ctx context.Context) (*model.Lobby, error) {
	l := a.lobby
	if l.Status != model.LobbyStatusWaitingReady {
		return nil, model.ErrWrongPhase
	}
	if l.IsFull() {
		return nil, model.ErrLobbyFull
	}

	existing := 0
	for _, p := range l.Players {
		if p.IsBot {
			existing++
		}
	}

	now := a.c.clock.Now()
	next := l.Clone()
	next.Players = append(next.Players, a.c.bots.NewPlayers(model.Quorum-len(l.Players), existing)...)
	if err := a.c.prepareFull(next, now); err != nil {
		return nil, err
	}
	if err := a.commit(ctx, next); err != nil {
		return nil, err
	}

	a.logger.Info("filled lobby with bots", slog.Int("bots", model.Quorum-len(l.Players)))
	if next.Status == model.LobbyStatusDrafting {
		a.broadcast(a.matchReady())
		a.onDraftStarted()
	} else {
		a.broadcast(a.matchReady(), a.update())
		a.armTimer(timerReady, next.ReadyDeadline.Sub(now))
	}
	return a.snapshot(), nil
}

func (a *actor) armTimer(kind timerKind, d time.Duration) {
	a.stopTimer(kind)
	if d < 0 {
		d = 0
	}
	a.gen++
	gen := a.gen
	t := a.c.clock.AfterFunc(d, func() { a.post(timerFired{kind: kind, gen: gen}) })
	a.timers[kind] = armedTimer{timer: t, gen: gen}
}

func (a *actor) stopTimer(kind timerKind) {
	if t, ok := a.timers[kind]; ok {
		t.timer.Stop()
		delete(a.timers, kind)
	}
}

func (a *actor) stopAllTimers() {
	for kind := range a.timers {
		a.stopTimer(kind)
	}
}

func (a *actor) onTimer(ctx context.Context, m timerFired) {
	armed, ok := a.timers[m.kind]
	if !ok || armed.gen != m.gen {
		return
	}
	delete(a.timers, m.kind)

	switch m.kind {
	case timerReady:
		a.onReadyTimeout(ctx)
	case timerBan:
		a.onBanTimeout(ctx)
	}
}

func (a *actor) onReadyTimeout(ctx context.Context) {
	if a.lobby.Status != model.LobbyStatusWaitingReady {
		return
	}
	unready := a.lobby.Unready()
	names := make([]string, len(unready))
	for i, id := range unready {
		names[i] = string(id)
	}
	err := a.cancel(ctx, "ready check expired", protocol.Error{
		Code:    CodeReadyCheckFailed,
		Message: "players not ready: " + strings.Join(names, ", "),
	})
	if err != nil {
		// retry on the next window rather than leaving the lobby without a deadline
		a.armTimer(timerReady, a.c.cfg.ReadyCheckTimeout)
	}
}

func (a *actor) onBanTimeout(ctx context.Context) {
	if a.lobby.Status != model.LobbyStatusMapBan {
		return
	}
	bans, err := mapban.AutoBan(a.lobby.MapBanState, a.c.clock.Now())
	if err != nil {
		a.logger.Error("auto-ban failed", slog.String("error", err.Error()))
		return
	}
	if err := a.applyBan(ctx, bans); err != nil {
		a.armTimer(timerBan, a.c.cfg.MapBanTurnTimeout)
	}
}

// currentBotCaptain returns the captain on turn if it is a bot playing automatically
func (a *actor) currentBotCaptain() (model.UserID, bool) {
	l := a.lobby
	if !l.Options.BotsAutoPlay {
		return "", false
	}
	var captain model.UserID
	switch l.Status {
	case model.LobbyStatusDrafting:
		captain = l.DraftState.CurrentCaptain()
	case model.LobbyStatusMapBan:
		captain = l.CaptainOf(l.MapBanState.CurrentBanTeam)
	default:
		return "", false
	}
	return captain, l.IsBot(captain)
}

func (a *actor) scheduleBot() {
	if _, ok := a.currentBotCaptain(); !ok {
		return
	}
	turn := botTurn{version: a.lobby.Version}
	go a.post(turn)
}

func (a *actor) onBotTurn(ctx context.Context, m botTurn) {
	if m.version != a.lobby.Version {
		return
	}
	captain, ok := a.currentBotCaptain()
	if !ok {
		return
	}

	var err error
	switch a.lobby.Status {
	case model.LobbyStatusDrafting:
		_, err = a.pick(ctx, captain, a.c.bots.ChoosePick(a.lobby.DraftState))
	case model.LobbyStatusMapBan:
		team := a.lobby.MapBanState.CurrentBanTeam
		_, err = a.ban(ctx, captain, team, a.c.bots.ChooseBan(a.lobby.MapBanState))
	}
	if err != nil {
		a.logger.Error("bot turn failed", slog.String("captain", string(captain)), slog.String("error", err.Error()))
	}
}

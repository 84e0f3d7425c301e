package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/lobbyengine/internal/api/apierr"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/protocol"
)

// handleFrame decodes one inbound frame and answers failures with ERROR
func (h *Handler) handleFrame(ctx context.Context, c *Client, data []byte) {
	msg, err := protocol.DecodeClient(data)
	if err == nil {
		err = h.dispatch(ctx, c, msg)
	}
	if err == nil {
		return
	}

	e := apierr.Describe(err)
	attrs := []any{
		slog.String("conn_id", c.id),
		slog.String("code", e.Code),
		slog.String("error", err.Error()),
	}
	if msg != nil {
		attrs = append(attrs, slog.String("type", string(msg.Type())))
	}
	if errors.Is(err, model.ErrPersistence) || e.Code == apierr.CodeInternalError {
		h.logger.Error("message failed", attrs...)
	} else {
		h.logger.Debug("message rejected", attrs...)
	}
	h.reply(c, protocol.Error{Code: e.Code, Message: e.Message})
}

// reply answers the sending handle only
func (h *Handler) reply(c *Client, msg protocol.ServerMessage) {
	data, err := protocol.Encode(msg)
	if err != nil {
		h.logger.Error("encode failed", slog.String("type", string(msg.Type())), slog.String("error", err.Error()))
		return
	}
	if !c.Send(data) {
		h.logger.Warn("reply dropped, client buffer full", slog.String("conn_id", c.id))
	}
}

func (h *Handler) dispatch(ctx context.Context, c *Client, msg protocol.ClientMessage) error {
	if m, ok := msg.(protocol.Register); ok {
		return h.register(ctx, c, m)
	}

	profile, ok := h.registry.UserFor(c)
	if !ok {
		return model.ErrUserNotRegistered
	}

	switch m := msg.(type) {
	case protocol.JoinQueue:
		if err := sameUser(profile, m.UserID); err != nil {
			return err
		}
		return h.queue.Join(ctx, model.QueueEntry{
			UserID:    profile.UserID,
			Username:  profile.Username,
			Avatar:    profile.Avatar,
			EloRating: profile.EloRating,
		})

	case protocol.LeaveMatch:
		if err := sameUser(profile, m.UserID); err != nil {
			return err
		}
		return h.leave(ctx, profile.UserID, m.LobbyID)

	case protocol.PlayerReady:
		if err := sameUser(profile, m.UserID); err != nil {
			return err
		}
		_, err := h.lobbies.Ready(ctx, m.LobbyID, profile.UserID)
		return err

	case protocol.RequestMatchState:
		l, err := h.lobbies.State(ctx, m.LobbyID)
		if err != nil {
			return err
		}
		h.reply(c, protocol.LobbyUpdate{Lobby: l})
		return nil

	case protocol.DraftPick:
		_, err := h.lobbies.Pick(ctx, m.LobbyID, profile.UserID, m.PickedPlayerID)
		return err

	case protocol.BanMap:
		_, err := h.lobbies.Ban(ctx, m.LobbyID, profile.UserID, m.Team, m.Map)
		return err

	case protocol.ResetMatch:
		return h.reset(ctx, profile, m.LobbyID)

	case protocol.SendChat:
		h.logger.Debug("dropping chat message", slog.String("user_id", string(profile.UserID)))
		return nil

	default:
		return model.Validationf("unsupported message type %q", msg.Type())
	}
}

func (h *Handler) register(ctx context.Context, c *Client, m protocol.Register) error {
	profile, first := h.registry.Register(model.UserProfile{
		UserID:    m.UserID,
		Username:  m.Username,
		Avatar:    m.Avatar,
		EloRating: m.EloRating,
	}, c)
	h.queue.UserConnected(profile.UserID)

	h.logger.Info("user registered",
		slog.String("conn_id", c.id),
		slog.String("user_id", string(profile.UserID)),
		slog.String("role", string(profile.Role)),
		slog.Bool("first_handle", first),
	)
	h.reply(c, protocol.RegisterAck{UserID: profile.UserID, Role: profile.Role})

	lobbyID, err := h.lobbies.ActiveLobby(ctx, profile.UserID)
	if err != nil || lobbyID == "" {
		return err
	}
	l, err := h.lobbies.State(ctx, lobbyID)
	if err != nil {
		return err
	}
	h.reply(c, protocol.LobbyUpdate{Lobby: l})
	return nil
}

// leave takes the user out of the queue and, when they are on a roster, out of the lobby
func (h *Handler) leave(ctx context.Context, userID model.UserID, lobbyID model.LobbyID) error {
	leftQueue := h.queue.Leave(userID)

	if lobbyID == "" {
		active, err := h.lobbies.ActiveLobby(ctx, userID)
		if err != nil {
			return err
		}
		if active == "" {
			if leftQueue {
				return nil
			}
			return model.ErrNotInLobby
		}
		lobbyID = active
	}

	_, err := h.lobbies.Leave(ctx, lobbyID, userID)
	return err
}

func (h *Handler) reset(ctx context.Context, profile model.UserProfile, lobbyID model.LobbyID) error {
	if !profile.Role.CanReset() {
		return fmt.Errorf("%w: reset requires the moderator or admin role", model.ErrForbidden)
	}
	if lobbyID == "" {
		active, err := h.lobbies.ActiveLobby(ctx, profile.UserID)
		if err != nil {
			return err
		}
		if active == "" {
			return model.Validationf("lobbyId is required")
		}
		lobbyID = active
	}

	_, err := h.lobbies.Reset(ctx, lobbyID, fmt.Sprintf("reset by %s", profile.UserID))
	return err
}

func sameUser(profile model.UserProfile, claimed model.UserID) error {
	if claimed != profile.UserID {
		return model.Validationf("userId %q does not match the registered user", claimed)
	}
	return nil
}

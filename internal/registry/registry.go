// Package registry tracks which live connections belong to which user and fans
// server messages out to users and lobby rosters.
package registry

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/protocol"
)

// Conn is one live client handle. Send must not block: a full outbound buffer drops the frame.
type Conn interface {
	ID() string
	Send(data []byte) bool
}

// Session is a registered user and the handles currently attached to them.
// Sessions outlive their handles so a reconnect finds the same identity.
type Session struct {
	mu      sync.Mutex
	profile model.UserProfile
	handles map[string]Conn
}

func (s *Session) snapshot() []Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := make([]Conn, 0, len(s.handles))
	for _, c := range s.handles {
		conns = append(conns, c)
	}
	return conns
}

// Registry is safe for concurrent use
type Registry struct {
	mu        sync.RWMutex
	sessions  map[model.UserID]*Session
	connUsers map[string]model.UserID
	lobbies   map[model.LobbyID][]model.UserID

	moderators map[model.UserID]bool
	admins     map[model.UserID]bool
	logger     *slog.Logger
}

// New creates a Registry. Roles are granted from the moderator and admin id lists only.
func New(moderators, admins []model.UserID, logger *slog.Logger) *Registry {
	r := &Registry{
		sessions:   make(map[model.UserID]*Session),
		connUsers:  make(map[string]model.UserID),
		lobbies:    make(map[model.LobbyID][]model.UserID),
		moderators: make(map[model.UserID]bool),
		admins:     make(map[model.UserID]bool),
		logger:     logger.With(slog.String("component", "registry")),
	}
	for _, id := range moderators {
		r.moderators[id] = true
	}
	for _, id := range admins {
		r.admins[id] = true
	}
	return r
}

func (r *Registry) roleFor(id model.UserID) model.UserRole {
	switch {
	case r.admins[id]:
		return model.UserRoleAdmin
	case r.moderators[id]:
		return model.UserRoleModerator
	default:
		return model.UserRoleStandard
	}
}

// Register attaches conn to the user in profile, creating the session on first
// sight. The returned profile carries the configured role. first reports whether
// conn is now the user's only handle.
func (r *Registry) Register(profile model.UserProfile, conn Conn) (model.UserProfile, bool) {
	profile.Role = r.roleFor(profile.UserID)

	r.mu.Lock()
	if prev, ok := r.connUsers[conn.ID()]; ok && prev != profile.UserID {
		if s := r.sessions[prev]; s != nil {
			s.mu.Lock()
			delete(s.handles, conn.ID())
			s.mu.Unlock()
		}
	}
	r.connUsers[conn.ID()] = profile.UserID
	session, ok := r.sessions[profile.UserID]
	if !ok {
		session = &Session{handles: make(map[string]Conn)}
		r.sessions[profile.UserID] = session
	}
	r.mu.Unlock()

	session.mu.Lock()
	defer session.mu.Unlock()
	session.profile = profile
	session.handles[conn.ID()] = conn
	return profile, len(session.handles) == 1
}

// Unregister detaches one handle. The session itself is kept.
// remaining is the number of handles the user still holds.
func (r *Registry) Unregister(conn Conn) (model.UserID, int) {
	r.mu.Lock()
	userID, ok := r.connUsers[conn.ID()]
	if !ok {
		r.mu.Unlock()
		return "", 0
	}
	delete(r.connUsers, conn.ID())
	session := r.sessions[userID]
	r.mu.Unlock()

	if session == nil {
		return userID, 0
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	delete(session.handles, conn.ID())
	return userID, len(session.handles)
}

// UserFor returns the profile bound to a connection
func (r *Registry) UserFor(conn Conn) (model.UserProfile, bool) {
	r.mu.RLock()
	userID, ok := r.connUsers[conn.ID()]
	session := r.sessions[userID]
	r.mu.RUnlock()
	if !ok || session == nil {
		return model.UserProfile{}, false
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.profile, true
}

// Profile returns a registered user's profile
func (r *Registry) Profile(userID model.UserID) (model.UserProfile, bool) {
	r.mu.RLock()
	session := r.sessions[userID]
	r.mu.RUnlock()
	if session == nil {
		return model.UserProfile{}, false
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.profile, true
}

// SendTo delivers msg to every handle of a user. Unknown users are ignored.
func (r *Registry) SendTo(userID model.UserID, msg protocol.ServerMessage) {
	data, err := protocol.Encode(msg)
	if err != nil {
		r.logger.Error("failed to encode message", slog.String("type", string(msg.Type())), slog.String("error", err.Error()))
		return
	}
	r.deliver(userID, msg.Type(), data)
}

// BroadcastToLobby delivers msg to every handle of every bound roster member
func (r *Registry) BroadcastToLobby(lobbyID model.LobbyID, msg protocol.ServerMessage) {
	data, err := protocol.Encode(msg)
	if err != nil {
		r.logger.Error("failed to encode message", slog.String("type", string(msg.Type())), slog.String("error", err.Error()))
		return
	}

	r.mu.RLock()
	roster := slices.Clone(r.lobbies[lobbyID])
	r.mu.RUnlock()

	for _, userID := range roster {
		r.deliver(userID, msg.Type(), data)
	}
}

func (r *Registry) deliver(userID model.UserID, typ protocol.MessageType, data []byte) {
	r.mu.RLock()
	session := r.sessions[userID]
	r.mu.RUnlock()
	if session == nil {
		return
	}
	for _, conn := range session.snapshot() {
		if !conn.Send(data) {
			r.logger.Warn("dropped message for slow connection",
				slog.String("user_id", string(userID)),
				slog.String("conn_id", conn.ID()),
				slog.String("type", string(typ)),
			)
		}
	}
}

// BindLobby sets the fan-out roster for a lobby, replacing any previous one
func (r *Registry) BindLobby(lobbyID model.LobbyID, roster []model.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobbies[lobbyID] = slices.Clone(roster)
}

// UnbindLobby drops the fan-out roster for a lobby
func (r *Registry) UnbindLobby(lobbyID model.LobbyID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lobbies, lobbyID)
}

// Connections returns the number of registered handles
func (r *Registry) Connections() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connUsers)
}

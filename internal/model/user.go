package model

import "time"

// UserID is the stable external identity of a player
type UserID string

// UserRole gates administrative actions
type UserRole string

const (
	UserRoleStandard  UserRole = "standard"
	UserRoleModerator UserRole = "moderator"
	UserRoleAdmin     UserRole = "admin"
)

// CanReset reports whether the role may issue administrative resets
func (r UserRole) CanReset() bool {
	return r == UserRoleModerator || r == UserRoleAdmin
}

// UserProfile is the identity a client presents on registration
type UserProfile struct {
	UserID    UserID   `json:"userId"`
	Username  string   `json:"username"`
	Avatar    string   `json:"avatar,omitempty"`
	EloRating int      `json:"eloRating"`
	Role      UserRole `json:"role"`
}

// QueueEntry is a user waiting to be merged into a lobby
type QueueEntry struct {
	UserID    UserID    `json:"userId"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	EloRating int       `json:"eloRating"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// RanksAbove orders entries for captain selection: higher elo first,
// then earlier join, then lexicographic id.
func (e QueueEntry) RanksAbove(other QueueEntry) bool {
	if e.EloRating != other.EloRating {
		return e.EloRating > other.EloRating
	}
	if !e.JoinedAt.Equal(other.JoinedAt) {
		return e.JoinedAt.Before(other.JoinedAt)
	}
	return e.UserID < other.UserID
}

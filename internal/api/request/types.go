package request

import (
	"github.com/mcoot/lobbyengine/internal/model"
)

// PlayerRequest is one roster entry in a create-match request
type PlayerRequest struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar,omitempty"`
	EloRating int    `json:"eloRating"`
}

// Profile converts the entry to the identity the coordinator seats
func (p PlayerRequest) Profile() model.UserProfile {
	return model.UserProfile{
		UserID:    model.UserID(p.UserID),
		Username:  p.Username,
		Avatar:    p.Avatar,
		EloRating: p.EloRating,
		Role:      model.UserRoleStandard,
	}
}

// CreateMatchRequest is the request body for creating a lobby directly
type CreateMatchRequest struct {
	Players        []PlayerRequest `json:"players"`
	SkipReadyCheck bool            `json:"skipReadyCheck"`
	BotsAutoPlay   bool            `json:"botsAutoPlay"`
}

// Options returns the lobby options carried by the request
func (r CreateMatchRequest) Options() model.LobbyOptions {
	return model.LobbyOptions{
		SkipReadyCheck: r.SkipReadyCheck,
		BotsAutoPlay:   r.BotsAutoPlay,
	}
}

// ResetMatchRequest is the optional request body for an administrative reset
type ResetMatchRequest struct {
	Reason string `json:"reason,omitempty"`
}

// AllocatorWebhookRequest is the allocator's answer to a request. A non-empty
// failureCode marks a failed allocation.
type AllocatorWebhookRequest struct {
	RequestID   string `json:"requestId"`
	LobbyID     string `json:"lobbyId,omitempty"`
	IP          string `json:"ip,omitempty"`
	Password    string `json:"password,omitempty"`
	FailureCode string `json:"failureCode,omitempty"`
}

// Ack converts the request to the bridge's ack type
func (r AllocatorWebhookRequest) Ack() model.AllocationAck {
	return model.AllocationAck{
		RequestID:   r.RequestID,
		LobbyID:     model.LobbyID(r.LobbyID),
		IP:          r.IP,
		Password:    r.Password,
		FailureCode: r.FailureCode,
	}
}

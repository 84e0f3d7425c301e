// Package protocol defines the websocket message envelope and the closed set of
// client and server messages carried in it.
package protocol

import (
	"encoding/json"

	"github.com/mcoot/lobbyengine/internal/model"
)

// MessageType tags an envelope payload
type MessageType string

// Client -> server
const (
	TypeRegister          MessageType = "REGISTER"
	TypeJoinQueue         MessageType = "JOIN_QUEUE"
	TypeLeaveMatch        MessageType = "LEAVE_MATCH"
	TypePlayerReady       MessageType = "PLAYER_READY"
	TypeRequestMatchState MessageType = "REQUEST_MATCH_STATE"
	TypeDraftPick         MessageType = "DRAFT_PICK"
	TypeBanMap            MessageType = "BAN_MAP"
	TypeResetMatch        MessageType = "RESET_MATCH"
	TypeSendChat          MessageType = "SEND_CHAT"
)

// Server -> client
const (
	TypeRegisterAck       MessageType = "REGISTER_ACK"
	TypeMatchReady        MessageType = "MATCH_READY"
	TypeReadyPhaseStarted MessageType = "READY_PHASE_STARTED"
	TypeLobbyUpdate       MessageType = "LOBBY_UPDATE"
	TypeMatchStart        MessageType = "MATCH_START"
	TypeMatchReset        MessageType = "MATCH_RESET"
	TypeServerError       MessageType = "SERVER_ERROR"
	TypeError             MessageType = "ERROR"
)

// Envelope is the wire frame for every message in both directions
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClientMessage is implemented only by the client -> server payloads below
type ClientMessage interface {
	Type() MessageType
	Validate() error
}

// ServerMessage is implemented only by the server -> client payloads below
type ServerMessage interface {
	Type() MessageType
	serverMessage()
}

// Register binds the connection to a user identity
type Register struct {
	UserID    model.UserID `json:"userId"`
	Username  string       `json:"username"`
	Avatar    string       `json:"avatar,omitempty"`
	EloRating int          `json:"eloRating"`
}

type JoinQueue struct {
	UserID model.UserID `json:"userId"`
}

type LeaveMatch struct {
	UserID  model.UserID  `json:"userId"`
	LobbyID model.LobbyID `json:"lobbyId,omitempty"`
}

type PlayerReady struct {
	UserID  model.UserID  `json:"userId"`
	LobbyID model.LobbyID `json:"lobbyId"`
}

type RequestMatchState struct {
	LobbyID model.LobbyID `json:"lobbyId"`
}

type DraftPick struct {
	LobbyID        model.LobbyID `json:"lobbyId"`
	PickedPlayerID model.UserID  `json:"pickedPlayerId"`
}

type BanMap struct {
	LobbyID model.LobbyID `json:"lobbyId"`
	Map     string        `json:"map"`
	Team    model.Team    `json:"team"`
}

// ResetMatch without a lobby id targets the sender's active lobby
type ResetMatch struct {
	LobbyID model.LobbyID `json:"lobbyId,omitempty"`
}

// SendChat is accepted for compatibility and dropped
type SendChat struct {
	Content string        `json:"content"`
	LobbyID model.LobbyID `json:"lobbyId,omitempty"`
}

func (Register) Type() MessageType          { return TypeRegister }
func (JoinQueue) Type() MessageType         { return TypeJoinQueue }
func (LeaveMatch) Type() MessageType        { return TypeLeaveMatch }
func (PlayerReady) Type() MessageType       { return TypePlayerReady }
func (RequestMatchState) Type() MessageType { return TypeRequestMatchState }
func (DraftPick) Type() MessageType         { return TypeDraftPick }
func (BanMap) Type() MessageType            { return TypeBanMap }
func (ResetMatch) Type() MessageType        { return TypeResetMatch }
func (SendChat) Type() MessageType          { return TypeSendChat }

type RegisterAck struct {
	UserID model.UserID   `json:"userId"`
	Role   model.UserRole `json:"role"`
}

type MatchReady struct {
	LobbyID  model.LobbyID  `json:"lobbyId"`
	Captains []model.UserID `json:"captains"`
}

type ReadyPhaseStarted struct {
	LobbyID model.LobbyID `json:"lobbyId"`
}

type LobbyUpdate struct {
	Lobby *model.Lobby `json:"lobby"`
}

type MatchStart struct {
	LobbyID    model.LobbyID    `json:"lobbyId"`
	Map        string           `json:"map"`
	ServerInfo model.ServerInfo `json:"serverInfo"`
}

type MatchReset struct {
	LobbyID model.LobbyID `json:"lobbyId"`
}

type ServerError struct {
	LobbyID   model.LobbyID `json:"lobbyId"`
	Error     string        `json:"error"`
	Retryable bool          `json:"retryable"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (RegisterAck) Type() MessageType       { return TypeRegisterAck }
func (MatchReady) Type() MessageType        { return TypeMatchReady }
func (ReadyPhaseStarted) Type() MessageType { return TypeReadyPhaseStarted }
func (LobbyUpdate) Type() MessageType       { return TypeLobbyUpdate }
func (MatchStart) Type() MessageType        { return TypeMatchStart }
func (MatchReset) Type() MessageType        { return TypeMatchReset }
func (ServerError) Type() MessageType       { return TypeServerError }
func (Error) Type() MessageType             { return TypeError }

func (RegisterAck) serverMessage()       {}
func (MatchReady) serverMessage()        {}
func (ReadyPhaseStarted) serverMessage() {}
func (LobbyUpdate) serverMessage()       {}
func (MatchStart) serverMessage()        {}
func (MatchReset) serverMessage()        {}
func (ServerError) serverMessage()       {}
func (Error) serverMessage()             {}

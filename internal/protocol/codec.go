package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/mcoot/lobbyengine/internal/model"
)

// DecodeClient parses and validates one client frame. Every failure is a validation error.
func DecodeClient(data []byte) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, model.Validationf("malformed envelope: %v", err)
	}

	switch env.Type {
	case TypeRegister:
		return decode[Register](env.Payload)
	case TypeJoinQueue:
		return decode[JoinQueue](env.Payload)
	case TypeLeaveMatch:
		return decode[LeaveMatch](env.Payload)
	case TypePlayerReady:
		return decode[PlayerReady](env.Payload)
	case TypeRequestMatchState:
		return decode[RequestMatchState](env.Payload)
	case TypeDraftPick:
		return decode[DraftPick](env.Payload)
	case TypeBanMap:
		return decode[BanMap](env.Payload)
	case TypeResetMatch:
		return decode[ResetMatch](env.Payload)
	case TypeSendChat:
		return decode[SendChat](env.Payload)
	case "":
		return nil, model.Validationf("message type is required")
	default:
		return nil, model.Validationf("unknown message type %q", env.Type)
	}
}

func decode[T ClientMessage](payload json.RawMessage) (ClientMessage, error) {
	var msg T
	if len(bytes.TrimSpace(payload)) > 0 && !bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&msg); err != nil {
			return nil, model.Validationf("malformed %s payload: %v", msg.Type(), err)
		}
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode wraps a server message in an envelope
func Encode(msg ServerMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msg.Type(), Payload: payload})
}

// EncodeClient wraps a client message in an envelope. Used by the CLI and tests.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msg.Type(), Payload: payload})
}

// DecodeServer parses a server frame into its concrete message
func DecodeServer(data []byte) (ServerMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	var msg ServerMessage
	switch env.Type {
	case TypeRegisterAck:
		msg = &RegisterAck{}
	case TypeMatchReady:
		msg = &MatchReady{}
	case TypeReadyPhaseStarted:
		msg = &ReadyPhaseStarted{}
	case TypeLobbyUpdate:
		msg = &LobbyUpdate{}
	case TypeMatchStart:
		msg = &MatchStart{}
	case TypeMatchReset:
		msg = &MatchReset{}
	case TypeServerError:
		msg = &ServerError{}
	case TypeError:
		msg = &Error{}
	default:
		return nil, model.Validationf("unknown message type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

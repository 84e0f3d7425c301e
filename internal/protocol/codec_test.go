package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/lobbyengine/internal/model"
)

func TestDecodeClientRegister(t *testing.T) {
	msg, err := DecodeClient([]byte(`{"type":"REGISTER","payload":{"userId":"u1","username":"alice","eloRating":1500}}`))
	require.NoError(t, err)

	reg, ok := msg.(Register)
	require.True(t, ok)
	assert.Equal(t, model.UserID("u1"), reg.UserID)
	assert.Equal(t, "alice", reg.Username)
	assert.Equal(t, 1500, reg.EloRating)
}

func TestDecodeClientVariants(t *testing.T) {
	cases := map[string]MessageType{
		`{"type":"JOIN_QUEUE","payload":{"userId":"u1"}}`:                           TypeJoinQueue,
		`{"type":"LEAVE_MATCH","payload":{"userId":"u1"}}`:                          TypeLeaveMatch,
		`{"type":"PLAYER_READY","payload":{"userId":"u1","lobbyId":"l1"}}`:          TypePlayerReady,
		`{"type":"REQUEST_MATCH_STATE","payload":{"lobbyId":"l1"}}`:                 TypeRequestMatchState,
		`{"type":"DRAFT_PICK","payload":{"lobbyId":"l1","pickedPlayerId":"u2"}}`:    TypeDraftPick,
		`{"type":"BAN_MAP","payload":{"lobbyId":"l1","map":"Kafe","team":"alpha"}}`: TypeBanMap,
		`{"type":"RESET_MATCH"}`:                             TypeResetMatch,
		`{"type":"SEND_CHAT","payload":{"content":"gl hf"}}`: TypeSendChat,
	}
	for frame, want := range cases {
		msg, err := DecodeClient([]byte(frame))
		require.NoError(t, err, frame)
		assert.Equal(t, want, msg.Type())
	}
}

func TestDecodeClientRejectsBadFrames(t *testing.T) {
	frames := []string{
		`not json`,
		`{"payload":{}}`,
		`{"type":"FLY_TO_MOON","payload":{}}`,
		`{"type":"REGISTER","payload":{"userId":"","username":"alice"}}`,
		`{"type":"REGISTER","payload":{"userId":"u1","username":"alice","eloRating":"high"}}`,
		`{"type":"JOIN_QUEUE","payload":{"userId":"u1","extra":true}}`,
		`{"type":"PLAYER_READY","payload":{"userId":"u1"}}`,
		`{"type":"BAN_MAP","payload":{"lobbyId":"l1","map":"Kafe","team":"purple"}}`,
		`{"type":"DRAFT_PICK","payload":{"lobbyId":"l1"}}`,
	}
	for _, frame := range frames {
		_, err := DecodeClient([]byte(frame))
		assert.ErrorIs(t, err, model.ErrValidation, frame)
	}
}

func TestEncodeServerMessage(t *testing.T) {
	data, err := Encode(MatchReady{LobbyID: "l1", Captains: []model.UserID{"u9", "u8"}})
	require.NoError(t, err)

	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "MATCH_READY", env.Type)
	assert.JSONEq(t, `{"lobbyId":"l1","captains":["u9","u8"]}`, string(env.Payload))
}

func TestServerRoundTrip(t *testing.T) {
	data, err := Encode(ServerError{LobbyID: "l1", Error: "allocator did not acknowledge in time", Retryable: true})
	require.NoError(t, err)

	msg, err := DecodeServer(data)
	require.NoError(t, err)
	serverErr, ok := msg.(*ServerError)
	require.True(t, ok)
	assert.True(t, serverErr.Retryable)
	assert.Equal(t, model.LobbyID("l1"), serverErr.LobbyID)
}

func TestEncodeClientDecodesBack(t *testing.T) {
	data, err := EncodeClient(DraftPick{LobbyID: "l1", PickedPlayerID: "u3"})
	require.NoError(t, err)

	msg, err := DecodeClient(data)
	require.NoError(t, err)
	assert.Equal(t, DraftPick{LobbyID: "l1", PickedPlayerID: "u3"}, msg)
}

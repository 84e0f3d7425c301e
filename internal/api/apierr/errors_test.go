package apierr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/services/auth"
	"github.com/mcoot/lobbyengine/internal/services/lobby"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", model.Validationf("userId is required"), http.StatusBadRequest, CodeInvalidRequest},
		{"not your turn", model.ErrNotYourTurn, http.StatusConflict, CodeNotYourTurn},
		{"wrapped wrong phase", fmt.Errorf("pick: %w", model.ErrWrongPhase), http.StatusConflict, CodeWrongPhase},
		{"invalid map", model.ErrInvalidMap, http.StatusConflict, CodeInvalidMap},
		{"allocation pending", model.ErrAllocationPending, http.StatusConflict, CodeAllocationPending},
		{"already queued", model.ErrAlreadyQueued, http.StatusConflict, CodeAlreadyQueued},
		{"already in lobby", model.ErrAlreadyInLobby, http.StatusConflict, CodeAlreadyInLobby},
		{"forbidden", model.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"lobby not found", model.ErrLobbyNotFound, http.StatusNotFound, CodeLobbyNotFound},
		{"unknown allocation", model.ErrUnknownAllocation, http.StatusNotFound, CodeUnknownAllocation},
		{"persistence", model.PersistenceError(fmt.Errorf("redis down")), http.StatusInternalServerError, CodePersistenceFailure},
		{"bad token", auth.ErrInvalidToken, http.StatusUnauthorized, CodeUnauthorized},
		{"shutting down", lobby.ErrClosed, http.StatusServiceUnavailable, CodeServiceShuttingDown},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, tt.code, Describe(tt.err).Code)
		})
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, NewInvalidRequestError("bad body"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "bad body", resp.Error.Message)
}

func TestPersistenceDetailIsHidden(t *testing.T) {
	err := model.PersistenceError(fmt.Errorf("dial tcp 10.0.0.1:6379: refused"))
	assert.NotContains(t, Describe(err).Message, "10.0.0.1")
}

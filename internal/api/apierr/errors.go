package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/services/auth"
	"github.com/mcoot/lobbyengine/internal/services/lobby"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodeInvalidSelection    = "INVALID_SELECTION"
	CodeInvalidMap          = "INVALID_MAP"
	CodeWrongPhase          = "WRONG_PHASE"
	CodeDraftInactive       = "DRAFT_INACTIVE"
	CodeBanPhaseInactive    = "BAN_PHASE_INACTIVE"
	CodeAllocationPending   = "ALLOCATION_PENDING"
	CodeLobbyFull           = "LOBBY_FULL"
	CodeNotInLobby          = "NOT_IN_LOBBY"
	CodeStateConflict       = "STATE_CONFLICT"
	CodeAlreadyQueued       = "ALREADY_QUEUED"
	CodeAlreadyInLobby      = "ALREADY_IN_LOBBY"
	CodeLobbyNotFound       = "LOBBY_NOT_FOUND"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeUnknownAllocation   = "UNKNOWN_ALLOCATION"
	CodeNotFound            = "NOT_FOUND"
	CodePersistenceFailure  = "PERSISTENCE_FAILURE"
	CodeServiceShuttingDown = "SHUTTING_DOWN"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// Describe returns the code and message an error maps to. The websocket transport
// uses it so both surfaces report the same codes.
func Describe(err error) APIError {
	return toHTTPError(err).apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Lookups
	case errors.Is(err, model.ErrLobbyNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeLobbyNotFound, "Lobby not found"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrUnknownAllocation):
		return &httpError{http.StatusNotFound, APIError{CodeUnknownAllocation, "Unknown or expired allocation request"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}

	// Membership
	case errors.Is(err, model.ErrAlreadyQueued):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyQueued, "Already in the queue"}}
	case errors.Is(err, model.ErrAlreadyInLobby):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInLobby, "Already in an active lobby"}}
	case errors.Is(err, model.ErrNotInLobby):
		return &httpError{http.StatusConflict, APIError{CodeNotInLobby, "Not on this lobby's roster"}}
	case errors.Is(err, model.ErrLobbyFull):
		return &httpError{http.StatusConflict, APIError{CodeLobbyFull, "Lobby is full"}}

	// Negotiation
	case errors.Is(err, model.ErrNotYourTurn):
		return &httpError{http.StatusConflict, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrInvalidSelection):
		return &httpError{http.StatusConflict, APIError{CodeInvalidSelection, "Player is not available to pick"}}
	case errors.Is(err, model.ErrInvalidMap):
		return &httpError{http.StatusConflict, APIError{CodeInvalidMap, "Map is not available to ban"}}
	case errors.Is(err, model.ErrDraftInactive):
		return &httpError{http.StatusConflict, APIError{CodeDraftInactive, "Draft is not active"}}
	case errors.Is(err, model.ErrBanPhaseInactive):
		return &httpError{http.StatusConflict, APIError{CodeBanPhaseInactive, "Map ban is not active"}}
	case errors.Is(err, model.ErrAllocationPending):
		return &httpError{http.StatusConflict, APIError{CodeAllocationPending, "An allocation request is already pending"}}
	case errors.Is(err, model.ErrWrongPhase):
		return &httpError{http.StatusConflict, APIError{CodeWrongPhase, "Action not allowed in the current phase"}}
	case errors.Is(err, model.ErrStateConflict):
		return &httpError{http.StatusConflict, APIError{CodeStateConflict, err.Error()}}

	// Access
	case errors.Is(err, model.ErrForbidden):
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Not permitted"}}
	case errors.Is(err, auth.ErrUnauthorized):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or missing credentials"}}

	// Validation keeps its detail, it names the offending field
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	case errors.Is(err, model.ErrPersistence):
		return &httpError{http.StatusInternalServerError, APIError{CodePersistenceFailure, "Could not persist lobby state"}}
	case errors.Is(err, lobby.ErrClosed):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeServiceShuttingDown, "Service is shutting down"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

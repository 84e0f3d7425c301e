package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/lobbyengine/internal/api/request"
	"github.com/mcoot/lobbyengine/internal/api/response"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/services/lobby"
)

const defaultResetReason = "administrative reset"

// MatchHandler serves the administrative lobby endpoints
type MatchHandler struct {
	coordinator *lobby.Coordinator
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(coordinator *lobby.Coordinator) *MatchHandler {
	return &MatchHandler{
		coordinator: coordinator,
	}
}

// Create handles POST /matches
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	profiles := make([]model.UserProfile, 0, len(req.Players))
	for _, p := range req.Players {
		profiles = append(profiles, p.Profile())
	}

	l, err := h.coordinator.CreateLobby(r.Context(), profiles, req.Options())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.MatchFromModel(l))
}

// Get handles GET /matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, err := h.coordinator.State(r.Context(), lobbyID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(l))
}

// FillBots handles POST /matches/{id}/fill-bots
func (h *MatchHandler) FillBots(w http.ResponseWriter, r *http.Request) {
	l, err := h.coordinator.FillBots(r.Context(), lobbyID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(l))
}

// RetryAllocation handles POST /matches/{id}/retry-allocation
func (h *MatchHandler) RetryAllocation(w http.ResponseWriter, r *http.Request) {
	l, err := h.coordinator.RetryAllocation(r.Context(), lobbyID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusAccepted, response.MatchFromModel(l))
}

// Reset handles POST /matches/{id}/reset. The body is optional.
func (h *MatchHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req request.ResetMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Reason == "" {
		req.Reason = defaultResetReason
	}

	l, err := h.coordinator.Reset(r.Context(), lobbyID(r), req.Reason)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(l))
}

// Complete handles POST /matches/{id}/complete
func (h *MatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	l, err := h.coordinator.Complete(r.Context(), lobbyID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MatchFromModel(l))
}

func lobbyID(r *http.Request) model.LobbyID {
	return model.LobbyID(mux.Vars(r)["id"])
}

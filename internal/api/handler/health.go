package handler

import (
	"net/http"

	"github.com/mcoot/lobbyengine/internal/api/response"
)

// Stats reports live counters for the health probe
type Stats interface {
	ActiveActors() int
	Connections() int
	Queued() int
}

// HealthHandler serves the liveness probe
type HealthHandler struct {
	stats Stats
}

// NewHealthHandler creates a new health handler. stats may be nil.
func NewHealthHandler(stats Stats) *HealthHandler {
	return &HealthHandler{stats: stats}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	resp := response.HealthResponse{Status: "ok"}
	if h.stats != nil {
		resp.ActiveLobbies = h.stats.ActiveActors()
		resp.Connections = h.stats.Connections()
		resp.Queued = h.stats.Queued()
	}
	response.JSON(w, http.StatusOK, resp)
}

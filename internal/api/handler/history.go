package handler

import (
	"net/http"
	"strconv"

	"github.com/mcoot/lobbyengine/internal/api/response"
	"github.com/mcoot/lobbyengine/internal/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// HistoryHandler serves the match archive
type HistoryHandler struct {
	archive storage.MatchArchive
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(archive storage.MatchArchive) *HistoryHandler {
	return &HistoryHandler{
		archive: archive,
	}
}

// List handles GET /history?limit=N
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	matches, err := h.archive.ListMatches(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.HistoryFromModel(matches))
}

// Get handles GET /history/{id}
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, err := h.archive.GetMatch(r.Context(), lobbyID(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, match)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/lobbyengine/internal/api/request"
	"github.com/mcoot/lobbyengine/internal/api/response"
	"github.com/mcoot/lobbyengine/internal/services/allocator"
)

// AllocatorHandler receives allocator acknowledgements
type AllocatorHandler struct {
	bridge *allocator.Bridge
}

// NewAllocatorHandler creates a new allocator webhook handler
func NewAllocatorHandler(bridge *allocator.Bridge) *AllocatorHandler {
	return &AllocatorHandler{
		bridge: bridge,
	}
}

// Webhook handles POST /allocator/webhook
func (h *AllocatorHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req request.AllocatorWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if err := h.bridge.Resolve(req.Ack()); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

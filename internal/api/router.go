package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/lobbyengine/internal/api/handler"
	"github.com/mcoot/lobbyengine/internal/api/middleware"
	"github.com/mcoot/lobbyengine/internal/services/allocator"
	"github.com/mcoot/lobbyengine/internal/services/auth"
	"github.com/mcoot/lobbyengine/internal/services/lobby"
	"github.com/mcoot/lobbyengine/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Coordinator *lobby.Coordinator
	Archive     storage.MatchArchive
	Bridge      *allocator.Bridge
	// WSHandler serves GET /ws. Optional.
	WSHandler http.Handler
	// Stats feeds the health probe. Optional.
	Stats handler.Stats
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	healthHandler := handler.NewHealthHandler(cfg.Stats)
	matchHandler := handler.NewMatchHandler(cfg.Coordinator)
	historyHandler := handler.NewHistoryHandler(cfg.Archive)
	allocatorHandler := handler.NewAllocatorHandler(cfg.Bridge)

	// Create middleware
	adminMiddleware := middleware.AdminAuth(cfg.AuthService)
	webhookMiddleware := middleware.WebhookAuth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	// Websocket endpoint. Identity comes from the REGISTER message.
	if cfg.WSHandler != nil {
		r.Handle("/ws", cfg.WSHandler).Methods(http.MethodGet)
	}

	// Match administration (admin bearer)
	matches := r.PathPrefix("/matches").Subrouter()
	matches.Use(adminMiddleware)
	matches.HandleFunc("", matchHandler.Create).Methods(http.MethodPost)
	matches.HandleFunc("/{id}", matchHandler.Get).Methods(http.MethodGet)
	matches.HandleFunc("/{id}/fill-bots", matchHandler.FillBots).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/retry-allocation", matchHandler.RetryAllocation).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/reset", matchHandler.Reset).Methods(http.MethodPost)
	matches.HandleFunc("/{id}/complete", matchHandler.Complete).Methods(http.MethodPost)

	// Match history (admin bearer)
	history := r.PathPrefix("/history").Subrouter()
	history.Use(adminMiddleware)
	history.HandleFunc("", historyHandler.List).Methods(http.MethodGet)
	history.HandleFunc("/{id}", historyHandler.Get).Methods(http.MethodGet)

	// Allocator callbacks (signed allocator token)
	allocatorRoutes := r.PathPrefix("/allocator").Subrouter()
	allocatorRoutes.Use(webhookMiddleware)
	allocatorRoutes.HandleFunc("/webhook", allocatorHandler.Webhook).Methods(http.MethodPost)

	return r
}

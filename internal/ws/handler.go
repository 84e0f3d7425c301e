// Package ws serves the player-facing websocket endpoint and dispatches decoded
// client messages to the queue and lobby coordinator.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/lobbyengine/internal/dependencies/clock"
	"github.com/mcoot/lobbyengine/internal/registry"
	"github.com/mcoot/lobbyengine/internal/services/lobby"
	"github.com/mcoot/lobbyengine/internal/services/queue"
)

// Config holds websocket transport settings
type Config struct {
	// WriteWait bounds each frame write
	WriteWait time.Duration
	// PongWait is how long the peer may stay silent before the read fails
	PongWait time.Duration
	// PingPeriod must be shorter than PongWait
	PingPeriod time.Duration
	// MaxMessageSize closes the connection on larger inbound frames
	MaxMessageSize int64
	// SendBufferSize bounds the outbound queue per handle
	SendBufferSize int
	// CommandTimeout bounds the handling of one inbound message
	CommandTimeout time.Duration
	// CheckOrigin overrides the upgrader's origin policy. nil accepts every origin.
	CheckOrigin func(r *http.Request) bool
}

// DefaultConfig returns default websocket configuration
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBufferSize: 256,
		CommandTimeout: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = d.SendBufferSize
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = d.CommandTimeout
	}
	if c.CheckOrigin == nil {
		c.CheckOrigin = func(*http.Request) bool { return true }
	}
	return c
}

// Handler upgrades HTTP requests and runs one read loop per connection
type Handler struct {
	registry *registry.Registry
	queue    *queue.Queue
	lobbies  *lobby.Coordinator
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

// NewHandler creates a websocket Handler
func NewHandler(reg *registry.Registry, q *queue.Queue, lobbies *lobby.Coordinator, clk clock.Clock, cfg Config, logger *slog.Logger) *Handler {
	cfg = cfg.withDefaults()
	return &Handler{
		registry: reg,
		queue:    q,
		lobbies:  lobbies,
		clock:    clk,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		clients: make(map[*Client]struct{}),
	}
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the HTTP error
		h.logger.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(conn, h.cfg, h.clock.Now())
	if !h.track(client) {
		client.Close()
		client.writeLoop()
		return
	}

	h.logger.Info("websocket connected",
		slog.String("conn_id", client.id),
		slog.String("remote_addr", r.RemoteAddr),
	)

	go client.writeLoop()
	h.readLoop(client)
}

func (h *Handler) track(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Handler) untrack(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// readLoop runs until the peer goes away or sends something the transport cannot
// frame. Rejected messages are answered and never end the loop.
func (h *Handler) readLoop(c *Client) {
	defer h.disconnect(c)

	c.conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrReadLimit) {
				h.logger.Debug("websocket read failed",
					slog.String("conn_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		if messageType != websocket.TextMessage {
			h.logger.Info("closing connection after binary frame", slog.String("conn_id", c.id))
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.CommandTimeout)
		h.handleFrame(ctx, c, data)
		cancel()
	}
}

func (h *Handler) disconnect(c *Client) {
	c.Close()
	h.untrack(c)

	userID, remaining := h.registry.Unregister(c)
	if userID != "" && remaining == 0 {
		h.queue.UserDisconnected(userID)
	}

	h.logger.Info("websocket disconnected",
		slog.String("conn_id", c.id),
		slog.String("user_id", string(userID)),
		slog.Duration("connection_duration", h.clock.Now().Sub(c.connectedAt)),
	)
}

// Close disconnects every live handle and refuses new ones
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}

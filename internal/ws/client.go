package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one websocket handle. Frames queued with Send are written by the
// client's own write loop so a slow peer never blocks a broadcaster.
type Client struct {
	id          string
	conn        *websocket.Conn
	cfg         Config
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	connectedAt time.Time
}

func newClient(conn *websocket.Conn, cfg Config, now time.Time) *Client {
	return &Client{
		id:          uuid.NewString(),
		conn:        conn,
		cfg:         cfg,
		send:        make(chan []byte, cfg.SendBufferSize),
		done:        make(chan struct{}),
		connectedAt: now,
	}
}

// ID identifies the handle in the registry
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame. It returns false if the buffer is full or the client is closed.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close stops the write loop, which then closes the socket
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writeLoop drains the send buffer and keeps the connection alive with pings
func (c *Client) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		}
	}
}

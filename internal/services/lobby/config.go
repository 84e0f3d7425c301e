package lobby

import (
	"slices"
	"time"

	"github.com/mcoot/lobbyengine/internal/model"
)

// Config holds lobby lifecycle settings
type Config struct {
	// ReadyCheckTimeout is how long a full lobby waits for every player to ready up
	ReadyCheckTimeout time.Duration
	// MapBanTurnTimeout is the time budget per ban before the server bans on the team's behalf
	MapBanTurnTimeout time.Duration
	// MapPool is the catalog offered to the ban phase, in auto-ban order
	MapPool []string
	// InboxSize bounds the per-lobby command queue
	InboxSize int
	// PersistTimeout bounds each snapshot write
	PersistTimeout time.Duration
}

// DefaultConfig returns default lobby configuration
func DefaultConfig() Config {
	return Config{
		ReadyCheckTimeout: 30 * time.Second,
		MapBanTurnTimeout: 20 * time.Second,
		MapPool:           slices.Clone(model.DefaultMapPool),
		InboxSize:         64,
		PersistTimeout:    5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadyCheckTimeout <= 0 {
		c.ReadyCheckTimeout = d.ReadyCheckTimeout
	}
	if c.MapBanTurnTimeout <= 0 {
		c.MapBanTurnTimeout = d.MapBanTurnTimeout
	}
	c.MapPool = model.NormalizeMapPool(c.MapPool)
	if len(c.MapPool) < 2 {
		c.MapPool = d.MapPool
	}
	if c.InboxSize <= 0 {
		c.InboxSize = d.InboxSize
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = d.PersistTimeout
	}
	return c
}

package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// KeyPrefix namespaces every key written by this service
	KeyPrefix string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// LobbyTTL is refreshed on every write of an active lobby
	LobbyTTL time.Duration
	// FinishedLobbyTTL bounds how long completed or cancelled snapshots stay readable
	FinishedLobbyTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:              "redis://localhost:6379",
		KeyPrefix:        "lobbyengine",
		PoolSize:         10,
		MinIdleConns:     2,
		LobbyTTL:         24 * time.Hour,
		FinishedLobbyTTL: time.Hour,
	}
}

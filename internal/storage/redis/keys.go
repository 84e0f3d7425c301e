package redis

import (
	"fmt"

	"github.com/mcoot/lobbyengine/internal/model"
)

// keyspace builds every key under a configured prefix
type keyspace struct {
	prefix string
}

// lobbyKey returns the Redis key for a lobby snapshot
func (k keyspace) lobbyKey(id model.LobbyID) string {
	return fmt.Sprintf("%s:lobby:%s", k.prefix, id)
}

// userLobbyKey returns the Redis key for the user -> active lobby index
func (k keyspace) userLobbyKey(id model.UserID) string {
	return fmt.Sprintf("%s:idx:user_lobby:%s", k.prefix, id)
}

// activeLobbiesKey returns the Redis key for the SET of non-terminal lobby ids
func (k keyspace) activeLobbiesKey() string {
	return fmt.Sprintf("%s:idx:active_lobbies", k.prefix)
}

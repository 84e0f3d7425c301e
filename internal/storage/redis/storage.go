package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/storage"
)

// Both scripts release user index entries only while they still point at ARGV[1],
// so a finished lobby never clears a membership claimed by a newer one.
// KEYS: snapshot, active set, then one user index key per human player.
const releaseMembersLua = `
for i = 3, #KEYS do
	if redis.call("GET", KEYS[i]) == ARGV[1] then
		redis.call("DEL", KEYS[i])
	end
end
return 0
`

// finishLobby writes a terminal snapshot (ARGV[2], TTL ARGV[3] ms) and releases its indexes in one step
var finishLobby = redis.NewScript(`
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
redis.call("SREM", KEYS[2], ARGV[1])
` + releaseMembersLua)

// dropLobby removes a snapshot and every index entry still pointing at it
var dropLobby = redis.NewScript(`
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
` + releaseMembersLua)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	keys   keyspace
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing and for sharing with the bus)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   keyspace{prefix: cfg.KeyPrefix},
	}
}

// Client exposes the underlying connection
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveLobby(ctx context.Context, lobby *model.Lobby) error {
	data, err := json.Marshal(lobby)
	if err != nil {
		return err
	}

	humans := lobby.HumanIDs()

	if lobby.Status.IsTerminal() {
		ttl := strconv.FormatInt(s.cfg.FinishedLobbyTTL.Milliseconds(), 10)
		return finishLobby.Run(ctx, s.client, s.lobbyKeys(lobby.ID, humans), string(lobby.ID), data, ttl).Err()
	}

	// Snapshot and indexes are written in one MULTI so readers never see them disagree
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.lobbyKey(lobby.ID), data, s.cfg.LobbyTTL)
	pipe.SAdd(ctx, s.keys.activeLobbiesKey(), string(lobby.ID))
	for _, id := range humans {
		pipe.Set(ctx, s.keys.userLobbyKey(id), string(lobby.ID), s.cfg.LobbyTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetLobby(ctx context.Context, id model.LobbyID) (*model.Lobby, error) {
	data, err := s.client.Get(ctx, s.keys.lobbyKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLobbyNotFound
		}
		return nil, err
	}

	var lobby model.Lobby
	if err := json.Unmarshal(data, &lobby); err != nil {
		return nil, err
	}
	return &lobby, nil
}

// DeleteLobby removes a snapshot and drops the lobby from every index. It also
// prunes an id whose snapshot already expired; only the user entries of a
// readable snapshot can be released, the rest age out with their TTL.
func (s *Storage) DeleteLobby(ctx context.Context, id model.LobbyID) error {
	var humans []model.UserID
	lobby, err := s.GetLobby(ctx, id)
	switch {
	case err == nil:
		humans = lobby.HumanIDs()
	case !errors.Is(err, model.ErrLobbyNotFound):
		return err
	}
	return dropLobby.Run(ctx, s.client, s.lobbyKeys(id, humans), string(id)).Err()
}

func (s *Storage) lobbyKeys(id model.LobbyID, humans []model.UserID) []string {
	keys := make([]string, 0, len(humans)+2)
	keys = append(keys, s.keys.lobbyKey(id), s.keys.activeLobbiesKey())
	for _, uid := range humans {
		keys = append(keys, s.keys.userLobbyKey(uid))
	}
	return keys
}

func (s *Storage) ActiveLobbyFor(ctx context.Context, userID model.UserID) (model.LobbyID, error) {
	id, err := s.client.Get(ctx, s.keys.userLobbyKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return model.LobbyID(id), nil
}

func (s *Storage) ListActiveLobbies(ctx context.Context) ([]model.LobbyID, error) {
	members, err := s.client.SMembers(ctx, s.keys.activeLobbiesKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	ids := make([]model.LobbyID, 0, len(members))
	for _, m := range members {
		ids = append(ids, model.LobbyID(m))
	}
	return ids, nil
}

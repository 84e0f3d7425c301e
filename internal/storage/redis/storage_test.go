package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/testutil"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.KeyPrefix = "test"
	cfg.LobbyTTL = time.Hour
	cfg.FinishedLobbyTTL = time.Minute

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestSaveAndGetLobby() {
	lobby := testutil.Lobby("lobby-1")
	lobby.Version = 3

	err := s.storage.SaveLobby(s.ctx, lobby)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetLobby(s.ctx, "lobby-1")
	s.Require().NoError(err)
	s.Equal(lobby.ID, retrieved.ID)
	s.Equal(3, retrieved.Version)
	s.Len(retrieved.Players, model.Quorum)
}

func (s *StorageSuite) TestSnapshotUsesPrefixedKey() {
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("lobby-1"))

	s.True(s.mini.Exists("test:lobby:lobby-1"))
	s.True(s.mini.Exists("test:idx:user_lobby:u0"))
}

func (s *StorageSuite) TestGetLobbyNotFound() {
	_, err := s.storage.GetLobby(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *StorageSuite) TestActiveLobbyTTL() {
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("lobby-1"))

	s.Equal(time.Hour, s.mini.TTL(s.storage.keys.lobbyKey("lobby-1")))
	s.Equal(time.Hour, s.mini.TTL(s.storage.keys.userLobbyKey("u0")))
}

func (s *StorageSuite) TestFinishedLobbyTTLAndRelease() {
	lobby := testutil.Lobby("lobby-1")
	_ = s.storage.SaveLobby(s.ctx, lobby)

	lobby.Status = model.LobbyStatusCompleted
	s.Require().NoError(s.storage.SaveLobby(s.ctx, lobby))

	s.Equal(time.Minute, s.mini.TTL(s.storage.keys.lobbyKey("lobby-1")))

	id, err := s.storage.ActiveLobbyFor(s.ctx, "u0")
	s.Require().NoError(err)
	s.Empty(id)

	active, err := s.storage.ListActiveLobbies(s.ctx)
	s.Require().NoError(err)
	s.Empty(active)
}

func (s *StorageSuite) TestFinishedLobbyKeepsNewerMembership() {
	old := testutil.Lobby("lobby-old")
	_ = s.storage.SaveLobby(s.ctx, old)
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("lobby-new"))

	old.Status = model.LobbyStatusCancelled
	s.Require().NoError(s.storage.SaveLobby(s.ctx, old))

	id, err := s.storage.ActiveLobbyFor(s.ctx, "u0")
	s.Require().NoError(err)
	s.Equal(model.LobbyID("lobby-new"), id)
}

func (s *StorageSuite) TestListActiveLobbiesSorted() {
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("b"))
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("a"))

	active, err := s.storage.ListActiveLobbies(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.LobbyID{"a", "b"}, active)
}

func (s *StorageSuite) TestDeleteLobby() {
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("lobby-1"))

	s.Require().NoError(s.storage.DeleteLobby(s.ctx, "lobby-1"))

	_, err := s.storage.GetLobby(s.ctx, "lobby-1")
	s.ErrorIs(err, model.ErrLobbyNotFound)
	id, _ := s.storage.ActiveLobbyFor(s.ctx, "u0")
	s.Empty(id)

	// Deleting twice is a no-op
	s.NoError(s.storage.DeleteLobby(s.ctx, "lobby-1"))
}

func (s *StorageSuite) TestDeleteLobbyPrunesExpiredSnapshot() {
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("lobby-1"))
	s.mini.Del(s.storage.keys.lobbyKey("lobby-1"))

	s.Require().NoError(s.storage.DeleteLobby(s.ctx, "lobby-1"))

	active, err := s.storage.ListActiveLobbies(s.ctx)
	s.Require().NoError(err)
	s.Empty(active)
}

func (s *StorageSuite) TestFinishedLobbySavesInOneCommand() {
	warm := testutil.Lobby("lobby-warm")
	warm.Status = model.LobbyStatusCancelled
	s.Require().NoError(s.storage.SaveLobby(s.ctx, warm))

	lobby := testutil.Lobby("lobby-1")
	_ = s.storage.SaveLobby(s.ctx, lobby)

	counter := &commandCounter{}
	s.storage.Client().AddHook(counter)

	lobby.Status = model.LobbyStatusCompleted
	s.Require().NoError(s.storage.SaveLobby(s.ctx, lobby))

	s.Equal(1, counter.commands)
	s.Equal(0, counter.pipelines)
	s.Equal(time.Minute, s.mini.TTL(s.storage.keys.lobbyKey("lobby-1")))
	s.False(s.mini.Exists(s.storage.keys.userLobbyKey("u0")))
}

func (s *StorageSuite) TestSaveFailsWhenServerDown() {
	s.mini.Close()
	s.mini = nil

	err := s.storage.SaveLobby(s.ctx, testutil.Lobby("lobby-1"))
	s.Error(err)
}

type commandCounter struct {
	commands  int
	pipelines int
}

func (c *commandCounter) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (c *commandCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		c.commands++
		return next(ctx, cmd)
	}
}

func (c *commandCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		c.pipelines++
		return next(ctx, cmds)
	}
}

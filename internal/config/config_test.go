package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/lobbyengine/internal/model"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("ALLOCATOR_WEBHOOK_SECRET", "secret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, BackendMemory, cfg.StorageType)
	assert.Equal(t, BackendMemory, cfg.BusType)
	assert.Equal(t, 30*time.Second, cfg.ReadyCheckTimeout)
	assert.Equal(t, 20*time.Second, cfg.MapBanTurnTimeout)
	assert.Equal(t, 15*time.Second, cfg.AllocatorTimeout)
	assert.Equal(t, time.Minute, cfg.QueueDisconnectGrace)
	assert.Equal(t, model.DefaultMapPool, cfg.MapPool)
	assert.Empty(t, cfg.Moderators())
	assert.Equal(t, BotStrategyFirst, cfg.BotStrategy)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("ALLOCATOR_WEBHOOK_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_TYPE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("READY_CHECK_TIMEOUT", "45s")
	t.Setenv("MAP_POOL", "Bank,Kafe,Oregon")
	t.Setenv("MODERATOR_IDS", "mod1, mod2")
	t.Setenv("ADMIN_IDS", "boss")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendRedis, cfg.StorageType)
	assert.Equal(t, 45*time.Second, cfg.ReadyCheckTimeout)
	assert.Equal(t, []string{"Bank", "Kafe", "Oregon"}, cfg.MapPool)
	assert.Equal(t, []model.UserID{"mod1", "mod2"}, cfg.Moderators())
	assert.Equal(t, []model.UserID{"boss"}, cfg.Admins())

	level, _ := cfg.SlogLevel()
	assert.Equal(t, slog.LevelDebug, level)
}

func TestValidateRejectsRedisWithoutURL(t *testing.T) {
	t.Setenv("ALLOCATOR_WEBHOOK_SECRET", "secret")
	t.Setenv("BUS_TYPE", "redis")

	_, err := Parse()
	assert.ErrorContains(t, err, "REDIS_URL")
}

func TestValidateRequiresWebhookSecret(t *testing.T) {
	t.Setenv("ALLOCATOR_WEBHOOK_SECRET", "")

	_, err := Parse()
	assert.ErrorContains(t, err, "ALLOCATOR_WEBHOOK_SECRET")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Config{
		Port:        0,
		LogLevel:    "loud",
		StorageType: "postgres",
		BusType:     BackendMemory,
		MapPool:     []string{"Kafe"},
		BotEloMin:   1500,
		BotEloMax:   1000,
		BotStrategy: "clever",
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"PORT", "LOG_LEVEL", "STORAGE_TYPE", "MAP_POOL", "BOT_ELO_MAX", "BOT_STRATEGY", "READY_CHECK_TIMEOUT"} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidateRejectsRepeatedOrBlankMaps(t *testing.T) {
	t.Setenv("ALLOCATOR_WEBHOOK_SECRET", "secret")

	t.Setenv("MAP_POOL", "Kafe,Kafe,Bank")
	_, err := Parse()
	assert.ErrorContains(t, err, `MAP_POOL lists "Kafe" more than once`)

	t.Setenv("MAP_POOL", "Kafe, ,Bank")
	_, err = Parse()
	assert.ErrorContains(t, err, "MAP_POOL entry 2 is blank")

	t.Setenv("MAP_POOL", "Kafe, Kafe")
	_, err = Parse()
	assert.ErrorContains(t, err, "at least two distinct maps")
}

func TestParseTrimsMapNames(t *testing.T) {
	t.Setenv("ALLOCATOR_WEBHOOK_SECRET", "secret")
	t.Setenv("MAP_POOL", "Bank, Kafe ,Oregon")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bank", "Kafe", "Oregon"}, cfg.MapPool)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ALLOCATOR_WEBHOOK_SECRET=from-file\nPORT=7000\n"), 0o600))
	t.Setenv("PORT", "7001")
	t.Cleanup(func() { _ = os.Unsetenv("ALLOCATOR_WEBHOOK_SECRET") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.AllocatorWebhookSecret)
	assert.Equal(t, 7001, cfg.Port)
}

func TestLoadMissingFileIsFine(t *testing.T) {
	t.Setenv("ALLOCATOR_WEBHOOK_SECRET", "secret")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

// Package config loads server settings from the environment
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/mcoot/lobbyengine/internal/model"
)

// Backend selectors
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Bot strategies
const (
	BotStrategyFirst  = "first"
	BotStrategyRandom = "random"
)

// Config is the complete server configuration
type Config struct {
	Host     string `env:"HOST" envDefault:""`
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StorageType    string        `env:"STORAGE_TYPE" envDefault:"memory"`
	BusType        string        `env:"BUS_TYPE" envDefault:"memory"`
	RedisURL       string        `env:"REDIS_URL"`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX" envDefault:"lobbyengine"`
	LobbyTTL       time.Duration `env:"LOBBY_TTL" envDefault:"24h"`
	ArchivePath    string        `env:"ARCHIVE_PATH" envDefault:""`

	ReadyCheckTimeout    time.Duration `env:"READY_CHECK_TIMEOUT" envDefault:"30s"`
	MapBanTurnTimeout    time.Duration `env:"MAP_BAN_TURN_TIMEOUT" envDefault:"20s"`
	AllocatorTimeout     time.Duration `env:"ALLOCATOR_TIMEOUT" envDefault:"15s"`
	QueueDisconnectGrace time.Duration `env:"QUEUE_DISCONNECT_GRACE" envDefault:"60s"`
	MapPool              []string      `env:"MAP_POOL" envSeparator:"," envDefault:"Bank,Border,Chalet,Clubhouse,Coastline,Consulate,Kafe"`

	BotEloMin   int    `env:"BOT_ELO_MIN" envDefault:"1000"`
	BotEloMax   int    `env:"BOT_ELO_MAX" envDefault:"1500"`
	BotStrategy string `env:"BOT_STRATEGY" envDefault:"first"`

	AdminTokenHash         string   `env:"ADMIN_TOKEN_HASH"`
	AllocatorWebhookSecret string   `env:"ALLOCATOR_WEBHOOK_SECRET"`
	ModeratorIDs           []string `env:"MODERATOR_IDS" envSeparator:","`
	AdminIDs               []string `env:"ADMIN_IDS" envSeparator:","`
}

// Load reads an optional .env file and then the process environment. Variables already
// set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the process environment only
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.MapPool = model.NormalizeMapPool(cfg.MapPool)
	return cfg, nil
}

// Validate rejects inconsistent settings
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	for key, v := range map[string]string{"STORAGE_TYPE": c.StorageType, "BUS_TYPE": c.BusType} {
		if v != BackendMemory && v != BackendRedis {
			errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", key, BackendMemory, BackendRedis, v))
		}
	}
	if (c.StorageType == BackendRedis || c.BusType == BackendRedis) && c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required when STORAGE_TYPE or BUS_TYPE is redis"))
	}
	if c.AllocatorWebhookSecret == "" {
		errs = append(errs, errors.New("ALLOCATOR_WEBHOOK_SECRET is required"))
	}
	seen := make(map[string]bool, len(c.MapPool))
	for i, m := range c.MapPool {
		m = strings.TrimSpace(m)
		switch {
		case m == "":
			errs = append(errs, fmt.Errorf("MAP_POOL entry %d is blank", i+1))
		case seen[m]:
			errs = append(errs, fmt.Errorf("MAP_POOL lists %q more than once", m))
		}
		seen[m] = true
	}
	if len(model.NormalizeMapPool(c.MapPool)) < 2 {
		errs = append(errs, errors.New("MAP_POOL needs at least two distinct maps"))
	}
	if c.BotEloMax <= c.BotEloMin {
		errs = append(errs, fmt.Errorf("BOT_ELO_MAX (%d) must exceed BOT_ELO_MIN (%d)", c.BotEloMax, c.BotEloMin))
	}
	if c.BotStrategy != BotStrategyFirst && c.BotStrategy != BotStrategyRandom {
		errs = append(errs, fmt.Errorf("BOT_STRATEGY must be %q or %q, got %q", BotStrategyFirst, BotStrategyRandom, c.BotStrategy))
	}
	for key, d := range map[string]time.Duration{
		"READY_CHECK_TIMEOUT":    c.ReadyCheckTimeout,
		"MAP_BAN_TURN_TIMEOUT":   c.MapBanTurnTimeout,
		"ALLOCATOR_TIMEOUT":      c.AllocatorTimeout,
		"QUEUE_DISCONNECT_GRACE": c.QueueDisconnectGrace,
		"LOBBY_TTL":              c.LobbyTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}

	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL onto a slog level
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Moderators returns the configured moderator user ids
func (c Config) Moderators() []model.UserID {
	return userIDs(c.ModeratorIDs)
}

// Admins returns the configured admin user ids
func (c Config) Admins() []model.UserID {
	return userIDs(c.AdminIDs)
}

func userIDs(raw []string) []model.UserID {
	ids := make([]model.UserID, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			ids = append(ids, model.UserID(r))
		}
	}
	return ids
}

// Addr returns the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

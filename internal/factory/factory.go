package factory

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/lobbyengine/internal/api"
	"github.com/mcoot/lobbyengine/internal/bus"
	busmemory "github.com/mcoot/lobbyengine/internal/bus/memory"
	busredis "github.com/mcoot/lobbyengine/internal/bus/redis"
	"github.com/mcoot/lobbyengine/internal/config"
	"github.com/mcoot/lobbyengine/internal/dependencies/clock"
	"github.com/mcoot/lobbyengine/internal/dependencies/random"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/registry"
	"github.com/mcoot/lobbyengine/internal/services/allocator"
	"github.com/mcoot/lobbyengine/internal/services/auth"
	"github.com/mcoot/lobbyengine/internal/services/bot"
	"github.com/mcoot/lobbyengine/internal/services/lobby"
	"github.com/mcoot/lobbyengine/internal/services/queue"
	"github.com/mcoot/lobbyengine/internal/storage"
	"github.com/mcoot/lobbyengine/internal/storage/memory"
	redisstorage "github.com/mcoot/lobbyengine/internal/storage/redis"
	"github.com/mcoot/lobbyengine/internal/storage/sqlite"
	"github.com/mcoot/lobbyengine/internal/ws"
)

// Backend type constants
const (
	StorageTypeMemory = config.BackendMemory
	StorageTypeRedis  = config.BackendRedis
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage
	Archive storage.MatchArchive
	Bus     bus.Bus

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry    *registry.Registry
	Queue       *queue.Queue
	Coordinator *lobby.Coordinator
	Bridge      *allocator.Bridge
	BotService  *bot.Service
	AuthService *auth.Service
	WSHandler   *ws.Handler

	logger  *slog.Logger
	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the snapshot store ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// BusType selects the allocator transport ("memory" or "redis")
	// If empty, defaults to "memory"
	BusType string
	// RedisConfig holds Redis connection settings (required if either backend is "redis")
	RedisConfig *redisstorage.Config
	// ArchivePath is the SQLite file for match history. Empty keeps it in memory.
	ArchivePath string

	AuthConfig      auth.Config
	LobbyConfig     lobby.Config
	QueueConfig     queue.Config
	AllocatorConfig allocator.Config
	BotConfig       bot.Config
	WSConfig        ws.Config
	// BotStrategy is "first" (default) or "random"
	BotStrategy string

	Moderators []model.UserID
	Admins     []model.UserID
}

// ConfigFromEnv maps the environment configuration onto factory settings
func ConfigFromEnv(env config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:      logger,
		StorageType: env.StorageType,
		BusType:     env.BusType,
		ArchivePath: env.ArchivePath,
		AuthConfig: auth.Config{
			AdminTokenHash: env.AdminTokenHash,
			WebhookSecret:  env.AllocatorWebhookSecret,
			WebhookLeeway:  auth.DefaultConfig().WebhookLeeway,
		},
		LobbyConfig: lobby.Config{
			ReadyCheckTimeout: env.ReadyCheckTimeout,
			MapBanTurnTimeout: env.MapBanTurnTimeout,
			MapPool:           env.MapPool,
		},
		QueueConfig:     queue.Config{DisconnectGrace: env.QueueDisconnectGrace},
		AllocatorConfig: allocator.Config{Timeout: env.AllocatorTimeout},
		BotConfig:       bot.Config{EloMin: env.BotEloMin, EloMax: env.BotEloMax},
		BotStrategy:     env.BotStrategy,
		WSConfig:        ws.DefaultConfig(),
		Moderators:      env.Moderators(),
		Admins:          env.Admins(),
	}
	if env.StorageType == StorageTypeRedis || env.BusType == StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = env.RedisURL
		redisCfg.KeyPrefix = env.RedisKeyPrefix
		redisCfg.LobbyTTL = env.LobbyTTL
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cmp.Or(cfg.StorageType, StorageTypeMemory)
	busType := cmp.Or(cfg.BusType, StorageTypeMemory)
	for _, t := range []string{storageType, busType} {
		if t != StorageTypeMemory && t != StorageTypeRedis {
			return nil, fmt.Errorf("invalid backend %q: must be 'memory' or 'redis'", t)
		}
	}

	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	var redisStore *redisstorage.Storage
	if storageType == StorageTypeRedis || busType == StorageTypeRedis {
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when a backend is redis")
		}
		s, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		redisStore = s
		closers = append(closers, s)
	}

	var store storage.Storage = memory.New()
	if storageType == StorageTypeRedis {
		store = redisStore
	}

	var b bus.Bus = busmemory.New()
	if busType == StorageTypeRedis {
		b = busredis.New(redisStore.Client(), cfg.RedisConfig.KeyPrefix, logger)
	}

	archivePath := cmp.Or(cfg.ArchivePath, sqlite.MemoryPath)
	archive, err := sqlite.Open(archivePath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("open archive: %w", err)
	}
	closers = append(closers, archive)

	authCfg := cfg.AuthConfig
	if authCfg.WebhookLeeway == 0 {
		authCfg.WebhookLeeway = auth.DefaultConfig().WebhookLeeway
	}
	cfg.AuthConfig = authCfg

	rnd := random.New()
	deps := dependencies{
		store:    store,
		archive:  archive,
		bus:      b,
		clock:    clock.New(),
		random:   rnd,
		strategy: botStrategy(cfg.BotStrategy, rnd),
	}
	app := newWithDependencies(deps, cfg, logger)
	app.closers = closers
	return app, nil
}

// dependencies are the swappable leaves of the object graph
type dependencies struct {
	store    storage.Storage
	archive  storage.MatchArchive
	bus      bus.Bus
	clock    clock.Clock
	random   random.Random
	strategy bot.Strategy
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies, cfg Config, logger *slog.Logger) *App {
	reg := registry.New(cfg.Moderators, cfg.Admins, logger)
	bridge := allocator.New(deps.bus, deps.clock, cfg.AllocatorConfig, logger)
	botService := bot.NewService(deps.strategy, deps.clock, deps.random, cfg.BotConfig, logger)
	coordinator := lobby.NewCoordinator(deps.store, deps.archive, reg, bridge, botService, deps.clock, cfg.LobbyConfig, logger)
	bridge.OnResult(coordinator.DeliverAllocation)
	q := queue.New(deps.store, coordinator, deps.clock, cfg.QueueConfig, logger)
	authService := auth.New(deps.clock, cfg.AuthConfig)
	wsHandler := ws.NewHandler(reg, q, coordinator, deps.clock, cfg.WSConfig, logger)

	return &App{
		Storage:     deps.store,
		Archive:     deps.archive,
		Bus:         deps.bus,
		Clock:       deps.clock,
		Random:      deps.random,
		Registry:    reg,
		Queue:       q,
		Coordinator: coordinator,
		Bridge:      bridge,
		BotService:  botService,
		AuthService: authService,
		WSHandler:   wsHandler,
		logger:      logger,
	}
}

// Router builds the HTTP surface: API routes plus the websocket endpoint
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.logger,
		AuthService: a.AuthService,
		Coordinator: a.Coordinator,
		Archive:     a.Archive,
		Bridge:      a.Bridge,
		WSHandler:   a.WSHandler,
		Stats:       a,
	})
}

// ActiveActors reports the number of live lobby actors
func (a *App) ActiveActors() int {
	return a.Coordinator.ActiveActors()
}

// Connections reports the number of registered websocket handles
func (a *App) Connections() int {
	return a.Registry.Connections()
}

// Queued reports the number of players waiting in the queue
func (a *App) Queued() int {
	return a.Queue.Len()
}

// Close stops live connections and actors, then releases backend connections
func (a *App) Close() error {
	a.WSHandler.Close()
	a.Coordinator.Close()

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func botStrategy(name string, rnd random.Random) bot.Strategy {
	if name == config.BotStrategyRandom {
		return bot.NewRandomStrategy(rnd)
	}
	return bot.NewFirstChoiceStrategy()
}

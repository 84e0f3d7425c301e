package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/lobbyengine/internal/api"
	"github.com/mcoot/lobbyengine/internal/config"
	"github.com/mcoot/lobbyengine/internal/factory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("addr", cfg.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.String("bus", cfg.BusType),
	)

	// Create application factory
	app, err := factory.New(factory.ConfigFromEnv(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bring back lobbies that were live when the previous process stopped
	restored, err := app.Coordinator.Restore(ctx)
	if err != nil {
		logger.Error("failed to restore lobbies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("restored lobbies", slog.Int("count", restored))

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(app.Router(), serverConfig, logger)
	server.OnShutdown(app.WSHandler.Close)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Bridge.Run(gctx)
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

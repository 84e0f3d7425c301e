// Package bot creates synthetic players and plays their captain turns
package bot

import (
	"fmt"
	"log/slog"

	"github.com/mcoot/lobbyengine/internal/dependencies/clock"
	"github.com/mcoot/lobbyengine/internal/dependencies/random"
	"github.com/mcoot/lobbyengine/internal/model"
)

const (
	// PlayerIDAlphabet is the character set for generating bot player IDs
	PlayerIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// PlayerIDLength is the length of the random part of a bot player ID
	PlayerIDLength = 12
	// PlayerIDPrefix marks a user id as synthetic
	PlayerIDPrefix = "bot-"
)

// Config holds bot settings
type Config struct {
	// EloMin and EloMax bound generated ratings, max exclusive
	EloMin int
	EloMax int
}

// DefaultConfig returns default bot configuration
func DefaultConfig() Config {
	return Config{
		EloMin: 1000,
		EloMax: 1500,
	}
}

// Service manages bot players
type Service struct {
	strategy Strategy
	clock    clock.Clock
	random   random.Random
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a new bot Service
func NewService(strategy Strategy, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) *Service {
	if cfg.EloMax <= cfg.EloMin {
		cfg = DefaultConfig()
	}
	return &Service{
		strategy: strategy,
		clock:    clk,
		random:   rnd,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "bot-service")),
	}
}

// NewPlayers creates n ready bot roster slots. Names continue from existingBots.
func (s *Service) NewPlayers(n, existingBots int) []model.LobbyPlayer {
	now := s.clock.Now()
	players := make([]model.LobbyPlayer, 0, n)
	for i := range n {
		players = append(players, model.LobbyPlayer{
			UserID:    model.UserID(PlayerIDPrefix + s.random.String(PlayerIDLength, PlayerIDAlphabet)),
			Username:  fmt.Sprintf("Bot %d", existingBots+i+1),
			EloRating: s.random.IntRange(s.cfg.EloMin, s.cfg.EloMax),
			Team:      model.TeamUnassigned,
			Role:      model.PlayerRoleMember,
			Ready:     true,
			IsBot:     true,
			JoinedAt:  now,
		})
	}
	return players
}

// ChoosePick returns the bot captain's draft pick
func (s *Service) ChoosePick(state *model.DraftState) model.UserID {
	return s.strategy.ChoosePick(state)
}

// ChooseBan returns the bot captain's map ban
func (s *Service) ChooseBan(state *model.MapBanState) string {
	return s.strategy.ChooseBan(state)
}

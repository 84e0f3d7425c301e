package bot

import (
	"github.com/mcoot/lobbyengine/internal/dependencies/random"
	"github.com/mcoot/lobbyengine/internal/model"
)

// RandomStrategy picks a random pool player and bans a random remaining map
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

func (s *RandomStrategy) ChoosePick(state *model.DraftState) model.UserID {
	if len(state.Pool) == 0 {
		return ""
	}
	return state.Pool[s.random.IntRange(0, len(state.Pool))]
}

// ChooseBan never returns the last remaining map
func (s *RandomStrategy) ChooseBan(state *model.MapBanState) string {
	remaining := state.Remaining()
	if len(remaining) == 0 {
		return ""
	}
	return remaining[s.random.IntRange(0, len(remaining))]
}

package bot

import "github.com/mcoot/lobbyengine/internal/model"

// Strategy decides a bot captain's moves
type Strategy interface {
	// ChoosePick selects a player from the draft pool
	ChoosePick(state *model.DraftState) model.UserID
	// ChooseBan selects a map to ban from those remaining
	ChooseBan(state *model.MapBanState) string
}

// FirstChoiceStrategy takes the first pool player and bans the first remaining map
type FirstChoiceStrategy struct{}

// NewFirstChoiceStrategy creates a new FirstChoiceStrategy
func NewFirstChoiceStrategy() *FirstChoiceStrategy {
	return &FirstChoiceStrategy{}
}

func (s *FirstChoiceStrategy) ChoosePick(state *model.DraftState) model.UserID {
	if len(state.Pool) == 0 {
		return ""
	}
	return state.Pool[0]
}

func (s *FirstChoiceStrategy) ChooseBan(state *model.MapBanState) string {
	remaining := state.Remaining()
	if len(remaining) == 0 {
		return ""
	}
	return remaining[0]
}

package queue

import (
	"slices"

	"github.com/mcoot/lobbyengine/internal/model"
)

// SelectCaptains returns the two highest-ranked entries, captain A first.
// Ranking is elo descending, then earlier join, then user id.
func SelectCaptains(entries []model.QueueEntry) (captainA, captainB model.UserID, err error) {
	if len(entries) < 2 {
		return "", "", model.Validationf("at least two players are required to select captains")
	}
	ranked := slices.Clone(entries)
	slices.SortStableFunc(ranked, func(a, b model.QueueEntry) int {
		switch {
		case a.RanksAbove(b):
			return -1
		case b.RanksAbove(a):
			return 1
		default:
			return 0
		}
	})
	return ranked[0].UserID, ranked[1].UserID, nil
}

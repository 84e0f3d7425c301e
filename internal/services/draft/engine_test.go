package draft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	state *model.DraftState
	now   time.Time
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	roster := testutil.Lobby("lobby-1").RosterIDs()
	s.state = Start("u9", "u8", roster)
	s.now = testutil.Epoch
}

func (s *EngineSuite) TestStartExcludesCaptainsFromPool() {
	s.True(s.state.IsActive)
	s.Equal(model.DraftTurnCaptainA, s.state.CurrentTurn)
	s.Len(s.state.Pool, model.DraftPicks)
	s.False(s.state.InPool("u9"))
	s.False(s.state.InPool("u8"))
	s.Empty(s.state.PickHistory)
}

func (s *EngineSuite) TestPickMovesPlayerAndFlipsTurn() {
	next, err := Pick(s.state, "u9", "u0", s.now)
	s.Require().NoError(err)

	s.False(next.InPool("u0"))
	s.Require().Len(next.PickHistory, 1)
	s.Equal(model.PickRecord{Captain: "u9", PickedPlayerID: "u0", Timestamp: s.now}, next.PickHistory[0])
	s.Equal(model.DraftTurnCaptainB, next.CurrentTurn)
	s.Equal("u8", string(next.CurrentCaptain()))
}

func (s *EngineSuite) TestPickDoesNotMutateInput() {
	_, err := Pick(s.state, "u9", "u0", s.now)
	s.Require().NoError(err)

	s.True(s.state.InPool("u0"))
	s.Empty(s.state.PickHistory)
	s.Equal(model.DraftTurnCaptainA, s.state.CurrentTurn)
}

func (s *EngineSuite) TestPickOffTurn() {
	_, err := Pick(s.state, "u8", "u0", s.now)
	s.ErrorIs(err, model.ErrNotYourTurn)
	s.ErrorIs(err, model.ErrStateConflict)
}

func (s *EngineSuite) TestPickByNonCaptain() {
	_, err := Pick(s.state, "u3", "u0", s.now)
	s.ErrorIs(err, model.ErrNotYourTurn)
}

func (s *EngineSuite) TestPickOutsidePool() {
	_, err := Pick(s.state, "u9", "u8", s.now)
	s.ErrorIs(err, model.ErrInvalidSelection)

	_, err = Pick(s.state, "u9", "stranger", s.now)
	s.ErrorIs(err, model.ErrInvalidSelection)
}

func (s *EngineSuite) TestPickAlreadyPicked() {
	next, _ := Pick(s.state, "u9", "u0", s.now)
	_, err := Pick(next, "u8", "u0", s.now)
	s.ErrorIs(err, model.ErrInvalidSelection)
}

func (s *EngineSuite) TestPickInactive() {
	s.state.IsActive = false
	_, err := Pick(s.state, "u9", "u0", s.now)
	s.ErrorIs(err, model.ErrDraftInactive)

	_, err = Pick(nil, "u9", "u0", s.now)
	s.ErrorIs(err, model.ErrDraftInactive)
}

func (s *EngineSuite) TestFullDraftAlternatesAndSplitsEvenly() {
	state := s.state
	for i := 0; i < model.DraftPicks; i++ {
		s.Equal(model.DraftPicks, len(state.Pool)+len(state.PickHistory))
		captain := state.CurrentCaptain()
		if i%2 == 0 {
			s.Equal(model.UserID("u9"), captain)
		} else {
			s.Equal(model.UserID("u8"), captain)
		}

		var err error
		state, err = Pick(state, captain, state.Pool[0], s.now)
		s.Require().NoError(err)
	}

	s.False(state.IsActive)
	s.Empty(state.Pool)

	alpha, bravo := state.Teams()
	s.Len(alpha, 5)
	s.Len(bravo, 5)
	s.Equal(model.UserID("u9"), alpha[0])
	s.Equal(model.UserID("u8"), bravo[0])
	s.Equal([]model.UserID{"u9", "u0", "u2", "u4", "u6"}, alpha)
	s.Equal([]model.UserID{"u8", "u1", "u3", "u5", "u7"}, bravo)

	_, err := Pick(state, state.CurrentCaptain(), "u0", s.now)
	s.ErrorIs(err, model.ErrDraftInactive)
}

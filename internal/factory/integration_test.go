package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) TearDownTest() {
	s.NoError(s.app.Close())
}

func (s *IntegrationSuite) state(id model.LobbyID) *model.Lobby {
	l, err := s.app.Coordinator.State(s.ctx, id)
	s.Require().NoError(err)
	return l
}

// Test: ten queued players negotiate a match through to a started server
func (s *IntegrationSuite) TestCompleteMatchFlow() {
	// Step 1: fill the queue
	for _, e := range testutil.Entries(model.Quorum, 1000, 100) {
		s.Require().NoError(s.app.Queue.Join(s.ctx, e))
	}
	s.Zero(s.app.Queue.Len())

	id, err := s.app.Coordinator.ActiveLobby(s.ctx, "u0")
	s.Require().NoError(err)
	s.Require().NotEmpty(id)

	l := s.state(id)
	s.Equal(model.LobbyStatusWaitingReady, l.Status)
	s.Equal([]model.UserID{"u9", "u8"}, l.Captains)

	// Step 2: ready check
	for _, uid := range l.RosterIDs() {
		l, err = s.app.Coordinator.Ready(s.ctx, id, uid)
		s.Require().NoError(err)
	}
	s.Equal(model.LobbyStatusDrafting, l.Status)

	// Step 3: draft
	for l.Status == model.LobbyStatusDrafting {
		l, err = s.app.Coordinator.Pick(s.ctx, id, l.DraftState.CurrentCaptain(), l.DraftState.Pool[0])
		s.Require().NoError(err)
	}
	s.Equal(model.LobbyStatusMapBan, l.Status)

	// Step 4: map bans
	for l.Status == model.LobbyStatusMapBan {
		team := l.MapBanState.CurrentBanTeam
		l, err = s.app.Coordinator.Ban(s.ctx, id, l.CaptainOf(team), team, l.MapBanState.Remaining()[0])
		s.Require().NoError(err)
	}
	s.Equal(model.LobbyStatusServerAssign, l.Status)
	s.Equal("Kafe", l.MapBanState.SelectedMap)

	// Step 5: allocator answers
	published := s.app.MemoryBus.Published()
	s.Require().Len(published, 1)
	s.Equal(id, published[0].LobbyID)
	s.Require().NoError(s.app.Bridge.Resolve(model.AllocationAck{
		RequestID: published[0].RequestID,
		IP:        "10.0.0.5:27015",
		Password:  "hunter2",
	}))

	l = s.state(id)
	s.Equal(model.LobbyStatusInProgress, l.Status)
	s.Require().NotNil(l.ServerInfo)
	s.Equal("10.0.0.5:27015", l.ServerInfo.IP)

	match, err := s.app.Archive.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Kafe", match.Map)

	// Step 6: completion frees the roster
	l, err = s.app.Coordinator.Complete(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.LobbyStatusCompleted, l.Status)

	active, err := s.app.Coordinator.ActiveLobby(s.ctx, "u0")
	s.Require().NoError(err)
	s.Empty(active)
	s.NoError(s.app.Queue.Join(s.ctx, testutil.Entries(1, 1000, 0)[0]))
}

// Test: a queued player cannot be seated twice
func (s *IntegrationSuite) TestQueuedPlayerInLobbyCannotRejoin() {
	for _, e := range testutil.Entries(model.Quorum, 1000, 100) {
		s.Require().NoError(s.app.Queue.Join(s.ctx, e))
	}

	err := s.app.Queue.Join(s.ctx, testutil.Entries(1, 1000, 0)[0])
	s.ErrorIs(err, model.ErrAlreadyInLobby)
}

// Test: an admin lobby with one human is filled with bots and drafts immediately
func (s *IntegrationSuite) TestAdminLobbyWithBots() {
	l, err := s.app.Coordinator.CreateLobby(s.ctx, []model.UserProfile{
		{UserID: "host", Username: "Host", EloRating: 2000},
	}, model.LobbyOptions{SkipReadyCheck: true})
	s.Require().NoError(err)
	s.Equal(model.LobbyStatusWaitingReady, l.Status)
	s.Len(l.Players, 1)

	l, err = s.app.Coordinator.FillBots(s.ctx, l.ID)
	s.Require().NoError(err)
	s.Equal(model.LobbyStatusDrafting, l.Status)
	s.Len(l.Players, model.Quorum)
	s.Len(l.HumanIDs(), 1)
	s.Equal(model.UserID("host"), l.Captains[0])
	s.Equal(8, len(l.DraftState.Pool))
}

// Test: stats reflect live components
func (s *IntegrationSuite) TestStats() {
	s.Zero(s.app.ActiveActors())
	s.Zero(s.app.Connections())

	s.Require().NoError(s.app.Queue.Join(s.ctx, testutil.Entries(1, 1000, 0)[0]))
	s.Equal(1, s.app.Queued())

	_, err := s.app.Coordinator.CreateLobby(s.ctx, []model.UserProfile{
		{UserID: "host", Username: "Host", EloRating: 1500},
	}, model.LobbyOptions{})
	s.Require().NoError(err)
	s.Equal(1, s.app.ActiveActors())
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/testutil"
)

type ArchiveSuite struct {
	suite.Suite
	archive *Archive
	ctx     context.Context
}

func TestArchiveSuite(t *testing.T) {
	suite.Run(t, new(ArchiveSuite))
}

func (s *ArchiveSuite) SetupTest() {
	archive, err := Open(filepath.Join(s.T().TempDir(), "matches.db"))
	s.Require().NoError(err)
	s.archive = archive
	s.ctx = context.Background()
}

func (s *ArchiveSuite) TearDownTest() {
	s.NoError(s.archive.Close())
}

func (s *ArchiveSuite) match(id model.LobbyID, at time.Time) *model.Match {
	lobby := testutil.Lobby(id)
	lobby.Status = model.LobbyStatusInProgress
	lobby.MapBanState = &model.MapBanState{SelectedMap: "Kafe"}
	lobby.ServerInfo = &model.ServerInfo{IP: "10.0.0.1:27015", Password: "pw"}
	return model.NewMatch(lobby, at)
}

func (s *ArchiveSuite) TestOpenRequiresPath() {
	_, err := Open("  ")
	s.Error(err)
}

func (s *ArchiveSuite) TestSaveAndGetMatch() {
	s.Require().NoError(s.archive.SaveMatch(s.ctx, s.match("lobby-1", testutil.Epoch)))

	got, err := s.archive.GetMatch(s.ctx, "lobby-1")
	s.Require().NoError(err)
	s.Equal("Kafe", got.Map)
	s.Equal("10.0.0.1:27015", got.ServerInfo.IP)
	s.Len(got.Lobby.Players, model.Quorum)
	s.True(testutil.Epoch.Equal(got.ArchivedAt))
}

func (s *ArchiveSuite) TestGetMatchNotFound() {
	_, err := s.archive.GetMatch(s.ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *ArchiveSuite) TestSecondWriteRejected() {
	s.Require().NoError(s.archive.SaveMatch(s.ctx, s.match("lobby-1", testutil.Epoch)))

	err := s.archive.SaveMatch(s.ctx, s.match("lobby-1", testutil.Epoch.Add(time.Minute)))
	s.ErrorIs(err, model.ErrMatchExists)
}

func (s *ArchiveSuite) TestListMatchesNewestFirst() {
	_ = s.archive.SaveMatch(s.ctx, s.match("a", testutil.Epoch))
	_ = s.archive.SaveMatch(s.ctx, s.match("b", testutil.Epoch.Add(time.Minute)))
	_ = s.archive.SaveMatch(s.ctx, s.match("c", testutil.Epoch.Add(2*time.Minute)))

	matches, err := s.archive.ListMatches(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(matches, 2)
	s.Equal(model.LobbyID("c"), matches[0].LobbyID)
	s.Equal(model.LobbyID("b"), matches[1].LobbyID)
}

func (s *ArchiveSuite) TestInMemoryArchive() {
	archive, err := Open(MemoryPath)
	s.Require().NoError(err)
	defer archive.Close()

	s.Require().NoError(archive.SaveMatch(s.ctx, s.match("lobby-1", testutil.Epoch)))
	_, err = archive.GetMatch(s.ctx, "lobby-1")
	s.NoError(err)
}

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/lobbyengine/internal/dependencies/mocks"
	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/storage/memory"
	"github.com/mcoot/lobbyengine/internal/testutil"
)

type fakeCreator struct {
	mu      sync.Mutex
	batches [][]model.QueueEntry
	fail    error
}

func (c *fakeCreator) CreateFromQueue(_ context.Context, entries []model.QueueEntry) (*model.Lobby, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	c.batches = append(c.batches, entries)
	return &model.Lobby{ID: "lobby-1"}, nil
}

type QueueSuite struct {
	suite.Suite
	storage *memory.Storage
	creator *fakeCreator
	clock   *mocks.MockClock
	queue   *Queue
	ctx     context.Context
}

func TestQueueSuite(t *testing.T) {
	suite.Run(t, new(QueueSuite))
}

func (s *QueueSuite) SetupTest() {
	s.storage = memory.New()
	s.creator = &fakeCreator{}
	s.clock = mocks.NewMockClock(testutil.Epoch)
	s.queue = New(s.storage, s.creator, s.clock, Config{DisconnectGrace: time.Minute}, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *QueueSuite) joinAll(entries []model.QueueEntry) {
	for _, e := range entries {
		s.Require().NoError(s.queue.Join(s.ctx, e))
		s.clock.Advance(time.Second)
	}
}

func (s *QueueSuite) TestJoinAppends() {
	s.joinAll(testutil.Entries(3, 1000, 100))

	s.Equal(3, s.queue.Len())
	s.True(s.queue.Contains("u1"))
	s.Empty(s.creator.batches)
}

func (s *QueueSuite) TestJoinTwiceRejected() {
	entry := testutil.Entries(1, 1000, 0)[0]
	s.Require().NoError(s.queue.Join(s.ctx, entry))

	s.ErrorIs(s.queue.Join(s.ctx, entry), model.ErrAlreadyQueued)
	s.Equal(1, s.queue.Len())
}

func (s *QueueSuite) TestJoinWhileInActiveLobbyRejected() {
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("lobby-1"))

	err := s.queue.Join(s.ctx, testutil.Entries(1, 1000, 0)[0])
	s.ErrorIs(err, model.ErrAlreadyInLobby)
	s.Zero(s.queue.Len())
}

func (s *QueueSuite) TestJoinRequiresUser() {
	s.ErrorIs(s.queue.Join(s.ctx, model.QueueEntry{}), model.ErrValidation)
}

func (s *QueueSuite) TestLeave() {
	s.joinAll(testutil.Entries(2, 1000, 100))

	s.True(s.queue.Leave("u0"))
	s.False(s.queue.Leave("u0"))
	s.Equal(1, s.queue.Len())
}

func (s *QueueSuite) TestTenthJoinMergesOldestTen() {
	s.joinAll(testutil.Entries(11, 1000, 100)[:10])

	s.Require().Len(s.creator.batches, 1)
	batch := s.creator.batches[0]
	s.Len(batch, model.Quorum)
	s.Equal(model.UserID("u0"), batch[0].UserID)
	s.Equal(model.UserID("u9"), batch[9].UserID)
	s.Zero(s.queue.Len())
}

func (s *QueueSuite) TestMergeKeepsOverflowQueued() {
	s.creator.fail = errors.New("hold")
	s.joinAll(testutil.Entries(12, 1000, 10))
	s.creator.fail = nil

	s.Require().NoError(s.queue.Merge(s.ctx))

	s.Require().Len(s.creator.batches, 1)
	s.Equal(model.UserID("u0"), s.creator.batches[0][0].UserID)
	entries := s.queue.Entries()
	s.Require().Len(entries, 2)
	s.Equal(model.UserID("u10"), entries[0].UserID)
	s.Equal(model.UserID("u11"), entries[1].UserID)
}

func (s *QueueSuite) TestFailedMergeRestoresOrder() {
	s.creator.fail = model.PersistenceError(errors.New("disk full"))
	s.joinAll(testutil.Entries(10, 1000, 100))

	entries := s.queue.Entries()
	s.Require().Len(entries, model.Quorum)
	for i, e := range entries {
		s.Equal(testutil.Entries(10, 1000, 100)[i].UserID, e.UserID)
	}

	// Restored entries are queued again, not stuck mid-merge
	s.ErrorIs(s.queue.Join(s.ctx, entries[0]), model.ErrAlreadyQueued)
	s.True(s.queue.Leave("u3"))
}

func (s *QueueSuite) TestMergeDropsPlayersClaimedElsewhere() {
	s.creator.fail = errors.New("hold")
	s.joinAll(testutil.Entries(10, 1000, 100))
	s.creator.fail = nil

	// u0..u9 from the fixture lobby are now claimed by an active lobby
	_ = s.storage.SaveLobby(s.ctx, testutil.Lobby("admin-lobby"))

	s.Require().NoError(s.queue.Merge(s.ctx))
	s.Empty(s.creator.batches)
	s.Zero(s.queue.Len())
}

func (s *QueueSuite) TestDisconnectGraceRemovesEntry() {
	s.joinAll(testutil.Entries(1, 1000, 0))

	s.queue.UserDisconnected("u0")
	s.clock.Advance(59 * time.Second)
	s.True(s.queue.Contains("u0"))

	s.clock.Advance(time.Second)
	s.False(s.queue.Contains("u0"))
}

func (s *QueueSuite) TestReconnectCancelsGrace() {
	s.joinAll(testutil.Entries(1, 1000, 0))

	s.queue.UserDisconnected("u0")
	s.queue.UserConnected("u0")
	s.clock.Advance(2 * time.Minute)

	s.True(s.queue.Contains("u0"))
	s.Zero(s.clock.PendingTimers())
}

func (s *QueueSuite) TestDisconnectWhenNotQueuedIsNoop() {
	s.queue.UserDisconnected("nobody")
	s.Zero(s.clock.PendingTimers())
}

func (s *QueueSuite) TestConcurrentJoinsMergeEachPlayerOnce() {
	entries := testutil.Entries(35, 1000, 10)

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.queue.Join(s.ctx, e))
		}()
	}
	wg.Wait()

	s.creator.mu.Lock()
	batches := s.creator.batches
	s.creator.mu.Unlock()

	s.Require().Len(batches, 3)
	seen := make(map[model.UserID]int)
	for _, batch := range batches {
		s.Len(batch, model.Quorum)
		for _, e := range batch {
			seen[e.UserID]++
		}
	}
	for _, e := range s.queue.Entries() {
		seen[e.UserID]++
	}
	s.Equal(5, s.queue.Len())
	s.Len(seen, len(entries))
	for id, n := range seen {
		s.Equal(1, n, "user %s placed %d times", id, n)
	}
}

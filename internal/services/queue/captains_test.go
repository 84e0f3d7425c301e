package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/lobbyengine/internal/model"
	"github.com/mcoot/lobbyengine/internal/testutil"
)

func TestSelectCaptainsHighestElo(t *testing.T) {
	a, b, err := SelectCaptains(testutil.Entries(10, 1000, 100))
	require.NoError(t, err)
	assert.Equal(t, model.UserID("u9"), a)
	assert.Equal(t, model.UserID("u8"), b)
}

func TestSelectCaptainsTieBreaksOnJoinTime(t *testing.T) {
	entries := testutil.Entries(4, 1500, 0)
	entries[3].JoinedAt = testutil.Epoch.Add(-time.Minute)

	a, b, err := SelectCaptains(entries)
	require.NoError(t, err)
	assert.Equal(t, model.UserID("u3"), a)
	assert.Equal(t, model.UserID("u0"), b)
}

func TestSelectCaptainsTieBreaksOnUserID(t *testing.T) {
	entries := []model.QueueEntry{
		{UserID: "zed", EloRating: 1500, JoinedAt: testutil.Epoch},
		{UserID: "amy", EloRating: 1500, JoinedAt: testutil.Epoch},
		{UserID: "kim", EloRating: 1500, JoinedAt: testutil.Epoch},
	}
	a, b, err := SelectCaptains(entries)
	require.NoError(t, err)
	assert.Equal(t, model.UserID("amy"), a)
	assert.Equal(t, model.UserID("kim"), b)
}

func TestSelectCaptainsDoesNotReorderInput(t *testing.T) {
	entries := testutil.Entries(3, 1000, 100)
	_, _, _ = SelectCaptains(entries)
	assert.Equal(t, model.UserID("u0"), entries[0].UserID)
}

func TestSelectCaptainsNeedsTwo(t *testing.T) {
	_, _, err := SelectCaptains(testutil.Entries(1, 1000, 0))
	assert.ErrorIs(t, err, model.ErrValidation)
}

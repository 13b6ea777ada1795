package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termtrivia/internal/protocol"
)

func testMember(username string, score int, joined time.Time) *member {
	return &member{
		session:  &Session{},
		username: username,
		joinedAt: joined,
		score:    score,
	}
}

func TestRankMembers(t *testing.T) {
	t.Parallel()

	base := time.Now()
	members := []*member{
		testMember("carol", 2, base.Add(2*time.Second)),
		testMember("alice", 3, base),
		testMember("bob", 3, base.Add(time.Second)),
		testMember("dave", 0, base.Add(3*time.Second)),
	}

	rankMembers(members)
	got := buildRankings(members)

	want := []protocol.PlayerRank{
		{Username: "alice", Score: 3, Rank: 1},
		{Username: "bob", Score: 3, Rank: 2}, // tie broken by earlier join
		{Username: "carol", Score: 2, Rank: 3},
		{Username: "dave", Score: 0, Rank: 4},
	}
	assert.Equal(t, want, got)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score, "ranking must be non-increasing")
	}
}

func TestRound_DuplicateUsername(t *testing.T) {
	t.Parallel()

	r := newRound(time.Minute, func(*round) {})
	defer r.timer.Stop()

	first := &Session{username: "alice"}
	second := &Session{username: "alice"}

	require.NoError(t, r.join(first))
	assert.ErrorIs(t, r.join(second), ErrUsernameTaken)

	// once the first alice is gone, the name frees up
	r.drop(first)
	assert.NoError(t, r.join(second))
}

func TestRound_CompletionTracking(t *testing.T) {
	t.Parallel()

	r := newRound(time.Minute, func(*round) {})
	defer r.timer.Stop()

	alice := &Session{username: "alice"}
	bob := &Session{username: "bob"}
	require.NoError(t, r.join(alice))
	require.NoError(t, r.join(bob))

	assert.False(t, r.complete(alice), "bob is still playing")
	assert.True(t, r.drop(bob), "last member leaving ends the round")
}

func TestRound_ConcludeExcludesDropped(t *testing.T) {
	t.Parallel()

	r := newRound(time.Minute, func(*round) {})
	defer r.timer.Stop()

	alice := &Session{username: "alice"}
	bob := &Session{username: "bob"}
	require.NoError(t, r.join(alice))
	require.NoError(t, r.join(bob))

	r.setScore(alice, 2)
	r.complete(alice)
	r.drop(bob)

	included := r.conclude()
	require.Len(t, included, 1)
	assert.Equal(t, "alice", included[0].username)

	assert.Nil(t, r.conclude(), "a round concludes only once")
}

func TestRound_JoinAfterFinish(t *testing.T) {
	t.Parallel()

	r := newRound(time.Minute, func(*round) {})
	defer r.timer.Stop()

	require.NoError(t, r.join(&Session{username: "alice"}))
	r.conclude()

	assert.ErrorIs(t, r.join(&Session{username: "bob"}), ErrRoundOver)
}

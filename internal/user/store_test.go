package user_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termtrivia/internal/user"
)

func TestStore_CreateOrGet(t *testing.T) {
	t.Parallel()

	s := user.NewStore(nil)

	rec := s.CreateOrGet("alice")
	assert.Equal(t, user.Record{Username: "alice"}, rec)

	s.RecordAnswer("alice", true)
	rec = s.CreateOrGet("alice")
	assert.Equal(t, 1, rec.TotalCorrect, "existing record should be returned, not recreated")
}

func TestStore_Lookup(t *testing.T) {
	t.Parallel()

	s := user.NewStore(map[string]user.Record{
		"bob": {Username: "bob", BestScore: 7},
	})

	rec, ok := s.Lookup("bob")
	require.True(t, ok)
	assert.Equal(t, 7, rec.BestScore)

	_, ok = s.Lookup("nobody")
	assert.False(t, ok)
}

func TestStore_RecordAnswerConcurrent(t *testing.T) {
	t.Parallel()

	const (
		workers        = 10
		answersEach    = 100
		correctPerWork = 60
	)

	s := user.NewStore(nil)
	s.CreateOrGet("alice")

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < answersEach; j++ {
				s.RecordAnswer("alice", j < correctPerWork)
			}
		}()
	}
	wg.Wait()

	rec, ok := s.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, workers*correctPerWork, rec.TotalCorrect,
		"concurrent correct answers must not lose updates")
}

func TestStore_FinishGame(t *testing.T) {
	t.Parallel()

	s := user.NewStore(nil)

	rec := s.FinishGame("alice", 3)
	assert.Equal(t, 1, rec.GamesPlayed)
	assert.Equal(t, 3, rec.BestScore)

	rec = s.FinishGame("alice", 2)
	assert.Equal(t, 2, rec.GamesPlayed)
	assert.Equal(t, 3, rec.BestScore, "a lower score must not lower the best score")

	rec = s.FinishGame("alice", 5)
	assert.Equal(t, 5, rec.BestScore)
}

func TestStore_Highscores(t *testing.T) {
	t.Parallel()

	s := user.NewStore(map[string]user.Record{
		"alice": {Username: "alice", BestScore: 5},
		"bob":   {Username: "bob", BestScore: 9},
		"carol": {Username: "carol", BestScore: 7},
		"dave":  {Username: "dave", BestScore: 1},
	})

	top := s.Highscores(3)
	require.Len(t, top, 3)
	assert.Equal(t, "bob", top[0].Username)
	assert.Equal(t, "carol", top[1].Username)
	assert.Equal(t, "alice", top[2].Username)
}

type flakySaver struct {
	mu       sync.Mutex
	failures int
	calls    int
	saved    map[string]user.Record
}

func (f *flakySaver) SaveUsers(records map[string]user.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("disk on fire")
	}
	f.saved = records
	return nil
}

func TestStore_PersistRetriesOnce(t *testing.T) {
	t.Parallel()

	s := user.NewStore(nil)
	s.RecordAnswer("alice", true)

	saver := &flakySaver{failures: 1}
	require.NoError(t, s.Persist(saver), "a single failure should be retried")
	assert.Equal(t, 2, saver.calls)
	assert.Contains(t, saver.saved, "alice")
}

func TestStore_PersistSurfacesRepeatedFailure(t *testing.T) {
	t.Parallel()

	s := user.NewStore(nil)

	saver := &flakySaver{failures: 2}
	err := s.Persist(saver)
	require.Error(t, err)
	assert.Equal(t, 2, saver.calls, "persist gives up after one retry")
}

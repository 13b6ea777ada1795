package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termtrivia/internal/storage"
	"termtrivia/internal/user"
)

func TestStore_LoadQuestions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := `[
		{"id": 1, "prompt": "How much is 2+2?", "options": ["3", "4", "2"], "answer": 1},
		{"id": 2, "prompt": "Capital of France?", "options": ["Lion", "Paris", "Nice"], "answer": 1}
	]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "questions.json"), []byte(data), 0644))

	questions, err := storage.New(dir).LoadQuestions()
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "How much is 2+2?", questions[0].Prompt)
	assert.Equal(t, 1, questions[0].Answer)
	assert.Equal(t, []string{"Lion", "Paris", "Nice"}, questions[1].Options)
}

func TestStore_LoadQuestionsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := storage.New(t.TempDir()).LoadQuestions()
	assert.Error(t, err)
}

func TestStore_UsersRoundTrip(t *testing.T) {
	t.Parallel()

	store := storage.New(t.TempDir())

	records := map[string]user.Record{
		"alice": {Username: "alice", TotalCorrect: 12, GamesPlayed: 4, BestScore: 3},
		"bob":   {Username: "bob", TotalCorrect: 1, GamesPlayed: 1, BestScore: 1},
	}
	require.NoError(t, store.SaveUsers(records))

	loaded, err := store.LoadUsers()
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestStore_LoadUsersMissingFile(t *testing.T) {
	t.Parallel()

	records, err := storage.New(t.TempDir()).LoadUsers()
	require.NoError(t, err, "a missing users file is a fresh install, not an error")
	assert.Empty(t, records)
}

func TestStore_SaveUsersCreatesDataDir(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "data")
	store := storage.New(dir)

	require.NoError(t, store.SaveUsers(map[string]user.Record{
		"alice": {Username: "alice"},
	}))

	_, err := os.Stat(filepath.Join(dir, "users.json"))
	assert.NoError(t, err)
}

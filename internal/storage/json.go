package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"termtrivia/internal/question"
	"termtrivia/internal/user"
)

const (
	questionsFile = "questions.json"
	usersFile     = "users.json"
)

// Store reads and writes game data as JSON files under a data directory.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// LoadQuestions reads the question bank from questions.json.
func (s *Store) LoadQuestions() ([]question.Question, error) {
	path := filepath.Join(s.dir, questionsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var questions []question.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return questions, nil
}

// LoadUsers reads all user records from users.json. A missing file is not
// an error; it yields an empty record set.
func (s *Store) LoadUsers() (map[string]user.Record, error) {
	path := filepath.Join(s.dir, usersFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]user.Record), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records map[string]user.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// SaveUsers writes all user records to users.json.
func (s *Store) SaveUsers(records map[string]user.Record) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir %s: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user records: %w", err)
	}

	path := filepath.Join(s.dir, usersFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

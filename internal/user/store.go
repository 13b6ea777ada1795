package user

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Record holds persisted cumulative statistics for one username.
// Records are exclusively owned by the Store; callers always receive copies.
type Record struct {
	Username     string `json:"username"`
	TotalCorrect int    `json:"total_correct"`
	GamesPlayed  int    `json:"games_played"`
	BestScore    int    `json:"best_score"`
}

// Saver flushes user records to external storage.
type Saver interface {
	SaveUsers(records map[string]Record) error
}

// Store maps usernames to their persistent records. All mutation goes
// through the store's mutex, so concurrent RecordAnswer calls for the same
// username never lose updates.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewStore(records map[string]Record) *Store {
	s := &Store{records: make(map[string]*Record, len(records))}
	for name, rec := range records {
		rec := rec
		s.records[name] = &rec
	}
	return s
}

// Lookup returns a copy of the record for username, if present.
func (s *Store) Lookup(username string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[username]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// CreateOrGet returns the record for username, creating a zeroed one if absent.
func (s *Store) CreateOrGet(username string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.getOrCreateLocked(username)
}

func (s *Store) getOrCreateLocked(username string) *Record {
	rec, ok := s.records[username]
	if !ok {
		rec = &Record{Username: username}
		s.records[username] = rec
	}
	return rec
}

// RecordAnswer updates username's stats after one scored answer and returns
// the updated record.
func (s *Store) RecordAnswer(username string, correct bool) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getOrCreateLocked(username)
	if correct {
		rec.TotalCorrect++
	}
	return *rec
}

// FinishGame records a completed game for username, updating the games
// played count and the best score.
func (s *Store) FinishGame(username string, score int) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getOrCreateLocked(username)
	rec.GamesPlayed++
	if score > rec.BestScore {
		rec.BestScore = score
	}
	return *rec
}

// Highscores returns up to n records ordered by best score descending.
func (s *Store) Highscores(n int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	top := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		top = append(top, *rec)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].BestScore != top[j].BestScore {
			return top[i].BestScore > top[j].BestScore
		}
		return top[i].Username < top[j].Username
	})

	if len(top) > n {
		top = top[:n]
	}
	return top
}

// Snapshot returns a copy of all records, keyed by username.
func (s *Store) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Record, len(s.records))
	for name, rec := range s.records {
		out[name] = *rec
	}
	return out
}

// Persist flushes all records through the saver. A failed save is retried
// once before the error is surfaced to the caller.
func (s *Store) Persist(saver Saver) error {
	snapshot := s.Snapshot()

	err := saver.SaveUsers(snapshot)
	if err == nil {
		return nil
	}
	slog.Error("failed to persist user records, retrying", "error", err)

	if err := saver.SaveUsers(snapshot); err != nil {
		return fmt.Errorf("failed to persist user records after retry: %w", err)
	}
	return nil
}

package question

import (
	"fmt"
	"math/rand/v2"
)

const (
	MinOptions = 3
	MaxOptions = 4
)

// Question is a single trivia question. Immutable once loaded.
type Question struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"` // correct option index
}

// IsCorrect reports whether the given option index is the correct answer.
func (q Question) IsCorrect(option int) bool {
	return option == q.Answer
}

// Bank holds the full set of questions for a round. It is read-only after
// construction, so concurrent PickNext calls need no locking.
type Bank struct {
	questions map[int]Question
	ids       []int
}

func NewBank(questions []Question) (*Bank, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}

	b := &Bank{
		questions: make(map[int]Question, len(questions)),
		ids:       make([]int, 0, len(questions)),
	}

	for _, q := range questions {
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, err)
		}
		if _, exists := b.questions[q.ID]; exists {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}

		b.questions[q.ID] = q
		b.ids = append(b.ids, q.ID)
	}

	return b, nil
}

func validate(q Question) error {
	if q.Prompt == "" {
		return fmt.Errorf("prompt is empty")
	}
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return fmt.Errorf("must have between %d and %d options, got %d", MinOptions, MaxOptions, len(q.Options))
	}
	if q.Answer < 0 || q.Answer >= len(q.Options) {
		return fmt.Errorf("answer index %d out of range", q.Answer)
	}
	return nil
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.ids)
}

// Get returns the question with the given id.
func (b *Bank) Get(id int) (Question, bool) {
	q, ok := b.questions[id]
	return q, ok
}

// PickNext returns a uniformly random question whose id is not in asked.
// It returns false when the bank is exhausted for that exclusion set.
func (b *Bank) PickNext(asked map[int]struct{}) (Question, bool) {
	candidates := make([]int, 0, len(b.ids))
	for _, id := range b.ids {
		if _, seen := asked[id]; !seen {
			candidates = append(candidates, id)
		}
	}

	if len(candidates) == 0 {
		return Question{}, false
	}

	id := candidates[rand.IntN(len(candidates))]
	return b.questions[id], true
}

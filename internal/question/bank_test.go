package question_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termtrivia/internal/question"
)

func makeQuestions(n int) []question.Question {
	questions := make([]question.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, question.Question{
			ID:      i + 1,
			Prompt:  fmt.Sprintf("question %d", i+1),
			Options: []string{"a", "b", "c", "d"},
			Answer:  i % 4,
		})
	}
	return questions
}

func TestNewBank_Validation(t *testing.T) {
	t.Parallel()

	tests := map[string][]question.Question{
		"empty bank": {},
		"empty prompt": {
			{ID: 1, Options: []string{"a", "b", "c"}, Answer: 0},
		},
		"too few options": {
			{ID: 1, Prompt: "q", Options: []string{"a", "b"}, Answer: 0},
		},
		"too many options": {
			{ID: 1, Prompt: "q", Options: []string{"a", "b", "c", "d", "e"}, Answer: 0},
		},
		"answer out of range": {
			{ID: 1, Prompt: "q", Options: []string{"a", "b", "c"}, Answer: 3},
		},
		"negative answer": {
			{ID: 1, Prompt: "q", Options: []string{"a", "b", "c"}, Answer: -1},
		},
		"duplicate ids": {
			{ID: 1, Prompt: "q1", Options: []string{"a", "b", "c"}, Answer: 0},
			{ID: 1, Prompt: "q2", Options: []string{"a", "b", "c"}, Answer: 0},
		},
	}

	for name, questions := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := question.NewBank(questions)
			assert.Error(t, err)
		})
	}
}

func TestBank_PickNextNeverRepeats(t *testing.T) {
	t.Parallel()

	bank, err := question.NewBank(makeQuestions(10))
	require.NoError(t, err)

	asked := make(map[int]struct{})
	seen := make(map[int]int)
	for {
		q, ok := bank.PickNext(asked)
		if !ok {
			break
		}
		seen[q.ID]++
		asked[q.ID] = struct{}{}
	}

	require.Len(t, seen, bank.Len(), "every question should be served exactly once")
	for id, count := range seen {
		assert.Equal(t, 1, count, "question %d served more than once", id)
	}

	_, ok := bank.PickNext(asked)
	assert.False(t, ok, "exhausted bank should report empty")
}

func TestBank_PickNextConcurrent(t *testing.T) {
	t.Parallel()

	bank, err := question.NewBank(makeQuestions(20))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			asked := make(map[int]struct{})
			for {
				q, ok := bank.PickNext(asked)
				if !ok {
					return
				}
				if _, dup := asked[q.ID]; dup {
					t.Errorf("question %d served twice to the same session", q.ID)
					return
				}
				asked[q.ID] = struct{}{}
			}
		}()
	}
	wg.Wait()
}

func TestQuestion_IsCorrect(t *testing.T) {
	t.Parallel()

	q := question.Question{ID: 1, Prompt: "q", Options: []string{"a", "b", "c"}, Answer: 1}
	assert.True(t, q.IsCorrect(1))
	assert.False(t, q.IsCorrect(0))
	assert.False(t, q.IsCorrect(2))
}

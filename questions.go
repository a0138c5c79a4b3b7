package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
)

//go:embed questions.json
var embeddedQuestions []byte

// QuestionAnswer is one survey answer with its weighting.
type QuestionAnswer struct {
	Text   string `json:"text"`
	Points int    `json:"points"`
}

// Question is read-only survey content. The game core consumes these, it
// never writes them.
type Question struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Category string           `json:"category,omitempty"`
	Answers  []QuestionAnswer `json:"answers"`
}

// QuestionBank serves random draws from a fixed set of questions. Draws are
// the only concurrent access, guarded by a mutex around the shared RNG.
type QuestionBank struct {
	mu        sync.Mutex
	rng       *rand.Rand
	questions []Question
}

// loadQuestionBank parses the embedded bank, or a replacement file when path
// is non-empty.
func loadQuestionBank(path string, seed int64) (*QuestionBank, error) {
	data := embeddedQuestions
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading question bank: %w", err)
		}
	}

	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parsing question bank: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}

	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = fmt.Sprintf("q-%d", i+1)
		}
		if len(questions[i].Answers) == 0 {
			return nil, fmt.Errorf("question %q has no answers", questions[i].ID)
		}
	}

	return &QuestionBank{
		rng:       rand.New(rand.NewSource(seed)),
		questions: questions,
	}, nil
}

func (b *QuestionBank) Len() int {
	return len(b.questions)
}

// Draw returns up to n distinct random questions. Asking for more than the
// bank holds returns the whole bank, shuffled.
func (b *QuestionBank) Draw(n int) []Question {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.questions) {
		n = len(b.questions)
	}
	perm := b.rng.Perm(len(b.questions))
	out := make([]Question, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, b.questions[idx])
	}
	return out
}

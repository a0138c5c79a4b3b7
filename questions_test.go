package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedBankLoads(t *testing.T) {
	bank, err := loadQuestionBank("", 1)
	require.NoError(t, err)

	require.GreaterOrEqual(t, bank.Len(), fastMoneyQuestions+5,
		"bank must cover a full game plus fast money")
	for _, q := range bank.questions {
		assert.NotEmpty(t, q.ID)
		assert.NotEmpty(t, q.Text)
		assert.NotEmpty(t, q.Answers)
	}
}

func TestDrawDistinct(t *testing.T) {
	bank, err := loadQuestionBank("", 7)
	require.NoError(t, err)

	drawn := bank.Draw(5)
	require.Len(t, drawn, 5)

	seen := make(map[string]bool)
	for _, q := range drawn {
		assert.False(t, seen[q.ID], "question %s drawn twice", q.ID)
		seen[q.ID] = true
	}
}

func TestDrawClampsToBankSize(t *testing.T) {
	bank, err := loadQuestionBank("", 1)
	require.NoError(t, err)

	drawn := bank.Draw(bank.Len() + 100)
	assert.Len(t, drawn, bank.Len())
}

func TestLoadQuestionBankFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "custom-1", "text": "Name a color.", "answers": [{"text": "Blue", "points": 60}]}
	]`), 0o644))

	bank, err := loadQuestionBank(path, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, bank.Len())
	assert.Equal(t, "custom-1", bank.questions[0].ID)
}

func TestLoadQuestionBankRejectsBadContent(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o644))
	_, err := loadQuestionBank(empty, 1)
	assert.Error(t, err)

	noAnswers := filepath.Join(dir, "noanswers.json")
	require.NoError(t, os.WriteFile(noAnswers, []byte(`[{"id": "x", "text": "y", "answers": []}]`), 0o644))
	_, err = loadQuestionBank(noAnswers, 1)
	assert.Error(t, err)

	_, err = loadQuestionBank(filepath.Join(dir, "missing.json"), 1)
	assert.Error(t, err)
}

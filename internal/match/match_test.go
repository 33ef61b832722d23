package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreIdentical(t *testing.T) {
	assert.Equal(t, 100, Score("Lorie Scholten", "Lorie Scholten"))
	assert.Equal(t, 100, Score("Lorie Scholten", "  lorie scholten "))
}

func TestScorePunctuationAndOrder(t *testing.T) {
	// Trailing region code with different punctuation.
	assert.GreaterOrEqual(t, Score("Dale Fairchild - ORA", "dale fairchild ora"), 95)
	// Reordered words recover through the token-sort ratio.
	assert.GreaterOrEqual(t, Score("Fairchild Dale", "Dale Fairchild"), 95)
	// Substring recovers through the partial ratio.
	assert.GreaterOrEqual(t, Score("Scholten", "Lorie Scholten Remodel"), 90)
}

func TestScoreDissimilar(t *testing.T) {
	assert.Less(t, Score("Dale Fairchild", "Hernandez Pool Deck"), 60)
	assert.Equal(t, 0, Score("", "anything"))
	assert.Equal(t, 0, Score("anything", ""))
}

func TestBestMatch(t *testing.T) {
	candidates := []Candidate{
		{ID: 1, Label: "dale fairchild ora"},
		{ID: 2, Label: "hernandez pool deck"},
	}

	res, ok := BestMatch("Dale Fairchild - ORA", candidates, DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, int64(1), res.Candidate.ID)
	assert.GreaterOrEqual(t, res.Score, 95)
}

func TestBestMatchNoCandidates(t *testing.T) {
	_, ok := BestMatch("X", nil, DefaultThreshold)
	assert.False(t, ok)
}

func TestBestMatchBelowThreshold(t *testing.T) {
	candidates := []Candidate{{ID: 1, Label: "completely unrelated"}}
	_, ok := BestMatch("Dale Fairchild", candidates, DefaultThreshold)
	assert.False(t, ok)
}

func TestBestMatchDeterministicTieBreak(t *testing.T) {
	// Two equally-scored candidates: first scanned wins, every time.
	candidates := []Candidate{
		{ID: 7, Label: "smith house"},
		{ID: 8, Label: "smith house"},
	}
	for i := 0; i < 10; i++ {
		res, ok := BestMatch("Smith House", candidates, DefaultThreshold)
		require.True(t, ok)
		assert.Equal(t, int64(7), res.Candidate.ID)
	}
}

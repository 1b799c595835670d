package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestCategoryForScore_Boundaries(t *testing.T) {
	t.Parallel()
	cases := []struct {
		score float64
		want  domain.Category
	}{
		{0, domain.CategoryPoor},
		{4.9, domain.CategoryPoor},
		{5.0, domain.CategoryAverage},
		{7.9, domain.CategoryAverage},
		{8.0, domain.CategoryExcellent},
		{10, domain.CategoryExcellent},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, domain.CategoryForScore(c.score), "score %v", c.score)
	}
}

func TestClampScore(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 10.0, domain.ClampScore(12.5))
	assert.Equal(t, 0.0, domain.ClampScore(-1))
	assert.Equal(t, 7.3, domain.ClampScore(7.349))
	assert.Equal(t, 7.4, domain.ClampScore(7.35))
}

func TestNewMCQQuestion_Invariants(t *testing.T) {
	t.Parallel()
	opts := map[string]string{"A": "a", "B": "b", "C": "c", "D": "d"}

	q, err := domain.NewMCQQuestion("q?", opts, "B", "because")
	require.NoError(t, err)
	assert.Equal(t, domain.QuestionMultipleChoice, q.Kind)
	assert.Equal(t, "B", q.CorrectAnswer)

	_, err = domain.NewMCQQuestion("q?", map[string]string{"A": "a"}, "A", "x")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = domain.NewMCQQuestion("q?", opts, "E", "x")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestNewFreeTextQuestion(t *testing.T) {
	t.Parallel()
	q := domain.NewFreeTextQuestion("what is a goroutine?", "a lightweight thread")
	assert.Equal(t, domain.QuestionFreeText, q.Kind)
	assert.Empty(t, q.Options)
	assert.Empty(t, q.CorrectAnswer)
}

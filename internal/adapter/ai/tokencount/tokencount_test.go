package tokencount_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
)

func TestCount(t *testing.T) {
	t.Parallel()
	assert.Zero(t, tokencount.Count("gpt-4o-mini", ""))
	assert.Positive(t, tokencount.Count("gpt-4o-mini", "hello world"))
	// Unknown models still produce a usable estimate.
	assert.Positive(t, tokencount.Count("not-a-real-model", "hello world"))
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	short := "hello"
	assert.Equal(t, short, tokencount.Truncate("gpt-4o-mini", short, 100))

	long := strings.Repeat("interview question evaluation ", 200)
	trimmed := tokencount.Truncate("gpt-4o-mini", long, 50)
	assert.Less(t, len(trimmed), len(long))
	assert.LessOrEqual(t, tokencount.Count("gpt-4o-mini", trimmed), 50)

	assert.Empty(t, tokencount.Truncate("gpt-4o-mini", long, 0))
}

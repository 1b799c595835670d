package textx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello world", textx.SanitizeText("  hello\x00 world \x07 "))
	assert.Equal(t, "line1\nline2", textx.SanitizeText("line1\nline2"))
	assert.Equal(t, "", textx.SanitizeText("\x00\x01\x02"))
}

func TestWordCount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, textx.WordCount(""))
	assert.Equal(t, 0, textx.WordCount("   "))
	assert.Equal(t, 3, textx.WordCount("one  two\tthree"))
}

func TestExtractConcepts_StopWordsAndLength(t *testing.T) {
	t.Parallel()
	// "the" is a stop word; "cat", "sat", "mat" are length 3 and dropped.
	assert.Empty(t, textx.ExtractConcepts("The cat sat on the mat"))

	got := textx.ExtractConcepts("Decorators modify the behavior of other functions")
	assert.Equal(t, []string{"decorators", "modify", "behavior", "other", "functions"}, got)
}

func TestExtractConcepts_DeduplicatesAndLowercases(t *testing.T) {
	t.Parallel()
	got := textx.ExtractConcepts("Goroutines, goroutines and GOROUTINES everywhere")
	assert.Equal(t, []string{"goroutines", "everywhere"}, got)
}

func TestExtractConcepts_Deterministic(t *testing.T) {
	t.Parallel()
	text := "Generators produce values lazily using yield semantics"
	assert.Equal(t, textx.ExtractConcepts(text), textx.ExtractConcepts(text))
}

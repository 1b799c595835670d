package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynthesizeFeedback_Bands(t *testing.T) {
	t.Parallel()
	cases := []struct {
		score    float64
		wantMain string
	}{
		{9.0, "Excellent answer! You demonstrated strong understanding of the concept."},
		{8.0, "Excellent answer! You demonstrated strong understanding of the concept."},
		{7.0, "Good answer with room for improvement. You covered the main points but could add more depth."},
		{5.5, "Average answer. You have basic understanding but missed important details."},
		{4.0, "Below average answer. Your response lacks key information and clarity."},
		{1.0, "Poor answer. The response needs significant improvement in both content and depth."},
	}
	for _, tc := range cases {
		fb := synthesizeFeedback(tc.score, "an answer", "a reference answer")
		assert.Equal(t, tc.wantMain, fb.main, "score %.1f", tc.score)
		assert.NotEmpty(t, fb.good)
		assert.NotEmpty(t, fb.missing)
		assert.NotEmpty(t, fb.improve)
	}
}

func TestMissingConcepts_ExcellentSkipsGapAnalysis(t *testing.T) {
	t.Parallel()
	got := missingConceptsMessage(8.5, "short", "polymorphism inheritance encapsulation abstraction")
	assert.Equal(t, "Your answer was comprehensive. Minor refinements could include additional examples or edge cases.", got)
}

func TestMissingConcepts_ListsGapCappedAtThree(t *testing.T) {
	t.Parallel()
	got := missingConceptsMessage(5.0,
		"classes hold data",
		"polymorphism inheritance encapsulation abstraction together define object orientation")
	assert.Contains(t, got, "Important concepts not fully addressed: ")
	assert.Contains(t, got, "polymorphism, inheritance, encapsulation")
	assert.NotContains(t, got, "abstraction")
}

func TestMissingConcepts_NoGapFallsBackToGenericAdvice(t *testing.T) {
	t.Parallel()
	got := missingConceptsMessage(5.0,
		"polymorphism inheritance encapsulation explained badly",
		"polymorphism inheritance encapsulation")
	assert.Equal(t, "More elaboration, specific examples, and clearer explanation of key concepts.", got)
}

package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-interview-coach/internal/service/scoring"
)

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()
	s := scoring.Summarize(nil, "Python Developer", "Easy")
	assert.Equal(t, "No data", s.OverallPerformance)
	assert.Equal(t, "Complete the interview to get performance summary.", s.Recommendation)
	assert.Zero(t, s.TotalQuestions)
	assert.Zero(t, s.AverageScore)
}

func TestSummarize_AllExcellent(t *testing.T) {
	t.Parallel()
	s := scoring.Summarize([]float64{9, 9, 9}, "Go Developer", "Hard")
	assert.Equal(t, 9.0, s.AverageScore)
	assert.Equal(t, 3, s.TotalQuestions)
	assert.Equal(t, 3, s.ExcellentCount)
	assert.Zero(t, s.AverageCount)
	assert.Zero(t, s.PoorCount)
	assert.Equal(t, "Excellent", s.OverallPerformance)
	assert.Contains(t, s.Recommendation, "Go Developer")
	assert.Contains(t, s.Recommendation, "Hard")
}

func TestSummarize_MixedBandsAndRounding(t *testing.T) {
	t.Parallel()
	// avg 5.5333... rounds to 5.5, lands in the Average band.
	s := scoring.Summarize([]float64{8.0, 6.1, 2.5}, "Data Scientist", "Medium")
	assert.Equal(t, 5.5, s.AverageScore)
	assert.Equal(t, 1, s.ExcellentCount)
	assert.Equal(t, 1, s.AverageCount)
	assert.Equal(t, 1, s.PoorCount)
	assert.Equal(t, "Average", s.OverallPerformance)
}

func TestSummarize_NeedsImprovement(t *testing.T) {
	t.Parallel()
	s := scoring.Summarize([]float64{2, 3, 4}, "Python Developer", "Easy")
	assert.Equal(t, "Needs Improvement", s.OverallPerformance)
	assert.Contains(t, s.Recommendation, "fundamentals")
}

func TestTrend(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		averages []float64
		want     string
	}{
		{"no data", nil, "N/A"},
		{"single session", []float64{7}, "N/A"},
		{"improving", []float64{9, 9, 9, 9, 9, 5, 5, 5}, "Improving"},
		{"declining", []float64{4, 4, 4, 4, 4, 8, 8, 8}, "Declining"},
		{"stable", []float64{7, 7.2, 6.9, 7.1, 7, 7, 7, 7}, "Stable"},
		{"few sessions stable", []float64{7, 7.3}, "Stable"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, scoring.Trend(tc.averages))
		})
	}
}

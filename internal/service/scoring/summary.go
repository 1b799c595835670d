package scoring

import (
	"fmt"
	"math"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Summary performance bands. The extra Good band sits between the global
// Excellent and Average category thresholds.
const (
	performanceExcellent = 8.0
	performanceGood      = 6.5
	performanceAverage   = 5.0
)

// Summarize rolls a session's ordered scores into an interview-level summary.
// Purely a function of the score sequence plus role/level strings.
func Summarize(scores []float64, role, level string) domain.SessionSummary {
	if len(scores) == 0 {
		return domain.SessionSummary{
			OverallPerformance: "No data",
			Recommendation:     "Complete the interview to get performance summary.",
		}
	}

	var sum float64
	s := domain.SessionSummary{TotalQuestions: len(scores)}
	for _, score := range scores {
		sum += score
		switch domain.CategoryForScore(score) {
		case domain.CategoryExcellent:
			s.ExcellentCount++
		case domain.CategoryAverage:
			s.AverageCount++
		default:
			s.PoorCount++
		}
	}
	avg := sum / float64(len(scores))
	s.AverageScore = math.Round(avg*10) / 10

	switch {
	case avg >= performanceExcellent:
		s.OverallPerformance = "Excellent"
		s.Recommendation = fmt.Sprintf("Outstanding performance! You're well-prepared for %s positions at %s level. Focus on real-world experience and advanced topics to excel further.", role, level)
	case avg >= performanceGood:
		s.OverallPerformance = "Good"
		s.Recommendation = fmt.Sprintf("Good performance with room for growth. Review the areas where you scored below 8 and deepen your understanding of %s concepts at %s level.", role, level)
	case avg >= performanceAverage:
		s.OverallPerformance = "Average"
		s.Recommendation = fmt.Sprintf("Average performance. Invest more time studying %s fundamentals. Practice explaining concepts clearly and work through more hands-on projects at %s level.", role, level)
	default:
		s.OverallPerformance = "Needs Improvement"
		s.Recommendation = fmt.Sprintf("Significant improvement needed. Focus on building strong fundamentals in %s. Study the ideal answers, practice regularly, and consider structured learning resources for %s level content.", role, level)
	}
	return s
}

// Trend thresholds: the recent-vs-older mean difference must exceed this to
// count as movement.
const trendDelta = 0.5

// trendWindow is how many of the newest averages form the "recent" sample.
const trendWindow = 5

// Trend compares the mean of the most recent session averages against the
// mean of the older ones. Input is ordered newest first; fewer than two
// samples yield "N/A".
func Trend(averages []float64) string {
	if len(averages) < 2 {
		return "N/A"
	}
	recent := averages
	if len(recent) > trendWindow {
		recent = averages[:trendWindow]
	}
	recentAvg := mean(recent)
	olderAvg := recentAvg
	if len(averages) > trendWindow {
		olderAvg = mean(averages[trendWindow:])
	}
	switch {
	case recentAvg > olderAvg+trendDelta:
		return "Improving"
	case recentAvg < olderAvg-trendDelta:
		return "Declining"
	default:
		return "Stable"
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

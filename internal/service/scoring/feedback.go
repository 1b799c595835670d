package scoring

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// feedbackSet carries the four feedback strings of an evaluation.
type feedbackSet struct {
	main    string
	good    string
	missing string
	improve string
}

// Feedback score bands. The top band starts at the Excellent category
// threshold; the rest subdivide the lower range for more graded advice.
const (
	bandExcellent    = 8.0
	bandGood         = 6.5
	bandAverage      = 5.0
	bandBelowAverage = 3.0
)

const maxMissingConcepts = 3

// synthesizeFeedback selects templated feedback for a score band and fills
// the gap analysis from concept extraction.
func synthesizeFeedback(score float64, userAnswer, idealAnswer string) feedbackSet {
	var fb feedbackSet
	switch {
	case score >= bandExcellent:
		fb.main = "Excellent answer! You demonstrated strong understanding of the concept."
		fb.good = "Your answer covered the key points accurately, showed good understanding, and was well-structured."
	case score >= bandGood:
		fb.main = "Good answer with room for improvement. You covered the main points but could add more depth."
		fb.good = "You understood the core concept and provided relevant information."
	case score >= bandAverage:
		fb.main = "Average answer. You have basic understanding but missed important details."
		fb.good = "You showed some understanding of the topic and attempted to explain it."
	case score >= bandBelowAverage:
		fb.main = "Below average answer. Your response lacks key information and clarity."
		fb.good = "You made an attempt to answer the question."
	default:
		fb.main = "Poor answer. The response needs significant improvement in both content and depth."
		fb.good = "You provided a response, which is a starting point."
	}

	fb.missing = missingConceptsMessage(score, userAnswer, idealAnswer)

	switch {
	case score >= bandExcellent:
		fb.improve = "Continue your excellent work. Consider adding real-world examples or discussing trade-offs and edge cases to achieve perfection."
	case score >= bandGood:
		fb.improve = "Expand on the key concepts with more detail. Include concrete examples and explain the 'why' behind concepts, not just the 'what'."
	case score >= bandAverage:
		fb.improve = "Study the ideal answer structure. Focus on covering all major points, use clear explanations, and support your points with examples. Practice explaining concepts in a structured way."
	default:
		fb.improve = "Review the fundamental concepts thoroughly. Break down your answer into clear parts: definition, explanation, examples, and use cases. Practice articulating technical concepts clearly and completely."
	}
	return fb
}

// missingConceptsMessage computes the concept gap (reference minus candidate)
// for sub-excellent scores. Excellent answers get a generic refinement note
// regardless of gaps.
func missingConceptsMessage(score float64, userAnswer, idealAnswer string) string {
	if score >= bandExcellent {
		return "Your answer was comprehensive. Minor refinements could include additional examples or edge cases."
	}
	userConcepts := map[string]struct{}{}
	for _, c := range textx.ExtractConcepts(userAnswer) {
		userConcepts[c] = struct{}{}
	}
	var missing []string
	for _, c := range textx.ExtractConcepts(idealAnswer) {
		if _, ok := userConcepts[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return "More elaboration, specific examples, and clearer explanation of key concepts."
	}
	if len(missing) > maxMissingConcepts {
		missing = missing[:maxMissingConcepts]
	}
	return fmt.Sprintf("Important concepts not fully addressed: %s. More depth and specific examples would strengthen your answer.", strings.Join(missing, ", "))
}

// Package scoring implements the deterministic answer evaluation pipeline:
// similarity-based scoring, templated feedback synthesis, and session
// roll-ups. It is the guaranteed fallback when the generative evaluator is
// unavailable or untrustworthy.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Embedder is the narrow view of the AI client the engine needs.
type Embedder interface {
	Embed(ctx domain.Context, texts []string) ([][]float32, error)
}

// Engine scores answers deterministically. The embedder is injected at
// construction and shared process-wide; inference calls do not mutate it.
type Engine struct {
	embedder Embedder
}

// NewEngine constructs a scoring engine around the given embedder.
func NewEngine(e Embedder) *Engine { return &Engine{embedder: e} }

// Quality-bonus phrase lists. Each matched list adds a flat bonus; the final
// clamp caps the total.
var (
	examplePhrases   = []string{"example", "for instance", "such as", "like", "e.g."}
	structurePhrases = []string{"first", "second", "finally", "however", "additionally"}
)

const (
	briefScore = 0.5

	mcqCorrectScore = 10.0
	mcqWrongScore   = 2.0

	shortAnswerRatio  = 0.3
	verboseRatio      = 3.0
	shortAnswerFactor = 0.85
	verboseFactor     = 0.95

	exampleBonus   = 0.05
	structureBonus = 0.05
	mcqLetterBonus = 0.15
)

// TooBrief reports whether an answer is below the minimum length that both
// the rule-based and generative paths short-circuit on.
func TooBrief(answer string) bool {
	return len(strings.TrimSpace(answer)) < domain.MinAnswerLength
}

// BriefAnswerEvaluation is the fixed evaluation for empty or too-short
// answers. No embedding call is made on this path.
func BriefAnswerEvaluation(idealAnswer string) domain.Evaluation {
	return domain.Evaluation{
		Score:          briefScore,
		Category:       domain.CategoryForScore(briefScore),
		Feedback:       "Your answer is too brief and lacks substance.",
		WhatWasGood:    "You attempted to answer the question.",
		WhatWasMissing: "A comprehensive explanation with key concepts, examples, and details.",
		HowToImprove:   "Provide a detailed answer covering all aspects of the question. Include definitions, examples, and practical applications.",
		IdealAnswer:    idealAnswer,
		Source:         domain.SourceRuleBased,
	}
}

// Evaluate scores a user answer against the question's reference answer.
// Multiple-choice questions answered with a bare letter take the binary
// branch; everything else is scored by embedding similarity with length and
// surface-quality modifiers. The result is deterministic for a deterministic
// embedder.
func (e *Engine) Evaluate(ctx domain.Context, userAnswer string, q domain.Question) (domain.Evaluation, error) {
	tracer := otel.Tracer("scoring.engine")
	ctx, span := tracer.Start(ctx, "scoring.Evaluate")
	defer span.End()

	// A bare option letter is a complete MCQ answer; it must win over the
	// brevity guard or every choice would score as too short.
	if q.Kind == domain.QuestionMultipleChoice {
		if ev, ok := e.evaluateMCQChoice(userAnswer, q); ok {
			return ev, nil
		}
		// A letter plus explanation falls through to similarity scoring.
	}

	if TooBrief(userAnswer) {
		return BriefAnswerEvaluation(q.IdealAnswer), nil
	}
	return e.evaluateFreeText(ctx, userAnswer, q)
}

// IsBareChoice reports whether an answer is a lone option letter A-D. Bare
// choices are scored by the binary MCQ branch and never sent to a model.
func IsBareChoice(answer string) bool {
	choice := strings.ToUpper(strings.TrimSpace(answer))
	return len(choice) == 1 && strings.Contains("ABCD", choice)
}

// evaluateMCQChoice handles the strict single-letter MCQ branch. A matched
// or unmatched letter is definitive; no similarity estimate is involved.
func (e *Engine) evaluateMCQChoice(userAnswer string, q domain.Question) (domain.Evaluation, bool) {
	if !IsBareChoice(userAnswer) {
		return domain.Evaluation{}, false
	}
	choice := strings.ToUpper(strings.TrimSpace(userAnswer))
	correct := strings.ToUpper(q.CorrectAnswer)
	isCorrect := choice == correct

	ev := domain.Evaluation{
		IdealAnswer:  q.IdealAnswer,
		IsMCQCorrect: &isCorrect,
		Source:       domain.SourceRuleBased,
	}
	if isCorrect {
		ev.Score = mcqCorrectScore
		ev.Feedback = "Correct answer! Excellent choice."
		ev.WhatWasGood = fmt.Sprintf("You selected the correct option %s.", correct)
		ev.WhatWasMissing = "Consider adding an explanation to demonstrate deeper understanding."
		ev.HowToImprove = "While you got the right answer, explaining your reasoning shows mastery of the concept."
	} else {
		ev.Score = mcqWrongScore
		ev.Feedback = fmt.Sprintf("Incorrect. The correct answer is %s.", correct)
		ev.WhatWasGood = "You made an attempt at the question."
		ev.WhatWasMissing = fmt.Sprintf("The correct answer is %s: %s", correct, q.Options[q.CorrectAnswer])
		ev.HowToImprove = "Review the concept and understand why the correct option is appropriate."
	}
	ev.Category = domain.CategoryForScore(ev.Score)
	return ev, true
}

func (e *Engine) evaluateFreeText(ctx domain.Context, userAnswer string, q domain.Question) (domain.Evaluation, error) {
	vecs, err := e.embedder.Embed(ctx, []string{userAnswer, q.IdealAnswer})
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("op=scoring.embed: %w", err)
	}
	if len(vecs) != 2 {
		return domain.Evaluation{}, fmt.Errorf("op=scoring.embed: %w: expected 2 vectors, got %d", domain.ErrSchemaInvalid, len(vecs))
	}
	rawScore := Cosine(vecs[0], vecs[1])

	score := domain.ClampScore((rawScore*lengthFactor(userAnswer, q.IdealAnswer) + qualityBonus(userAnswer, q)) * 10)

	fb := synthesizeFeedback(score, userAnswer, q.IdealAnswer)
	ev := domain.Evaluation{
		Score:          score,
		Category:       domain.CategoryForScore(score),
		Feedback:       fb.main,
		WhatWasGood:    fb.good,
		WhatWasMissing: fb.missing,
		HowToImprove:   fb.improve,
		IdealAnswer:    q.IdealAnswer,
		Source:         domain.SourceRuleBased,
	}
	if q.Kind == domain.QuestionMultipleChoice {
		isCorrect := firstLetter(userAnswer) == strings.ToUpper(q.CorrectAnswer)
		ev.IsMCQCorrect = &isCorrect
	}
	return ev, nil
}

// lengthFactor discounts answers that are extremely brief or verbose relative
// to the reference; similarity remains the dominant signal.
func lengthFactor(userAnswer, idealAnswer string) float64 {
	idealWords := textx.WordCount(idealAnswer)
	if idealWords == 0 {
		return shortAnswerFactor
	}
	ratio := float64(textx.WordCount(userAnswer)) / float64(idealWords)
	switch {
	case ratio < shortAnswerRatio:
		return shortAnswerFactor
	case ratio > verboseRatio:
		return verboseFactor
	default:
		return 1.0
	}
}

// qualityBonus adds flat rewards for observable surface features. Bonuses are
// independent and stackable. The first-letter bonus is a compatibility path
// for MCQ answers that carry an explanation; it only applies to questions
// tagged multiple-choice at construction.
func qualityBonus(userAnswer string, q domain.Question) float64 {
	lower := strings.ToLower(userAnswer)
	bonus := 0.0
	if containsAny(lower, examplePhrases) {
		bonus += exampleBonus
	}
	if containsAny(lower, structurePhrases) {
		bonus += structureBonus
	}
	if q.Kind == domain.QuestionMultipleChoice && firstLetter(userAnswer) == strings.ToUpper(q.CorrectAnswer) {
		bonus += mcqLetterBonus
	}
	return bonus
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func firstLetter(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1])
}

// Cosine returns the cosine similarity of two embedding vectors, 0 when
// either has zero magnitude.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Package usecase orchestrates the interview flow: question sourcing, answer
// evaluation with generative-to-deterministic fallback, and session lifecycle.
package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/scoring"
)

const evaluatorSystemPrompt = `You are an expert technical interviewer evaluating candidate responses.

Your responsibilities:
- Provide fair and objective evaluation of answers
- Score on a scale of 0-10 based on completeness, accuracy, and clarity
- Identify strengths and areas for improvement
- Offer constructive feedback
- Consider the difficulty level and role context

Guidelines:
- Be realistic but encouraging
- Focus on both technical accuracy and communication
- Provide specific, actionable feedback`

const evaluationPromptFmt = `Evaluate this interview answer:

**Question:** %s

**Ideal Answer:** %s

**Candidate's Answer:** %s

**Context:**
- Role: %s
- Difficulty: %s

Provide evaluation in JSON format:
{
    "score": 8.5,
    "feedback": "Overall assessment",
    "what_was_good": "Specific strengths",
    "what_was_missing": "Key gaps",
    "how_to_improve": "Actionable suggestions"
}

Be fair but realistic for %s level.`

// EvaluationService scores answers, preferring the generative provider and
// falling back to the deterministic engine. A nil AI client disables the
// generative path entirely.
type EvaluationService struct {
	ai       domain.AIClient
	engine   *scoring.Engine
	provider string
}

// NewEvaluationService wires an evaluation service. provider is the
// provenance tag recorded on generative evaluations.
func NewEvaluationService(ai domain.AIClient, engine *scoring.Engine, provider string) *EvaluationService {
	return &EvaluationService{ai: ai, engine: engine, provider: provider}
}

// Evaluate scores a user answer. Too-brief answers short-circuit before any
// model call; bare MCQ letters take the deterministic binary branch. Provider
// failures fall back to the scoring engine with the fallback provenance tag.
func (s *EvaluationService) Evaluate(ctx domain.Context, q domain.Question, userAnswer, role, level string) (domain.Evaluation, error) {
	tracer := otel.Tracer("usecase.evaluation")
	ctx, span := tracer.Start(ctx, "evaluation.Evaluate")
	defer span.End()

	if q.Kind == domain.QuestionMultipleChoice && scoring.IsBareChoice(userAnswer) {
		return s.engine.Evaluate(ctx, userAnswer, q)
	}
	if scoring.TooBrief(userAnswer) {
		return scoring.BriefAnswerEvaluation(q.IdealAnswer), nil
	}
	if s.ai == nil {
		return s.engine.Evaluate(ctx, userAnswer, q)
	}

	ev, err := s.generative(ctx, q, userAnswer, role, level)
	if err == nil {
		return ev, nil
	}
	slog.Warn("generative evaluation failed, using deterministic fallback",
		slog.Any("error", err))
	fb, ferr := s.engine.Evaluate(ctx, userAnswer, q)
	if ferr != nil {
		return domain.Evaluation{}, fmt.Errorf("op=evaluation.fallback: %w", errors.Join(err, ferr))
	}
	fb.Source = domain.SourceFallback
	return fb, nil
}

type generativeResult struct {
	Score          float64 `json:"score"`
	Feedback       string  `json:"feedback"`
	WhatWasGood    string  `json:"what_was_good"`
	WhatWasMissing string  `json:"what_was_missing"`
	HowToImprove   string  `json:"how_to_improve"`
}

func (s *EvaluationService) generative(ctx domain.Context, q domain.Question, userAnswer, role, level string) (domain.Evaluation, error) {
	prompt := fmt.Sprintf(evaluationPromptFmt, q.Text, q.IdealAnswer, userAnswer, role, level, level)
	content, err := s.ai.ChatJSON(ctx, evaluatorSystemPrompt, prompt)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("op=evaluation.chat: %w", err)
	}
	content = cleanJSON(content)

	var res generativeResult
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		return s.salvage(content, q.IdealAnswer), nil
	}
	score := domain.ClampScore(res.Score)
	return domain.Evaluation{
		Score:          score,
		Category:       domain.CategoryForScore(score),
		Feedback:       orDefault(res.Feedback, "Good effort."),
		WhatWasGood:    orDefault(res.WhatWasGood, "You showed understanding."),
		WhatWasMissing: orDefault(res.WhatWasMissing, "More depth needed."),
		HowToImprove:   orDefault(res.HowToImprove, "Study the ideal answer."),
		IdealAnswer:    q.IdealAnswer,
		Source:         s.provider,
	}, nil
}

const salvageDefaultScore = 6.0

// salvage recovers an approximate evaluation from a non-JSON completion: the
// first two digits after the colon on a line mentioning "score", read as
// tenths. The raw text (truncated) becomes the feedback.
func (s *EvaluationService) salvage(content, idealAnswer string) domain.Evaluation {
	score := salvageDefaultScore
	for _, line := range strings.Split(content, "\n") {
		if !strings.Contains(strings.ToLower(line), "score") {
			continue
		}
		if v, ok := parseSalvagedScore(line); ok {
			score = v
			break
		}
	}
	feedback := content
	if len(feedback) > 200 {
		feedback = feedback[:200]
	}
	return domain.Evaluation{
		Score:          domain.ClampScore(score),
		Category:       domain.CategoryAverage,
		Feedback:       feedback,
		WhatWasGood:    "Partial understanding shown.",
		WhatWasMissing: "More comprehensive coverage needed.",
		HowToImprove:   "Review the ideal answer and practice.",
		IdealAnswer:    idealAnswer,
		Source:         s.provider + "-partial",
	}
}

func parseSalvagedScore(line string) (float64, bool) {
	if i := strings.LastIndex(line, ":"); i >= 0 {
		line = line[i+1:]
	}
	var digits []rune
	for _, r := range line {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
			if len(digits) == 2 {
				break
			}
		}
	}
	if len(digits) == 0 {
		return 0, false
	}
	var n int
	for _, d := range digits {
		n = n*10 + int(d-'0')
	}
	return float64(n) / 10, true
}

// cleanJSON strips markdown code fences some models wrap around JSON output.
func cleanJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

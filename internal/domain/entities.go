// Package domain holds the core entities and ports of the interview coach.
package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrSchemaInvalid     = errors.New("schema invalid")
	ErrInternal          = errors.New("internal error")
)

// MinAnswerLength is the minimum trimmed answer length for a full evaluation.
// Shorter answers short-circuit to a fixed low score on both the rule-based
// and the generative path; the two guards must agree on this value.
const MinAnswerLength = 10

// QuestionKind tags a question as free-text or multiple-choice at
// construction time, so call sites never re-derive the branch from
// optional-field presence.
type QuestionKind string

const (
	QuestionFreeText       QuestionKind = "free_text"
	QuestionMultipleChoice QuestionKind = "multiple_choice"
)

// OptionCount is the fixed number of MCQ options (letters A-D).
const OptionCount = 4

// Question is a role/difficulty interview question. For multiple-choice
// questions Options maps choice letters to choice text and CorrectAnswer is
// one of the option letters. IdealAnswer doubles as the MCQ explanation and
// the free-text scoring reference.
type Question struct {
	Kind          QuestionKind
	Text          string
	Options       map[string]string
	CorrectAnswer string
	IdealAnswer   string
	Source        string
}

// NewFreeTextQuestion constructs a free-text question.
func NewFreeTextQuestion(text, idealAnswer string) Question {
	return Question{Kind: QuestionFreeText, Text: text, IdealAnswer: idealAnswer}
}

// NewMCQQuestion constructs a multiple-choice question, validating the
// invariant that exactly four options are present and the correct answer is
// one of them.
func NewMCQQuestion(text string, options map[string]string, correctAnswer, idealAnswer string) (Question, error) {
	if len(options) != OptionCount {
		return Question{}, fmt.Errorf("%w: mcq requires %d options, got %d", ErrInvalidArgument, OptionCount, len(options))
	}
	if _, ok := options[correctAnswer]; !ok {
		return Question{}, fmt.Errorf("%w: correct answer %q is not an option", ErrInvalidArgument, correctAnswer)
	}
	return Question{
		Kind:          QuestionMultipleChoice,
		Text:          text,
		Options:       options,
		CorrectAnswer: correctAnswer,
		IdealAnswer:   idealAnswer,
	}, nil
}

// Category is the three-tier qualitative score band.
type Category string

const (
	CategoryExcellent Category = "Excellent"
	CategoryAverage   Category = "Average"
	CategoryPoor      Category = "Poor"
)

// CategoryForScore maps a score to its category. This thresholding is the
// single classification rule reused by every component that buckets a score.
func CategoryForScore(score float64) Category {
	switch {
	case score >= 8.0:
		return CategoryExcellent
	case score >= 5.0:
		return CategoryAverage
	default:
		return CategoryPoor
	}
}

// ClampScore bounds a score to [0,10] and rounds it to one decimal place.
func ClampScore(score float64) float64 {
	return math.Round(math.Min(10, math.Max(0, score))*10) / 10
}

// Evaluation provenance tags. Generative evaluations carry the provider name
// instead, or "<provider>-partial" when the response had to be salvaged.
const (
	SourceRuleBased = "rule-based"
	SourceFallback  = "fallback"
)

// Evaluation is the immutable per-answer scoring record.
type Evaluation struct {
	Score          float64
	Category       Category
	Feedback       string
	WhatWasGood    string
	WhatWasMissing string
	HowToImprove   string
	IdealAnswer    string
	IsMCQCorrect   *bool // present only for the MCQ binary branch
	Source         string
}

// SessionStatus enumerates session lifecycle states.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Session is a persisted interview session.
type Session struct {
	ID             string
	Role           string
	Level          string
	Status         SessionStatus
	StartedAt      time.Time
	EndedAt        *time.Time
	AverageScore   float64
	TotalQuestions int
}

// SessionAnswer is one evaluated answer within a session.
type SessionAnswer struct {
	Ordinal        int
	QuestionText   string
	UserAnswer     string
	IdealAnswer    string
	Score          float64
	Category       Category
	Feedback       string
	WhatWasGood    string
	WhatWasMissing string
	HowToImprove   string
	Source         string
	IsMCQCorrect   *bool
	CreatedAt      time.Time
}

// SessionDetail combines a session with its ordered answers.
type SessionDetail struct {
	Session Session
	Answers []SessionAnswer
}

// SessionSummary is the derived, non-persisted roll-up of a session.
type SessionSummary struct {
	AverageScore       float64
	TotalQuestions     int
	ExcellentCount     int
	AverageCount       int
	PoorCount          int
	OverallPerformance string
	Recommendation     string
}

// RolePerformance aggregates completed sessions for one role.
type RolePerformance struct {
	AverageScore float64
	SessionCount int64
}

// Statistics is the history-wide aggregate across completed sessions.
type Statistics struct {
	TotalCompleted int64
	OverallAverage float64
	PerRole        map[string]RolePerformance
	Trend          string
}

// Ports

// SessionRepository persists sessions and their answers.
type SessionRepository interface {
	Create(ctx Context, role, level string) (string, error)
	Get(ctx Context, id string) (SessionDetail, error)
	AppendAnswer(ctx Context, sessionID string, a SessionAnswer) error
	Complete(ctx Context, sessionID string, averageScore float64, totalQuestions int) error
	List(ctx Context, limit int) ([]Session, error)
	// RecentAverages returns average scores of the most recently completed
	// sessions, newest first, for trend analysis.
	RecentAverages(ctx Context, limit int) ([]float64, error)
	Stats(ctx Context) (Statistics, error)
}

// AIClient is the generative/embedding provider port.
type AIClient interface {
	// Embed returns sentence-embedding vectors for texts, in order.
	Embed(ctx Context, texts []string) ([][]float32, error)
	// ChatJSON sends a chat completion request expected to yield JSON. The
	// completion token cap is provider configuration.
	ChatJSON(ctx Context, systemPrompt, userPrompt string) (string, error)
}

// SpeechSynthesizer converts text to audio. Opaque; the evaluation core
// never inspects audio.
type SpeechSynthesizer interface {
	Synthesize(ctx Context, text string) ([]byte, error)
}

// Transcriber converts recorded audio to text. Transcribed text is evaluated
// identically to typed text.
type Transcriber interface {
	Transcribe(ctx Context, audio []byte, mimeType string) (string, error)
}

// Context aliases context.Context so domain signatures stay compact.
type Context = context.Context

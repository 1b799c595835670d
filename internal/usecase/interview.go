package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/scoring"
)

// InterviewService owns the session lifecycle: start, question flow, answer
// submission, completion roll-up, and history/statistics reads.
type InterviewService struct {
	repo         domain.SessionRepository
	questions    *QuestionService
	evaluations  *EvaluationService
	timeLimit    time.Duration
	maxQuestions int
	now          func() time.Time
}

// NewInterviewService wires the session orchestrator. timeLimit of zero
// disables session expiry; maxQuestions of zero disables the ordinal cap.
func NewInterviewService(repo domain.SessionRepository, qs *QuestionService, es *EvaluationService, timeLimit time.Duration, maxQuestions int) *InterviewService {
	return &InterviewService{
		repo:         repo,
		questions:    qs,
		evaluations:  es,
		timeLimit:    timeLimit,
		maxQuestions: maxQuestions,
		now:          time.Now,
	}
}

func (s *InterviewService) checkOrdinal(op string, ordinal int) error {
	if ordinal < 0 {
		return fmt.Errorf("op=%s: %w: ordinal must be >= 0", op, domain.ErrInvalidArgument)
	}
	if s.maxQuestions > 0 && ordinal >= s.maxQuestions {
		return fmt.Errorf("op=%s: %w: session allows %d questions", op, domain.ErrInvalidArgument, s.maxQuestions)
	}
	return nil
}

// Start creates a new in-progress session.
func (s *InterviewService) Start(ctx domain.Context, role, level string) (domain.Session, error) {
	tracer := otel.Tracer("usecase.interview")
	ctx, span := tracer.Start(ctx, "interview.Start")
	defer span.End()

	role = strings.TrimSpace(role)
	level = strings.TrimSpace(level)
	if role == "" || level == "" {
		return domain.Session{}, fmt.Errorf("op=interview.Start: %w: role and level are required", domain.ErrInvalidArgument)
	}
	id, err := s.repo.Create(ctx, role, level)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{
		ID:        id,
		Role:      role,
		Level:     level,
		Status:    domain.SessionInProgress,
		StartedAt: s.now(),
	}, nil
}

// Question serves the question at the given ordinal for an active session.
func (s *InterviewService) Question(ctx domain.Context, sessionID string, ordinal int) (domain.Question, error) {
	tracer := otel.Tracer("usecase.interview")
	ctx, span := tracer.Start(ctx, "interview.Question")
	defer span.End()

	if err := s.checkOrdinal("interview.Question", ordinal); err != nil {
		return domain.Question{}, err
	}
	sess, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return domain.Question{}, err
	}
	return s.questions.Next(ctx, sess.Role, sess.Level, ordinal)
}

// SubmitAnswer evaluates and persists one answer. The evaluation is returned
// even when persistence fails; the persisted flag tells the caller whether
// the answer made it into history. A duplicate ordinal is a conflict.
func (s *InterviewService) SubmitAnswer(ctx domain.Context, sessionID string, ordinal int, q domain.Question, answer string) (domain.Evaluation, bool, error) {
	tracer := otel.Tracer("usecase.interview")
	ctx, span := tracer.Start(ctx, "interview.SubmitAnswer")
	defer span.End()

	if err := s.checkOrdinal("interview.SubmitAnswer", ordinal); err != nil {
		return domain.Evaluation{}, false, err
	}
	sess, err := s.activeSession(ctx, sessionID)
	if err != nil {
		return domain.Evaluation{}, false, err
	}

	ev, err := s.evaluations.Evaluate(ctx, q, answer, sess.Role, sess.Level)
	if err != nil {
		return domain.Evaluation{}, false, err
	}

	a := domain.SessionAnswer{
		Ordinal:        ordinal,
		QuestionText:   q.Text,
		UserAnswer:     answer,
		IdealAnswer:    ev.IdealAnswer,
		Score:          ev.Score,
		Category:       ev.Category,
		Feedback:       ev.Feedback,
		WhatWasGood:    ev.WhatWasGood,
		WhatWasMissing: ev.WhatWasMissing,
		HowToImprove:   ev.HowToImprove,
		Source:         ev.Source,
		IsMCQCorrect:   ev.IsMCQCorrect,
	}
	if err := s.repo.AppendAnswer(ctx, sessionID, a); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Evaluation{}, false, err
		}
		// Evaluation already cost an inference call; hand it back so the
		// candidate sees the feedback even though history is short one row.
		slog.Error("answer persistence failed, returning unpersisted evaluation",
			slog.String("session_id", sessionID), slog.Int("ordinal", ordinal),
			slog.Any("error", err))
		return ev, false, nil
	}
	return ev, true, nil
}

// Complete finalizes an in-progress session and returns its summary.
func (s *InterviewService) Complete(ctx domain.Context, sessionID string) (domain.SessionSummary, error) {
	tracer := otel.Tracer("usecase.interview")
	ctx, span := tracer.Start(ctx, "interview.Complete")
	defer span.End()

	d, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return domain.SessionSummary{}, err
	}
	if d.Session.Status != domain.SessionInProgress {
		return domain.SessionSummary{}, fmt.Errorf("op=interview.Complete status=%s: %w", d.Session.Status, domain.ErrConflict)
	}
	scores := make([]float64, 0, len(d.Answers))
	for _, a := range d.Answers {
		scores = append(scores, a.Score)
	}
	summary := scoring.Summarize(scores, d.Session.Role, d.Session.Level)
	if err := s.repo.Complete(ctx, sessionID, summary.AverageScore, summary.TotalQuestions); err != nil {
		return domain.SessionSummary{}, err
	}
	return summary, nil
}

// History lists recent sessions, newest first.
func (s *InterviewService) History(ctx domain.Context, limit int) ([]domain.Session, error) {
	return s.repo.List(ctx, limit)
}

// Detail returns one session with its answers.
func (s *InterviewService) Detail(ctx domain.Context, sessionID string) (domain.SessionDetail, error) {
	return s.repo.Get(ctx, sessionID)
}

const trendSampleSize = 10

// Stats aggregates completed sessions and derives the performance trend from
// the most recent session averages.
func (s *InterviewService) Stats(ctx domain.Context) (domain.Statistics, error) {
	tracer := otel.Tracer("usecase.interview")
	ctx, span := tracer.Start(ctx, "interview.Stats")
	defer span.End()

	st, err := s.repo.Stats(ctx)
	if err != nil {
		return domain.Statistics{}, err
	}
	averages, err := s.repo.RecentAverages(ctx, trendSampleSize)
	if err != nil {
		return domain.Statistics{}, err
	}
	st.Trend = scoring.Trend(averages)
	return st, nil
}

// Report renders a session as a plain-text performance report.
func (s *InterviewService) Report(ctx domain.Context, sessionID string) (string, error) {
	d, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nAI INTERVIEW COACH - PERFORMANCE REPORT\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Role: %s\n", d.Session.Role)
	fmt.Fprintf(&b, "Level: %s\n", d.Session.Level)
	fmt.Fprintf(&b, "Date: %s\n", d.Session.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Average Score: %.1f/10\n", d.Session.AverageScore)
	fmt.Fprintf(&b, "Total Questions: %d\n", d.Session.TotalQuestions)
	fmt.Fprintf(&b, "\n%s\n\n", rule)
	for _, a := range d.Answers {
		fmt.Fprintf(&b, "Question %d:\n%s\n\n", a.Ordinal, a.QuestionText)
		fmt.Fprintf(&b, "Your Answer:\n%s\n\n", a.UserAnswer)
		fmt.Fprintf(&b, "Score: %.1f/10 (%s)\n\n", a.Score, a.Category)
		fmt.Fprintf(&b, "Feedback: %s\n", a.Feedback)
		fmt.Fprintf(&b, "What was good: %s\n", a.WhatWasGood)
		fmt.Fprintf(&b, "What was missing: %s\n", a.WhatWasMissing)
		fmt.Fprintf(&b, "How to improve: %s\n\n", a.HowToImprove)
		fmt.Fprintf(&b, "Ideal Answer:\n%s\n\n", a.IdealAnswer)
		fmt.Fprintf(&b, "%s\n\n", strings.Repeat("-", 60))
	}
	return b.String(), nil
}

// activeSession loads a session and verifies it can still accept activity.
func (s *InterviewService) activeSession(ctx domain.Context, sessionID string) (domain.Session, error) {
	d, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if d.Session.Status != domain.SessionInProgress {
		return domain.Session{}, fmt.Errorf("op=interview.active status=%s: %w", d.Session.Status, domain.ErrConflict)
	}
	if s.timeLimit > 0 && s.now().Sub(d.Session.StartedAt) > s.timeLimit {
		return domain.Session{}, fmt.Errorf("op=interview.active: session time limit exceeded: %w", domain.ErrConflict)
	}
	return d.Session, nil
}

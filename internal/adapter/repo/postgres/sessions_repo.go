package postgres

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// PgxPool is the narrow pool surface the repository uses; *pgxpool.Pool
// satisfies it and tests substitute a fake.
type PgxPool interface {
	Exec(ctx domain.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx domain.Context, sql string, args ...any) pgx.Row
	Query(ctx domain.Context, sql string, args ...any) (pgx.Rows, error)
}

// SessionsRepo implements domain.SessionRepository on Postgres.
type SessionsRepo struct {
	pool PgxPool
}

// NewSessionsRepo wires a repository over the given pool.
func NewSessionsRepo(pool PgxPool) *SessionsRepo { return &SessionsRepo{pool: pool} }

const uniqueViolation = "23505"

// EnsureSchema creates the tables if they do not exist. Idempotent; run once
// at startup.
func (r *SessionsRepo) EnsureSchema(ctx domain.Context) error {
	const sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	role TEXT NOT NULL,
	level TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'in_progress',
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	ended_at TIMESTAMPTZ,
	average_score DOUBLE PRECISION,
	total_questions INT
)`
	const answers = `
CREATE TABLE IF NOT EXISTS answers (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	ordinal INT NOT NULL,
	question TEXT NOT NULL,
	user_answer TEXT NOT NULL,
	ideal_answer TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	category TEXT NOT NULL,
	feedback TEXT NOT NULL,
	what_was_good TEXT NOT NULL,
	what_was_missing TEXT NOT NULL,
	how_to_improve TEXT NOT NULL,
	source TEXT NOT NULL,
	is_mcq_correct BOOLEAN,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (session_id, ordinal)
)`
	if _, err := r.pool.Exec(ctx, sessions); err != nil {
		return fmt.Errorf("op=repo.EnsureSchema sessions: %w", err)
	}
	if _, err := r.pool.Exec(ctx, answers); err != nil {
		return fmt.Errorf("op=repo.EnsureSchema answers: %w", err)
	}
	return nil
}

// Create inserts a new in-progress session and returns its id.
func (r *SessionsRepo) Create(ctx domain.Context, role, level string) (string, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Create")
	defer span.End()

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, role, level, status) VALUES ($1, $2, $3, $4)`,
		id, role, level, string(domain.SessionInProgress))
	if err != nil {
		return "", fmt.Errorf("op=repo.Create: %w", err)
	}
	return id, nil
}

// Get loads a session with its answers ordered by ordinal.
func (r *SessionsRepo) Get(ctx domain.Context, id string) (domain.SessionDetail, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Get")
	defer span.End()

	var d domain.SessionDetail
	row := r.pool.QueryRow(ctx, `
SELECT id, role, level, status, started_at, ended_at,
       COALESCE(average_score, 0), COALESCE(total_questions, 0)
FROM sessions WHERE id = $1`, id)
	err := row.Scan(&d.Session.ID, &d.Session.Role, &d.Session.Level, &d.Session.Status,
		&d.Session.StartedAt, &d.Session.EndedAt, &d.Session.AverageScore, &d.Session.TotalQuestions)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SessionDetail{}, fmt.Errorf("op=repo.Get id=%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.SessionDetail{}, fmt.Errorf("op=repo.Get: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
SELECT ordinal, question, user_answer, ideal_answer, score, category,
       feedback, what_was_good, what_was_missing, how_to_improve,
       source, is_mcq_correct, created_at
FROM answers WHERE session_id = $1 ORDER BY ordinal`, id)
	if err != nil {
		return domain.SessionDetail{}, fmt.Errorf("op=repo.Get answers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.SessionAnswer
		if err := rows.Scan(&a.Ordinal, &a.QuestionText, &a.UserAnswer, &a.IdealAnswer,
			&a.Score, &a.Category, &a.Feedback, &a.WhatWasGood, &a.WhatWasMissing,
			&a.HowToImprove, &a.Source, &a.IsMCQCorrect, &a.CreatedAt); err != nil {
			return domain.SessionDetail{}, fmt.Errorf("op=repo.Get scan: %w", err)
		}
		d.Answers = append(d.Answers, a)
	}
	if err := rows.Err(); err != nil {
		return domain.SessionDetail{}, fmt.Errorf("op=repo.Get rows: %w", err)
	}
	return d, nil
}

// AppendAnswer stores one evaluated answer. A duplicate ordinal within the
// session is a conflict.
func (r *SessionsRepo) AppendAnswer(ctx domain.Context, sessionID string, a domain.SessionAnswer) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.AppendAnswer")
	defer span.End()

	_, err := r.pool.Exec(ctx, `
INSERT INTO answers (session_id, ordinal, question, user_answer, ideal_answer,
                     score, category, feedback, what_was_good, what_was_missing,
                     how_to_improve, source, is_mcq_correct)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		sessionID, a.Ordinal, a.QuestionText, a.UserAnswer, a.IdealAnswer,
		a.Score, string(a.Category), a.Feedback, a.WhatWasGood, a.WhatWasMissing,
		a.HowToImprove, a.Source, a.IsMCQCorrect)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("op=repo.AppendAnswer ordinal=%d: %w", a.Ordinal, domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("op=repo.AppendAnswer: %w", err)
	}
	return nil
}

// Complete marks an in-progress session completed with its final aggregate.
// Completing a session twice is a conflict; completing a missing one is not
// found.
func (r *SessionsRepo) Complete(ctx domain.Context, sessionID string, averageScore float64, totalQuestions int) error {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Complete")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `
UPDATE sessions
SET status = $1, ended_at = now(), average_score = $2, total_questions = $3
WHERE id = $4 AND status = $5`,
		string(domain.SessionCompleted), averageScore, totalQuestions,
		sessionID, string(domain.SessionInProgress))
	if err != nil {
		return fmt.Errorf("op=repo.Complete: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var status string
	err = r.pool.QueryRow(ctx, `SELECT status FROM sessions WHERE id = $1`, sessionID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("op=repo.Complete id=%s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("op=repo.Complete: %w", err)
	}
	return fmt.Errorf("op=repo.Complete id=%s status=%s: %w", sessionID, status, domain.ErrConflict)
}

// List returns the most recently started sessions, newest first.
func (r *SessionsRepo) List(ctx domain.Context, limit int) ([]domain.Session, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.List")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, role, level, status, started_at, ended_at,
       COALESCE(average_score, 0), COALESCE(total_questions, 0)
FROM sessions ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("op=repo.List: %w", err)
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.Role, &s.Level, &s.Status, &s.StartedAt,
			&s.EndedAt, &s.AverageScore, &s.TotalQuestions); err != nil {
			return nil, fmt.Errorf("op=repo.List scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=repo.List rows: %w", err)
	}
	return out, nil
}

// RecentAverages returns average scores of recently completed sessions,
// newest first.
func (r *SessionsRepo) RecentAverages(ctx domain.Context, limit int) ([]float64, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.RecentAverages")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
SELECT average_score FROM sessions
WHERE status = $1 AND average_score IS NOT NULL
ORDER BY started_at DESC LIMIT $2`, string(domain.SessionCompleted), limit)
	if err != nil {
		return nil, fmt.Errorf("op=repo.RecentAverages: %w", err)
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("op=repo.RecentAverages scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=repo.RecentAverages rows: %w", err)
	}
	return out, nil
}

// Stats aggregates completed sessions: totals, overall average, and per-role
// breakdown. The trend label is derived by the caller from RecentAverages.
func (r *SessionsRepo) Stats(ctx domain.Context) (domain.Statistics, error) {
	tracer := otel.Tracer("repo.sessions")
	ctx, span := tracer.Start(ctx, "sessions.Stats")
	defer span.End()

	var st domain.Statistics
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(AVG(average_score), 0)
FROM sessions WHERE status = $1`, string(domain.SessionCompleted)).
		Scan(&st.TotalCompleted, &st.OverallAverage)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("op=repo.Stats: %w", err)
	}
	st.OverallAverage = math.Round(st.OverallAverage*10) / 10

	rows, err := r.pool.Query(ctx, `
SELECT role, AVG(average_score), COUNT(*)
FROM sessions WHERE status = $1 GROUP BY role`, string(domain.SessionCompleted))
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("op=repo.Stats roles: %w", err)
	}
	defer rows.Close()
	st.PerRole = make(map[string]domain.RolePerformance)
	for rows.Next() {
		var role string
		var avg float64
		var count int64
		if err := rows.Scan(&role, &avg, &count); err != nil {
			return domain.Statistics{}, fmt.Errorf("op=repo.Stats scan: %w", err)
		}
		st.PerRole[role] = domain.RolePerformance{
			AverageScore: math.Round(avg*10) / 10,
			SessionCount: count,
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Statistics{}, fmt.Errorf("op=repo.Stats rows: %w", err)
	}
	return st, nil
}

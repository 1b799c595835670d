package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"log/slog"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// Handler bundles the API endpoints and their dependencies. Speech ports may
// be nil; the audio endpoints then report the capability as unconfigured.
type Handler struct {
	interviews    *usecase.InterviewService
	synthesizer   domain.SpeechSynthesizer
	transcriber   domain.Transcriber
	validate      *validator.Validate
	maxAudioBytes int64
}

// NewHandler constructs the API handler set.
func NewHandler(interviews *usecase.InterviewService, synth domain.SpeechSynthesizer, stt domain.Transcriber, maxAudioMB int64) *Handler {
	return &Handler{
		interviews:    interviews,
		synthesizer:   synth,
		transcriber:   stt,
		validate:      validator.New(),
		maxAudioBytes: maxAudioMB << 20,
	}
}

type startSessionRequest struct {
	Role  string `json:"role" validate:"required,max=100"`
	Level string `json:"level" validate:"required,oneof=Easy Medium Hard"`
}

type sessionResponse struct {
	SessionID      string     `json:"session_id"`
	Role           string     `json:"role"`
	Level          string     `json:"level"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	AverageScore   float64    `json:"average_score"`
	TotalQuestions int        `json:"total_questions"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		SessionID:      s.ID,
		Role:           s.Role,
		Level:          s.Level,
		Status:         string(s.Status),
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		AverageScore:   s.AverageScore,
		TotalQuestions: s.TotalQuestions,
	}
}

// StartSession handles POST /v1/sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json body", domain.ErrInvalidArgument), nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
		return
	}
	sess, err := h.interviews.Start(r.Context(), req.Role, req.Level)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	obsctx.LoggerFrom(r.Context()).Info("session started",
		slog.String("session_id", sess.ID), slog.String("role", sess.Role), slog.String("level", sess.Level))
	writeJSON(w, http.StatusCreated, toSessionResponse(sess))
}

type questionResponse struct {
	Ordinal       int               `json:"ordinal"`
	Kind          string            `json:"kind"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options,omitempty"`
	CorrectAnswer string            `json:"correct_answer,omitempty"`
	IdealAnswer   string            `json:"ideal_answer"`
	Source        string            `json:"source"`
}

// GetQuestion handles GET /v1/sessions/{id}/question?n=N.
func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ordinal := 0
	if n := r.URL.Query().Get("n"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: n must be an integer", domain.ErrInvalidArgument), nil)
			return
		}
		ordinal = v
	}
	q, err := h.interviews.Question(r.Context(), id, ordinal)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	observability.ObserveQuestionServed(q.Source)
	writeJSON(w, http.StatusOK, questionResponse{
		Ordinal:       ordinal,
		Kind:          string(q.Kind),
		Question:      q.Text,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		IdealAnswer:   q.IdealAnswer,
		Source:        q.Source,
	})
}

type questionPayload struct {
	Text          string            `json:"question" validate:"required"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correct_answer"`
	IdealAnswer   string            `json:"ideal_answer" validate:"required"`
}

func (p questionPayload) toDomain() (domain.Question, error) {
	if len(p.Options) == 0 {
		return domain.NewFreeTextQuestion(p.Text, p.IdealAnswer), nil
	}
	return domain.NewMCQQuestion(p.Text, p.Options, p.CorrectAnswer, p.IdealAnswer)
}

type answerRequest struct {
	Ordinal  *int            `json:"ordinal" validate:"required"`
	Question questionPayload `json:"question"`
	Answer   string          `json:"answer" validate:"required"`
}

type evaluationResponse struct {
	Score          float64 `json:"score"`
	Category       string  `json:"category"`
	Feedback       string  `json:"feedback"`
	WhatWasGood    string  `json:"what_was_good"`
	WhatWasMissing string  `json:"what_was_missing"`
	HowToImprove   string  `json:"how_to_improve"`
	IdealAnswer    string  `json:"ideal_answer"`
	IsMCQCorrect   *bool   `json:"is_mcq_correct,omitempty"`
	Source         string  `json:"source"`
	Persisted      bool    `json:"persisted"`
	Transcript     string  `json:"transcript,omitempty"`
}

// SubmitAnswer handles POST /v1/sessions/{id}/answers. The body is either
// JSON {ordinal, question, answer} or multipart form data with an audio part
// that gets transcribed into the answer text.
func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		ordinal    int
		q          domain.Question
		answer     string
		transcript string
	)
	if contentType == "multipart/form-data" {
		var err error
		ordinal, q, answer, err = h.parseAudioSubmission(r)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		transcript = answer
	} else {
		var req answerRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json body", domain.ErrInvalidArgument), nil)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		var err error
		q, err = req.Question.toDomain()
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ordinal = *req.Ordinal
		answer = req.Answer
	}

	ev, persisted, err := h.interviews.SubmitAnswer(r.Context(), id, ordinal, q, answer)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	observability.ObserveEvaluation(ev.Source, ev.Score)
	writeJSON(w, http.StatusOK, evaluationResponse{
		Score:          ev.Score,
		Category:       string(ev.Category),
		Feedback:       ev.Feedback,
		WhatWasGood:    ev.WhatWasGood,
		WhatWasMissing: ev.WhatWasMissing,
		HowToImprove:   ev.HowToImprove,
		IdealAnswer:    ev.IdealAnswer,
		IsMCQCorrect:   ev.IsMCQCorrect,
		Source:         ev.Source,
		Persisted:      persisted,
		Transcript:     transcript,
	})
}

// parseAudioSubmission extracts ordinal, question and transcribed answer from
// a multipart submission. The audio content type is sniffed from the bytes,
// never trusted from the upload headers.
func (h *Handler) parseAudioSubmission(r *http.Request) (int, domain.Question, string, error) {
	if h.transcriber == nil {
		return 0, domain.Question{}, "", fmt.Errorf("%w: transcription is not configured", domain.ErrInvalidArgument)
	}
	if err := r.ParseMultipartForm(h.maxAudioBytes); err != nil {
		return 0, domain.Question{}, "", fmt.Errorf("%w: multipart body too large or malformed", domain.ErrInvalidArgument)
	}
	ordinal, err := strconv.Atoi(r.FormValue("ordinal"))
	if err != nil {
		return 0, domain.Question{}, "", fmt.Errorf("%w: ordinal field must be an integer", domain.ErrInvalidArgument)
	}
	var qp questionPayload
	if err := json.Unmarshal([]byte(r.FormValue("question")), &qp); err != nil {
		return 0, domain.Question{}, "", fmt.Errorf("%w: question field must be json", domain.ErrInvalidArgument)
	}
	if err := h.validate.Struct(qp); err != nil {
		return 0, domain.Question{}, "", fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	q, err := qp.toDomain()
	if err != nil {
		return 0, domain.Question{}, "", err
	}

	f, _, err := r.FormFile("audio")
	if err != nil {
		return 0, domain.Question{}, "", fmt.Errorf("%w: audio part is required", domain.ErrInvalidArgument)
	}
	defer func() { _ = f.Close() }()
	audio, err := io.ReadAll(io.LimitReader(f, h.maxAudioBytes))
	if err != nil {
		return 0, domain.Question{}, "", fmt.Errorf("op=answers.readAudio: %w", err)
	}
	mt := mimetype.Detect(audio)
	if !strings.HasPrefix(mt.String(), "audio/") && !strings.HasPrefix(mt.String(), "video/webm") {
		return 0, domain.Question{}, "", fmt.Errorf("%w: unsupported audio type %s", domain.ErrInvalidArgument, mt.String())
	}
	text, err := h.transcriber.Transcribe(r.Context(), audio, mt.String())
	if err != nil {
		return 0, domain.Question{}, "", err
	}
	return ordinal, q, text, nil
}

type summaryResponse struct {
	AverageScore       float64 `json:"average_score"`
	TotalQuestions     int     `json:"total_questions"`
	ExcellentCount     int     `json:"excellent_count"`
	AverageCount       int     `json:"average_count"`
	PoorCount          int     `json:"poor_count"`
	OverallPerformance string  `json:"overall_performance"`
	Recommendation     string  `json:"recommendation"`
}

// CompleteSession handles POST /v1/sessions/{id}/complete.
func (h *Handler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := h.interviews.Complete(r.Context(), id)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	observability.SessionsCompletedTotal.Inc()
	writeJSON(w, http.StatusOK, summaryResponse{
		AverageScore:       summary.AverageScore,
		TotalQuestions:     summary.TotalQuestions,
		ExcellentCount:     summary.ExcellentCount,
		AverageCount:       summary.AverageCount,
		PoorCount:          summary.PoorCount,
		OverallPerformance: summary.OverallPerformance,
		Recommendation:     summary.Recommendation,
	})
}

// ListSessions handles GET /v1/sessions?limit=.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidArgument), nil)
			return
		}
		limit = v
	}
	sessions, err := h.interviews.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

type answerResponse struct {
	Ordinal        int       `json:"ordinal"`
	Question       string    `json:"question"`
	UserAnswer     string    `json:"user_answer"`
	IdealAnswer    string    `json:"ideal_answer"`
	Score          float64   `json:"score"`
	Category       string    `json:"category"`
	Feedback       string    `json:"feedback"`
	WhatWasGood    string    `json:"what_was_good"`
	WhatWasMissing string    `json:"what_was_missing"`
	HowToImprove   string    `json:"how_to_improve"`
	Source         string    `json:"source"`
	IsMCQCorrect   *bool     `json:"is_mcq_correct,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetSession handles GET /v1/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.interviews.Detail(r.Context(), id)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	answers := make([]answerResponse, 0, len(d.Answers))
	for _, a := range d.Answers {
		answers = append(answers, answerResponse{
			Ordinal:        a.Ordinal,
			Question:       a.QuestionText,
			UserAnswer:     a.UserAnswer,
			IdealAnswer:    a.IdealAnswer,
			Score:          a.Score,
			Category:       string(a.Category),
			Feedback:       a.Feedback,
			WhatWasGood:    a.WhatWasGood,
			WhatWasMissing: a.WhatWasMissing,
			HowToImprove:   a.HowToImprove,
			Source:         a.Source,
			IsMCQCorrect:   a.IsMCQCorrect,
			CreatedAt:      a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": toSessionResponse(d.Session),
		"answers": answers,
	})
}

type statsResponse struct {
	TotalCompleted int64                      `json:"total_completed"`
	OverallAverage float64                    `json:"overall_average"`
	PerRole        map[string]rolePerformance `json:"per_role"`
	Trend          string                     `json:"trend"`
}

type rolePerformance struct {
	AverageScore float64 `json:"average_score"`
	SessionCount int64   `json:"session_count"`
}

// GetStats handles GET /v1/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.interviews.Stats(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	perRole := make(map[string]rolePerformance, len(st.PerRole))
	for role, p := range st.PerRole {
		perRole[role] = rolePerformance{AverageScore: p.AverageScore, SessionCount: p.SessionCount}
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TotalCompleted: st.TotalCompleted,
		OverallAverage: st.OverallAverage,
		PerRole:        perRole,
		Trend:          st.Trend,
	})
}

// GetReport handles GET /v1/sessions/{id}/report as plain text.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.interviews.Report(r.Context(), id)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, report)
}

type speechRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// Speech handles POST /v1/speech, returning synthesized audio bytes.
func (h *Handler) Speech(w http.ResponseWriter, r *http.Request) {
	if h.synthesizer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorEnvelope{Error: apiError{
			Code: "NOT_CONFIGURED", Message: "speech synthesis is not configured",
		}})
		return
	}
	var req speechRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<18)).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json body", domain.ErrInvalidArgument), nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
		return
	}
	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/questionbank"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/scoring"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type fakeRepo struct {
	sessions map[string]*domain.SessionDetail
	nextID   int
	stats    domain.Statistics
	avgs     []float64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: map[string]*domain.SessionDetail{}}
}

func (r *fakeRepo) Create(_ domain.Context, role, level string) (string, error) {
	r.nextID++
	id := fmt.Sprintf("sess-%d", r.nextID)
	r.sessions[id] = &domain.SessionDetail{Session: domain.Session{
		ID: id, Role: role, Level: level,
		Status: domain.SessionInProgress, StartedAt: time.Now(),
	}}
	return id, nil
}

func (r *fakeRepo) Get(_ domain.Context, id string) (domain.SessionDetail, error) {
	d, ok := r.sessions[id]
	if !ok {
		return domain.SessionDetail{}, fmt.Errorf("op=repo.Get id=%s: %w", id, domain.ErrNotFound)
	}
	return *d, nil
}

func (r *fakeRepo) AppendAnswer(_ domain.Context, id string, a domain.SessionAnswer) error {
	d, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, existing := range d.Answers {
		if existing.Ordinal == a.Ordinal {
			return fmt.Errorf("op=repo.AppendAnswer ordinal=%d: %w", a.Ordinal, domain.ErrConflict)
		}
	}
	d.Answers = append(d.Answers, a)
	return nil
}

func (r *fakeRepo) Complete(_ domain.Context, id string, avg float64, total int) error {
	d, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if d.Session.Status != domain.SessionInProgress {
		return domain.ErrConflict
	}
	d.Session.Status = domain.SessionCompleted
	d.Session.AverageScore = avg
	d.Session.TotalQuestions = total
	return nil
}

func (r *fakeRepo) List(_ domain.Context, _ int) ([]domain.Session, error) {
	var out []domain.Session
	for _, d := range r.sessions {
		out = append(out, d.Session)
	}
	return out, nil
}

func (r *fakeRepo) RecentAverages(_ domain.Context, _ int) ([]float64, error) {
	return r.avgs, nil
}

func (r *fakeRepo) Stats(_ domain.Context) (domain.Statistics, error) {
	return r.stats, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ domain.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type fakeSynth struct {
	out []byte
	err error
}

func (f *fakeSynth) Synthesize(domain.Context, string) ([]byte, error) { return f.out, f.err }

type fakeSTT struct {
	text string
	err  error
}

func (f *fakeSTT) Transcribe(_ domain.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

func newTestRouter(t *testing.T, repo *fakeRepo, synth domain.SpeechSynthesizer, stt domain.Transcriber) http.Handler {
	t.Helper()
	bank, err := questionbank.Load()
	require.NoError(t, err)
	interviews := usecase.NewInterviewService(repo,
		usecase.NewQuestionService(nil, bank, "openai"),
		usecase.NewEvaluationService(nil, scoring.NewEngine(fakeEmbedder{}), "openai"),
		0, 10)
	h := httpserver.NewHandler(interviews, synth, stt, 10)

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", h.StartSession)
		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{id}", h.GetSession)
		r.Get("/sessions/{id}/question", h.GetQuestion)
		r.Post("/sessions/{id}/answers", h.SubmitAnswer)
		r.Post("/sessions/{id}/complete", h.CompleteSession)
		r.Get("/sessions/{id}/report", h.GetReport)
		r.Get("/stats", h.GetStats)
		r.Post("/speech", h.Speech)
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func startSession(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/sessions",
		map[string]string{"role": "Python Developer", "level": "Easy"})
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeBody(t, rec)["session_id"].(string)
}

func TestStartSession(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/sessions",
		map[string]string{"role": "Python Developer", "level": "Easy"})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, "in_progress", body["status"])
}

func TestStartSession_ValidationErrors(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/sessions",
		map[string]string{"role": "Python Developer", "level": "Impossible"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "INVALID_ARGUMENT", body["error"].(map[string]any)["code"])

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetQuestion(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)
	id := startSession(t, router)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id+"/question?n=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["question"])
	assert.NotEmpty(t, body["ideal_answer"])
	assert.Equal(t, "bank", body["source"])
}

func TestGetQuestion_Errors(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/nope/question", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := startSession(t, router)
	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id+"/question?n=abc", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func mcqPayload() map[string]any {
	return map[string]any{
		"question": "Which keyword defines a function in Python?",
		"options": map[string]string{
			"A": "func", "B": "def", "C": "function", "D": "lambda",
		},
		"correct_answer": "B",
		"ideal_answer":   "def introduces a function definition.",
	}
}

func TestSubmitAnswer_MCQ(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)
	id := startSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/answers", map[string]any{
		"ordinal":  0,
		"question": mcqPayload(),
		"answer":   "B",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 10.0, body["score"])
	assert.Equal(t, true, body["is_mcq_correct"])
	assert.Equal(t, true, body["persisted"])
	assert.Equal(t, "rule-based", body["source"])
}

func TestSubmitAnswer_DuplicateOrdinal(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)
	id := startSession(t, router)

	payload := map[string]any{"ordinal": 0, "question": mcqPayload(), "answer": "B"}
	rec := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/answers", payload)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/answers", payload)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitAnswer_MissingFields(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)
	id := startSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/answers", map[string]any{
		"question": mcqPayload(),
		"answer":   "B",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Minimal RIFF/WAVE header so content sniffing sees audio bytes.
var wavBytes = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)

func audioRequest(t *testing.T, path string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("ordinal", "0"))
	q, err := json.Marshal(map[string]any{
		"question":     "Explain Python lists.",
		"ideal_answer": "Lists are ordered mutable sequences.",
	})
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("question", string(q)))
	fw, err := mw.CreateFormFile("audio", "answer.wav")
	require.NoError(t, err)
	_, err = fw.Write(audio)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSubmitAnswer_AudioTranscribed(t *testing.T) {
	t.Parallel()
	stt := &fakeSTT{text: "lists are ordered mutable sequences in python"}
	router := newTestRouter(t, newFakeRepo(), nil, stt)
	id := startSession(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, audioRequest(t, "/v1/sessions/"+id+"/answers", wavBytes))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, stt.text, body["transcript"])
	assert.Equal(t, true, body["persisted"])
}

func TestSubmitAnswer_NonAudioBytesRejected(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, &fakeSTT{text: "x"})
	id := startSession(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, audioRequest(t, "/v1/sessions/"+id+"/answers", []byte("just some plain text")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAnswer_AudioWithoutTranscriber(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)
	id := startSession(t, router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, audioRequest(t, "/v1/sessions/"+id+"/answers", wavBytes))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteSession(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	router := newTestRouter(t, repo, nil, nil)
	id := startSession(t, router)
	repo.sessions[id].Answers = []domain.SessionAnswer{
		{Ordinal: 0, Score: 9}, {Ordinal: 1, Score: 9},
	}

	rec := doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 9.0, body["average_score"])
	assert.Equal(t, "Excellent", body["overall_performance"])

	rec = doJSON(t, router, http.MethodPost, "/v1/sessions/"+id+"/complete", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListSessions(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)
	startSession(t, router)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["sessions"], 1)

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions?limit=-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSession(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	router := newTestRouter(t, repo, nil, nil)
	id := startSession(t, router)
	repo.sessions[id].Answers = []domain.SessionAnswer{{
		Ordinal: 0, QuestionText: "q?", UserAnswer: "a", Score: 7.0,
		Category: domain.CategoryAverage,
	}}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, id, body["session"].(map[string]any)["session_id"])
	assert.Len(t, body["answers"], 1)
}

func TestGetStats(t *testing.T) {
	t.Parallel()
	repo := newFakeRepo()
	repo.stats = domain.Statistics{
		TotalCompleted: 3, OverallAverage: 7.2,
		PerRole: map[string]domain.RolePerformance{
			"Python Developer": {AverageScore: 7.2, SessionCount: 3},
		},
	}
	repo.avgs = []float64{7, 7}
	router := newTestRouter(t, repo, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 7.2, body["overall_average"])
	assert.Equal(t, "Stable", body["trend"])
}

func TestGetReport(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)
	id := startSession(t, router)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id+"/report", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "PERFORMANCE REPORT")
}

func TestSpeech(t *testing.T) {
	t.Parallel()
	synth := &fakeSynth{out: []byte("mp3-bytes")}
	router := newTestRouter(t, newFakeRepo(), synth, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/speech", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", rec.Body.String())
}

func TestSpeech_NotConfigured(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t, newFakeRepo(), nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/v1/speech", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "NOT_CONFIGURED", body["error"].(map[string]any)["code"])
}

package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus collectors. InitMetrics registers them once; helpers below are
// safe to call before registration (they just record into the vectors).
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, path pattern and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluations_total",
		Help: "Answer evaluations by provenance source.",
	}, []string{"source"})

	EvaluationScores = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evaluation_score",
		Help:    "Distribution of evaluation scores.",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})

	QuestionsServedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_served_total",
		Help: "Questions served by provenance source.",
	}, []string{"source"})

	SessionsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_completed_total",
		Help: "Interview sessions completed.",
	})

	AIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ai_requests_total",
		Help: "Upstream AI provider requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			EvaluationsTotal,
			EvaluationScores,
			QuestionsServedTotal,
			SessionsCompletedTotal,
			AIRequestsTotal,
		)
	})
}

// ObserveEvaluation records one evaluation outcome.
func ObserveEvaluation(source string, score float64) {
	EvaluationsTotal.WithLabelValues(source).Inc()
	EvaluationScores.Observe(score)
}

// ObserveAIRequest records one upstream provider call.
func ObserveAIRequest(endpoint string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	AIRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveQuestionServed records one served question by source.
func ObserveQuestionServed(source string) {
	QuestionsServedTotal.WithLabelValues(source).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request counts and latency. pathPattern
// avoids label cardinality blowup from raw URLs.
func HTTPMetricsMiddleware(pathPattern func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			path := pathPattern(r)
			HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

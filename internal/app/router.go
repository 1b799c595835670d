// Package app assembles the HTTP surface: middleware stack, health and
// metrics endpoints, and the versioned API routes.
package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
)

// HealthCheck probes one dependency. A nil check is skipped.
type HealthCheck func(ctx context.Context) error

// Dependencies carries everything the router needs.
type Dependencies struct {
	Cfg     config.Config
	Handler *httpserver.Handler

	// Readiness probes, typically database and cache pings.
	DBCheck    HealthCheck
	RedisCheck HealthCheck
}

const readyzTimeout = 2 * time.Second

// BuildRouter wires the middleware chain and all routes.
func BuildRouter(deps Dependencies) http.Handler {
	cfg := deps.Cfg
	r := chi.NewRouter()

	r.Use(httpserver.Recoverer())
	r.Use(middleware.RealIP)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.SecurityHeaders)
	r.Use(observability.HTTPMetricsMiddleware(httpserver.RoutePattern))
	r.Use(httpserver.AccessLog())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: splitOrigins(cfg.CORSAllowOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", readyzHandler(deps.DBCheck, deps.RedisCheck))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	h := deps.Handler
	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		}
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

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}

func readyzHandler(checks ...HealthCheck) http.HandlerFunc {
	names := []string{"db", "redis"}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
		defer cancel()

		ready := true
		var failed []string
		for i, check := range checks {
			if check == nil {
				continue
			}
			if err := check(ctx); err != nil {
				ready = false
				failed = append(failed, names[i])
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable","failed":"` + strings.Join(failed, ",") + `"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// Command server starts the AI Interview Coach HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/embedcache"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/real"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/voice"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/questionbank"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/scoring"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	observability.SetupLogger(cfg.AppEnv)
	observability.InitMetrics()

	ctx := context.Background()

	shutdownTracer, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	// Infra: DB pool and schema
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	repo := postgres.NewSessionsRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Error("schema migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Redis backs the embedding cache and readiness probing.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid redis url", slog.Any("error", err))
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	// AI client. Embeddings always go through the cache wrapper; the chat
	// client is only handed to the services when a key is configured, which
	// keeps question generation and evaluation on the deterministic path
	// otherwise.
	aicl := embedcache.New(real.New(cfg), rdb, cfg.EmbeddingsModel, cfg.EmbedCacheTTL)
	var chatAI domain.AIClient
	var synth domain.SpeechSynthesizer
	var stt domain.Transcriber
	if cfg.GenerativeEnabled() {
		chatAI = aicl
		vc := voice.New(cfg)
		synth, stt = vc, vc
		slog.Info("generative provider enabled", slog.String("provider", cfg.AIProvider))
	} else {
		slog.Info("no AI key configured, running rule-based only")
	}

	bank, err := questionbank.Load()
	if err != nil {
		slog.Error("question bank load failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Usecases
	interviews := usecase.NewInterviewService(repo,
		usecase.NewQuestionService(chatAI, bank, cfg.AIProvider),
		usecase.NewEvaluationService(chatAI, scoring.NewEngine(aicl), cfg.AIProvider),
		cfg.SessionTimeLimit, cfg.QuestionsPerSession)

	handler := app.BuildRouter(app.Dependencies{
		Cfg:        cfg,
		Handler:    httpserver.NewHandler(interviews, synth, stt, cfg.MaxAudioMB),
		DBCheck:    pool.Ping,
		RedisCheck: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(handler, "http.server"),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// Package observability wires logging, metrics and tracing adapters.
package observability

import (
	"log/slog"
	"os"
)

// SetupLogger configures the process-wide slog default: JSON output, debug
// level outside prod.
func SetupLogger(appEnv string) *slog.Logger {
	level := slog.LevelDebug
	if appEnv == "prod" {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app_env", appEnv))
	slog.SetDefault(logger)
	return logger
}

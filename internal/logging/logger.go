package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithGeneration returns a logger with generation context fields attached.
// Use this for all logging within a single summary generation attempt.
func WithGeneration(generationID, fingerprint, modelID string) *slog.Logger {
	return slog.With(
		"generation_id", generationID,
		"fingerprint", fingerprint,
		"model_id", modelID,
	)
}

// WithConnection returns a logger scoped to a live-typing connection.
func WithConnection(logger *slog.Logger, connID string) *slog.Logger {
	return logger.With("conn_id", connID)
}

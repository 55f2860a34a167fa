package logger

import (
	"log/slog"
	"os"

	"rag-backend/internal/config"
)

// New builds the process-wide structured logger. JSON output; debug level
// and source locations only in debug mode.
func New(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.GinMode == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.GinMode == "debug",
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(log)
	return log
}

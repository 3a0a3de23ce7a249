package observability

import (
	"log/slog"
	"os"
)

// LoggerConfig is the subset of service configuration the logger needs.
type LoggerConfig interface {
	LoggingLevel() string
	LoggingFormat() string
}

// NewLogger builds the process logger from config: JSON output for log
// aggregation by default, text for local development.
func NewLogger(cfg LoggerConfig) *slog.Logger {
	level := parseLevel(cfg.LoggingLevel())
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LoggingFormat() == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

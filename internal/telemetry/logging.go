package telemetry

import (
	"log/slog"
	"os"
)

// LogLevel reads LOG_LEVEL (DEBUG, INFO, WARN, ERROR). Default: INFO.
func LogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger installs the process-wide slog logger.
// LOG_FORMAT=json switches to JSON output; the default is the text handler,
// which is what you want when the captcha prompt shares the terminal.
func SetupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: LogLevel()}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// WithRunID returns a logger tagged with the workflow run id.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps debug, info, warn and error to slog levels; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns a JSON handler for format "json" and a text handler otherwise.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

// Setup installs the default logger writing to stderr.
func Setup(level, format string) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, level, format)))
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Format int

const (
	// JSON is used by the long running server.
	JSON Format = iota
	// Text is used by the CLI, which keeps stdout for its own output.
	Text
)

// Setup configures the global slog default. The level comes from LOG_LEVEL
// (DEBUG, INFO, WARN, ERROR) and defaults to INFO.
func Setup(format Format) {
	slog.SetDefault(New(format, levelWriter(format), os.Getenv("LOG_LEVEL")))
}

// New builds a logger writing to w at the given level name.
func New(format Format, w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if format == Text {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func levelWriter(format Format) io.Writer {
	if format == Text {
		return os.Stderr
	}
	return os.Stdout
}

func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Fatal logs at Error level and exits with code 1.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

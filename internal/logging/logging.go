package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup builds the process logger, installs it as the slog default and returns it.
// Unknown levels fall back to info.
func Setup(level string) *slog.Logger {
	return setup(os.Stderr, level)
}

func setup(w io.Writer, level string) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

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

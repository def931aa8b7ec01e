package utils

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON in production, text elsewhere
func NewLogger(goEnv string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if goEnv == "production" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// SetupLogger installs the logger as the slog default and returns it
func SetupLogger(goEnv string) *slog.Logger {
	logger := NewLogger(goEnv, os.Stdout).With("service", "coursehub-api")
	slog.SetDefault(logger)
	return logger
}

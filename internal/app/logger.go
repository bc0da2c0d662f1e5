package app

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a slog.Logger for the environment: JSON at Info in
// prod, text at Debug otherwise. A non-empty level overrides the default.
func NewLogger(env, level string) *slog.Logger {
	lvl := slog.LevelDebug
	if env == "prod" {
		lvl = slog.LevelInfo
	}
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if env == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

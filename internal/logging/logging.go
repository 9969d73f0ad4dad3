// Package logging configures the process-wide slog logger, the way
// HydraDNS's internal/logging does: level + structured/text output chosen
// from config, installed via slog.SetDefault.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config mirrors internal/config.LoggingConfig without importing it, to
// keep this package usable by anything that only has a level/format pair.
type Config struct {
	Level            string
	Structured       bool
	StructuredFormat string
	IncludePID       bool
}

// Configure builds a logger from cfg, installs it as the slog default, and
// returns it.
func Configure(cfg Config) *slog.Logger {
	level := parseLevel(cfg.Level)
	out := io.Writer(os.Stderr)

	var handler slog.Handler
	if cfg.Structured && strings.ToLower(cfg.StructuredFormat) != "json" {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	} else if cfg.Structured {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}

	if cfg.IncludePID {
		handler = handler.WithAttrs([]slog.Attr{slog.Int("pid", os.Getpid())})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

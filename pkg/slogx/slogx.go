package slogx

import (
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// DefaultRedactedKeys are attribute keys whose values never reach the log.
var DefaultRedactedKeys = []string{
	"access_token",
	"id_token",
	"code",
	"code_verifier",
	"client_secret",
	"cookie",
	"authorization",
}

const redacted = "[REDACTED]"

type Config struct {
	Service string
	Version string
	Env     string // e.g. "dev", "prod"
	Level   string // e.g. "debug", "info", "warn", "error"
	Format  string // e.g. "json", "text"

	// Output defaults to stdout.
	Output io.Writer

	// RedactKeys replaces DefaultRedactedKeys when non-nil. Matching is
	// case-insensitive and applies at any group depth.
	RedactKeys []string
}

// New returns a configured slog.Logger and installs it as the default.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	redact := cfg.RedactKeys
	if redact == nil {
		redact = DefaultRedactedKeys
	}

	opts := &slog.HandlerOptions{
		AddSource:   cfg.Env == "dev",
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: redactor(redact),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)

	slog.SetDefault(logger)
	return logger
}

func redactor(keys []string) func(groups []string, a slog.Attr) slog.Attr {
	lower := make([]string, len(keys))
	for i, k := range keys {
		lower[i] = strings.ToLower(k)
	}
	return func(_ []string, a slog.Attr) slog.Attr {
		if a.Value.Kind() != slog.KindGroup && slices.Contains(lower, strings.ToLower(a.Key)) {
			return slog.String(a.Key, redacted)
		}
		return a
	}
}

// parseLevel maps a string to slog.Level.
func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
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

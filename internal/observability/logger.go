// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package observability builds the structured logger and the Prometheus
// metrics shared by the resolution pipeline.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is "json" or "console".
	Format string

	// Output receives log lines. Nil means stderr, which keeps stdout free
	// for exported records.
	Output io.Writer
}

// NewLogger creates a zerolog logger from cfg.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(cfg.Level))
}

// ParseLevel converts a string log level to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithCitation adds citation position fields to a logger.
func WithCitation(logger zerolog.Logger, source string, position int) zerolog.Logger {
	return logger.With().
		Str("source", source).
		Int("position", position).
		Logger()
}

// WithProvider adds the provider name to a logger.
func WithProvider(logger zerolog.Logger, provider string) zerolog.Logger {
	return logger.With().Str("provider", provider).Logger()
}

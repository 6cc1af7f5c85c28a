// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithCorrelationID returns a copy of ctx carrying a logger derived from base
// with the correlation_id field bound. Loggers retrieved with FromContext
// downstream will stamp every event with that id.
func WithCorrelationID(ctx context.Context, base zerolog.Logger, correlationID string) context.Context {
	logger := base.With().Str("correlation_id", correlationID).Logger()
	return logger.WithContext(ctx)
}

// FromContext returns the request logger stored in ctx, or the global logger
// when none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, snapshot size)
//   - Loader activity (pages fetched, retries)
//
// Info: Normal operation events
//   - Completed requests (method, path, status, duration)
//   - Catalog reloads
//   - Server startup/shutdown, config reloads
//
// Warn: Warning conditions that don't prevent operation
//   - Unauthorized requests
//   - Upstream retry attempts
//   - Config reload failures (previous config kept)
//
// Error: Error conditions requiring attention
//   - Unhandled request failures (translated to 500)
//   - Catalog load failures
//   - Failed error responses (double fault)
//
// Context Fields:
//   - component: emitting package
//   - correlation_id: per-request id (X-Correlation-ID)
//   - method, path, status: HTTP request details
//   - duration: request or load duration
//   - cache_hit: Boolean indicating cache hit
//   - count, page, page_size: listing result shape

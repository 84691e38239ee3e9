// Package logging provides structured, component-scoped logging for
// swarmdeck's two processes, built on zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger. Call Init before using it.
var Logger zerolog.Logger

// Config controls how Init sets up the base logger.
type Config struct {
	Level      string // debug, info, warn, error
	JSONOutput bool
	Output     io.Writer // defaults to os.Stderr when nil
}

// Init configures the package-level Logger from cfg.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	Logger = zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a child logger tagged with the given component
// name, e.g. "bridge.dispatcher" or "api.actions".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithField returns a child logger with a single extra string field. Useful
// for one-off tags (agent id, session id) at call sites that don't warrant
// their own component.
func WithField(key, value string) zerolog.Logger {
	return Logger.With().Str(key, value).Logger()
}

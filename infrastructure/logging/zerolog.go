// Package logging provides the zerolog-backed implementation of the
// engine's Logger port.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nodecanvas/go-dataflow/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.Logger = (*ZerologLogger)(nil)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level emitted: debug, info, warn, or error.
	Level string
	// Format selects the output encoding: "json" for machine-readable
	// structured output or "console" for human-readable development
	// output.
	Format string
	// Output selects the destination: "stdout" or "stderr".
	Output string
	// NoColor disables ANSI colors in console format.
	NoColor bool
	// Timestamp adds a timestamp field to every event.
	Timestamp bool
}

// DefaultConfig returns a Config suitable for development: info level,
// console format on stdout, with timestamps.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: "stdout", Timestamp: true}
}

// ZerologLogger implements ports.Logger on zerolog, translating the
// port's key-value pairs into structured fields.
type ZerologLogger struct {
	logger zerolog.Logger
}

// New creates a logger from the given configuration. Unparseable levels
// fall back to info rather than failing: logging must never be the
// reason a host cannot start.
func New(cfg Config) *ZerologLogger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output := outputWriter(cfg.Output)

	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		})
	} else {
		zl = zerolog.New(output)
	}

	if cfg.Timestamp {
		zl = zl.With().Timestamp().Logger()
	}

	return &ZerologLogger{logger: zl.Level(level)}
}

// NewDefault creates a logger with the default configuration.
func NewDefault() *ZerologLogger {
	return New(DefaultConfig())
}

// FromZerolog wraps an existing zerolog.Logger, for hosts that already
// carry one.
func FromZerolog(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

// WithComponent returns a logger tagged with a component name.
func (l *ZerologLogger) WithComponent(name string) *ZerologLogger {
	return &ZerologLogger{logger: l.logger.With().Str("component", name).Logger()}
}

// Zerolog returns the underlying zerolog.Logger.
func (l *ZerologLogger) Zerolog() zerolog.Logger { return l.logger }

// Debug logs a debug message with alternating key-value fields.
func (l *ZerologLogger) Debug(msg string, keysAndValues ...any) {
	appendKV(l.logger.Debug(), keysAndValues).Msg(msg)
}

// Info logs an info message with alternating key-value fields.
func (l *ZerologLogger) Info(msg string, keysAndValues ...any) {
	appendKV(l.logger.Info(), keysAndValues).Msg(msg)
}

// Warn logs a warning message with alternating key-value fields.
func (l *ZerologLogger) Warn(msg string, keysAndValues ...any) {
	appendKV(l.logger.Warn(), keysAndValues).Msg(msg)
}

// Error logs an error message with alternating key-value fields.
func (l *ZerologLogger) Error(msg string, keysAndValues ...any) {
	appendKV(l.logger.Error(), keysAndValues).Msg(msg)
}

// appendKV attaches alternating key-value pairs to an event. Non-string
// keys are stringified, and a stray trailing value is kept under "arg"
// instead of being dropped.
func appendKV(event *zerolog.Event, keysAndValues []any) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keysAndValues[i])
		}
		event = event.Interface(key, keysAndValues[i+1])
	}
	if len(keysAndValues)%2 != 0 {
		event = event.Interface("arg", keysAndValues[len(keysAndValues)-1])
	}
	return event
}

// outputWriter maps a destination name to its file handle.
func outputWriter(output string) *os.File {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

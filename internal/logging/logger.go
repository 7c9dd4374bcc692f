// Package logging provides structured logging for the tuner using Go's
// standard log/slog package. Each pipeline stage gets a component-scoped
// logger; the optimizer's verbose mode routes its human-readable decision
// trace through the same layer.
//
// Example usage:
//
//	logger := logging.NewLogger(logging.Config{
//	    Level:     logging.LevelDebug,
//	    Format:    logging.FormatText,
//	    Component: "profiler",
//	})
//	logger.Debug("spawn cost measured",
//	    "marginal", marginal,
//	    "quality", quality,
//	)
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug logs measurement details and candidate scoring.
	LevelDebug Level = iota

	// LevelInfo logs decisions and milestones.
	LevelInfo

	// LevelWarn logs fallbacks and rejected overrides.
	LevelWarn

	// LevelError logs failures that prevented normal operation.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel converts our Level to slog.Level.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Format determines the output format for log messages.
type Format int

const (
	// FormatText outputs human-readable text. Default for a library that
	// mostly logs in verbose/debug sessions.
	FormatText Format = iota

	// FormatJSON outputs JSON objects for log aggregation.
	FormatJSON
)

// Config holds configuration for a Logger instance.
type Config struct {
	// Level sets the minimum log level. Messages below it are discarded.
	Level Level

	// Format determines the output format (Text or JSON).
	Format Format

	// Output is where log messages are written. Defaults to os.Stderr.
	Output io.Writer

	// Component is added to every message as the "component" field.
	Component string
}

// Logger wraps slog.Logger with component scoping for the tuner pipeline.
type Logger struct {
	slog      *slog.Logger
	component string
}

// NewLogger creates a Logger with the given configuration. A nil Output
// defaults to os.Stderr.
func NewLogger(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	base := slog.New(handler)
	if config.Component != "" {
		base = base.With("component", config.Component)
	}

	return &Logger{slog: base, component: config.Component}
}

// Nop returns a logger that discards everything. Used wherever a nil logger
// would otherwise have to be checked for.
func Nop() *Logger {
	return NewLogger(Config{Level: LevelError, Output: io.Discard})
}

// WithComponent returns a child logger scoped to the given component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		slog:      l.slog.With("component", name),
		component: name,
	}
}

// Component returns the component name this logger is scoped to.
func (l *Logger) Component() string {
	return l.component
}

// Debug logs at debug level with key-value attributes.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs at info level with key-value attributes.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs at warn level with key-value attributes.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs at error level with key-value attributes.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

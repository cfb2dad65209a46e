// Package logging wraps log/slog with the level parsing and component
// scoping used across the simulator. Services depend on *Logger and attach
// identifiers with With so every entry for one simulation can be correlated.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is a user facing log level decoupled from slog.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
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

// ParseLevel maps LOG_LEVEL values onto a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Options configures construction of a Logger.
type Options struct {
	Level     Level
	Format    string // json or text
	Output    io.Writer
	AddSource bool
}

// Logger is a thin structured logger. It is cheap to derive via With*.
type Logger struct {
	logger    *slog.Logger
	component string
}

// New builds a Logger from options. A nil Output writes to stdout.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	hopts := &slog.HandlerOptions{Level: slogLevel(opts.Level), AddSource: opts.AddSource}
	var handler slog.Handler
	if opts.Format == "text" {
		handler = slog.NewTextHandler(out, hopts)
	} else {
		handler = slog.NewJSONHandler(out, hopts)
	}
	return &Logger{logger: slog.New(handler)}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return New(Options{Output: io.Discard, Level: LevelError})
}

func slogLevel(l Level) slog.Level {
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

// WithComponent returns a copy tagged with a logical component (runner, store, hub...).
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{logger: l.logger.With(slog.String("component", component)), component: component}
}

// With returns a copy that attaches the given key/value pairs to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), component: l.component}
}

// Component returns the component this logger is scoped to.
func (l *Logger) Component() string { return l.component }

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Slog exposes the underlying slog logger for libraries that accept one.
func (l *Logger) Slog() *slog.Logger { return l.logger }

// Package log provides the component-tagged slog logger the binaries install
// as the process default.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Logger tags every record with the owning component.
type Logger struct {
	*slog.Logger
	component string
}

// New builds a text logger for the component at the given level.
func New(component string, level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:    slog.New(handler).With("component", component),
		component: component,
	}
}

// NewFromEnv reads LOG_LEVEL (debug, info, warn, error) and defaults to info.
func NewFromEnv(component string) *Logger {
	return New(component, levelFromEnv())
}

// WithComponent returns a logger for a sub-component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger process-wide, so package-level slog calls in
// services and storage carry the component field.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

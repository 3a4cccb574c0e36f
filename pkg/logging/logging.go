package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level mirrors slog's severities without forcing every call site to import
// log/slog directly.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes Level satisfy fmt.Stringer.
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

// SlogLevel converts to the underlying slog.Level.
func (l Level) SlogLevel() slog.Level {
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

// ParseLevel parses MCP_PORTAL_LOG_LEVEL-style strings, defaulting to Info.
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

var (
	mu      sync.RWMutex
	logger  = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	minimum = LevelInfo
)

// Init (re)configures the package-global logger. Safe to call once at
// startup; subsequent calls (e.g. in tests) simply swap the handler.
func Init(level Level, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	mu.Lock()
	defer mu.Unlock()
	minimum = level
	logger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level.SlogLevel()}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug-level message tagged with the emitting subsystem.
func Debug(subsystem, format string, args ...any) {
	current().Debug(fmt.Sprintf(format, args...), "subsystem", subsystem)
}

// Info logs an info-level message tagged with the emitting subsystem.
func Info(subsystem, format string, args ...any) {
	current().Info(fmt.Sprintf(format, args...), "subsystem", subsystem)
}

// Warn logs a warn-level message tagged with the emitting subsystem.
func Warn(subsystem, format string, args ...any) {
	current().Warn(fmt.Sprintf(format, args...), "subsystem", subsystem)
}

// Error logs an error-level message, attaching err as a structured field.
func Error(subsystem string, err error, format string, args ...any) {
	current().Error(fmt.Sprintf(format, args...), "subsystem", subsystem, "error", err)
}

// Enabled reports whether messages at level would currently be emitted.
// Callers use this to skip building expensive log arguments.
func Enabled(level Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return level >= minimum
}

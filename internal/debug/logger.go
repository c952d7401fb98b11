// Package debug provides debug logging for the engine using log/slog.
// Bound parameter values are never passed to this package; callers log
// counts and shapes, not filter values.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Init enables or disables debug logging. When enabled, logs go to stderr
// as text; when disabled, they are discarded.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	if enable {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

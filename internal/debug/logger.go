// Package debug provides the process-wide structured logger
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	// logger is the global logger instance
	logger *slog.Logger
	// enabled indicates if debug logging is enabled
	enabled bool
	// mu protects the logger and enabled flag
	mu sync.RWMutex
)

func init() {
	Configure(os.Stderr, false, false)
}

// Init initializes the logger writing text to os.Stderr.
// If enable is false only warnings and errors are written.
func Init(enable bool) {
	Configure(os.Stderr, enable, false)
}

// Configure directs log output to w. Debug records are kept when enable is
// set; asJSON switches from the text to the JSON handler.
func Configure(w io.Writer, enable, asJSON bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable

	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if enable {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if asJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger = slog.New(handler)
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

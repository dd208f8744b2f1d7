// Package obslog provides the single structured logger used across fae.
// It follows the teacher repo's convention of writing diagnostics to
// stderr gated by a verbosity flag, built on the standard library's
// log/slog rather than a third-party logging framework (see DESIGN.md for
// why no pack repo justifies pulling one in here).
package obslog

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	current *slog.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
)

// Configure installs the process-wide logger, verbose enabling debug-level
// output. Tests should call this once per fresh instantiation rather than
// relying on process-level init.
func Configure(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	mu.Lock()
	defer mu.Unlock()
	current = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Logger returns the current process-wide logger.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return current
}

// Debug logs at debug level via the current logger.
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }

// Info logs at info level via the current logger.
func Info(msg string, args ...any) { Logger().Info(msg, args...) }

// Warn logs at warn level via the current logger.
func Warn(msg string, args ...any) { Logger().Warn(msg, args...) }

// Error logs at error level via the current logger.
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// WithContext returns a logger enriched with values pulled from ctx, reserved
// for future request-scoped fields (dispatch id, query). Currently a pass
// through; kept as a seam so dispatch.go doesn't need to change call sites
// later.
func WithContext(ctx context.Context) *slog.Logger {
	_ = ctx
	return Logger()
}

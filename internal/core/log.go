package core

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the logger installed via SetLogger. When nil, logging falls
// back to slog.Default tagged with a component attribute.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches the fallback so the With call runs at most once
// between SetLogger calls instead of on every log line. SetLogger clears it
// so the next fallback picks up the current slog default.
var defaultLogger atomic.Pointer[slog.Logger]

// SetLogger replaces the package logger. Passing nil restores the default.
// Safe to call concurrently with running pools.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}

// Log returns the active logger for the public wrapper package, which has no
// logger state of its own.
func Log() *slog.Logger {
	return log()
}

// log returns the active logger, building the cached default on first use.
// It never returns nil, even when SetLogger races with the cache fill.
func log() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "sitepool")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if cached := defaultLogger.Load(); cached != nil {
		return cached
	}
	return l
}

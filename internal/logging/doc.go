// Package logging assembles structured slog loggers and formatting helpers used
// across mediacache.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so worker code can automatically
// tag log lines with cache item IDs, worker names, and correlation IDs. The
// package also provides a no-op logger for tests and wiring code that cannot fail.
package logging

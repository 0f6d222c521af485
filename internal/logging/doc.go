// Package logging assembles structured slog loggers and formatting helpers used
// across tonight.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing (including size-based rotation of the log file), and exposes
// context-aware helpers so arbiter code can automatically tag log lines with
// household keys, decision IDs, and correlation IDs. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging

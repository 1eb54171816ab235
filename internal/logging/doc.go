// Package logging assembles structured slog loggers and formatting helpers used
// by every exohunt stage.
//
// It owns the configurable console/JSON handlers, the per-run log file that
// mirrors console output as JSON, and context-aware helpers so stage code can
// tag log lines with run IDs, stages, targets, files, and batch positions. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// records with the same shape as the rest of the pipeline.
package logging

// Package services defines shared utilities consumed by every pipeline stage.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, targets, files, and
//     batch positions for logging.
//   - Structured error markers plus the Wrap helper that let callers decide
//     whether a failure skips an item or stops the run.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services

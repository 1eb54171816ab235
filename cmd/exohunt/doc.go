// Package main hosts the exohunt CLI entrypoint and command graph.
//
// Each pipeline stage is a Cobra subcommand that can run on its own:
// targets parses the star table, fetch downloads light curves, analyze
// searches and fits them, and train builds the classifier artifact. The
// run command chains the first three stages in one process. Configuration
// resolution, the run lock, per-run logging and signal handling are set up
// here so the internal packages only see a validated config and a context.
package main

// Package fetch downloads every light-curve segment of a target and writes one
// CSV per segment under <lightcurve_dir>/<mission>/.
//
// Missing data is not an error: a target without segments yields an empty
// report, failed and empty segments are logged and skipped, and a run of
// consecutive download failures trips a per-target circuit breaker.
package fetch

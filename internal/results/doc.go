// Package results appends feature records to the feature CSV one row at a
// time under an advisory file lock, and regenerates the file from the
// processed index when records are replaced.
package results

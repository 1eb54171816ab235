// Package textutil provides naming helpers for files written by the pipeline:
// filesystem-safe names, target and mission labels, and file stems.
package textutil

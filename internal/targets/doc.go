// Package targets reads the candidate-star spreadsheet export and yields the
// catalog identifiers to fetch.
//
// The export carries a comment preamble of fixed but file-specific length. Two
// strategies locate the header: fixed_offset (header is an exact 1-based line)
// and skip_rows (skip N leading lines, the next non-blank line is the header).
// Rows whose identifier is not a positive integer are dropped, logged, and
// returned in Result.Skipped so every loss is auditable.
package targets

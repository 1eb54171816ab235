// Package analysis runs the per-file transit pipeline: clean and detrend a
// saved light curve, search it with every configured BLS grid strategy, fit
// the transit model on the strongest candidate, derive and classify the
// feature record, and persist the folded curve, plots and record.
//
// A file whose search or fit fails still produces a sentinel record so the
// feature table lists every input exactly once.
package analysis

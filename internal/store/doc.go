// Package store persists the processed-file index in SQLite.
//
// Each analysed light curve has one row keyed by its filename. Re-analysing a
// file upserts the row, so the index never holds duplicates and the feature
// CSV can be regenerated from it.
package store

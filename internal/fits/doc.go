// Package fits decodes the subset of the FITS format used by mission
// light-curve products: a primary HDU followed by one or more BINTABLE
// extensions with scalar numeric columns.
//
// Only what the fetcher needs is supported. Image data is skipped, variable
// length arrays are rejected and string columns are exposed as raw bytes.
package fits

// Package preflight provides readiness checks for the filesystem paths,
// archive endpoint and artifacts that exohunt depends on.
//
// "exohunt check" renders every result; "exohunt run" calls RunAll before the
// first stage and stops when a required check fails, so a batch does not
// spend an hour downloading into a directory it cannot write.
package preflight

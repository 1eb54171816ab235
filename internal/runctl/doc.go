// Package runctl owns the cancellation contract shared by every batch stage.
//
// A Controller holds the run's root context. SIGTERM, or a hard stop, cancels
// the root. Each loop item runs in a child context; with the skip_item policy
// a single SIGINT cancels only the current item and the loop moves on, while a
// second SIGINT inside the hard-stop window (or any SIGINT under the stop
// policy) cancels the whole run. RunLock keeps two pipelines from writing the
// same output tree.
package runctl

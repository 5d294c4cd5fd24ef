// Package task runs background work off the caller's path and reports exactly
// one terminal result per execution.
//
// It provides a single-use Runner (one task body, one result, then discarded),
// a bounded TaskQueue drained by a WorkerPool, and a ConstrainedScheduler that
// holds tasks until host-delivered conditions such as network connectivity are
// met. Failures are terminal per submission: nothing is retried automatically.
package task

// Package processor drains the cache item queue.
//
// A Processor holds an exclusive, non-blocking lock for the duration of a run
// so only one instance works against a lock directory at a time. For every
// item it resolves the source file, template and media type, asks the worker
// resolver for a worker and runs it under a per-item timeout. Item failures
// are recorded on the item and never abort the run; lookup failures and lock
// conflicts do.
package processor

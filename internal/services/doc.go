// Package services defines shared utilities consumed by the workers, the queue
// processor, and the HTTP layer.
//
// Key responsibilities:
//   - Context helpers that stamp cache item IDs, worker names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent cache statuses (missing vs error).
//
// Use these helpers when wiring new worker logic so error handling and
// observability stay uniform across the pipeline.
package services

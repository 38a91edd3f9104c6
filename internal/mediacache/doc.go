// Package mediacache models cache items (one derivative of one file version
// under one template revision) and persists them in SQLite.
//
// The pipeline only ever creates and updates cache items; deletion is an
// administrative action exposed through the CLI. Each UpdateCacheItem call is
// flushed on its own so a crash mid-batch loses at most the in-flight item.
package mediacache

// Package volume resolves source files registered under configured volumes.
//
// A volume is a root directory plus an identifier. File records (id, version,
// relative path, media type) live in the SQLite files table; physical paths
// are resolved against the volume root. Lookups are memoised in a bounded LRU
// because the processor resolves the same files repeatedly during a batch.
package volume

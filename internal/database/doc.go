// Package database owns the SQLite connection shared by the cache, file, and
// property stores.
//
// Open applies the connection pragmas (WAL, foreign keys, busy timeout),
// creates the embedded schema on first use, and refuses to run against a
// database written by a different schema version. Exec and the query helpers
// retry SQLITE_BUSY with a short exponential backoff so the CLI, the status
// server, and a running queue can share one database file.
package database

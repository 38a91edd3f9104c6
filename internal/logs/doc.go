// Package logs reads the mediacache log file incrementally. Callers keep the
// returned offset and pass it back to receive only newer lines, which is how
// `mediacache logs --follow` and the /api/logs endpoint page through output.
package logs

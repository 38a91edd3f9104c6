// Package api defines the wire-format types served by the HTTP status server
// and printed by `mediacache items show --json`. It translates cache items
// into transport-friendly DTOs so consumers do not couple to internal types.
//
// DTOs use camelCase JSON tags. Statuses are exposed as lowercase strings and
// timestamps use RFC3339 with milliseconds.
package api

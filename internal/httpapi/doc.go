// Package httpapi serves the read-only status API used by `mediacache serve`:
// liveness and queue freshness on /healthz, Prometheus metrics on /metrics,
// and cache item inspection under /api.
package httpapi

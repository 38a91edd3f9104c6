// Package preflight provides readiness checks for the filesystem paths,
// templates and external tools mediacache depends on.
//
// `mediacache doctor` prints every result; `mediacache process` and
// `mediacache serve` run RunAll first and refuse to start when a required
// check fails, so a queue run is not wasted on a broken setup.
package preflight

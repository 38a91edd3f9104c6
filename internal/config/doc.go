// Package config loads, normalizes, and validates mediacache configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// MEDIACACHE_LOCK_DIR. The Config type centralizes every knob the processor
// and CLI need: lock and scratch directories, external tool binaries, worker
// order, volumes, and storage backends.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

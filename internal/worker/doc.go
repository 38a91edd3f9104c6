// Package worker turns a queued cache item into a stored rendition.
//
// Each Worker declares which (template, file, media type) triples it accepts
// and, when selected by the Resolver, drives the item through the same
// lifecycle: claim the item, check preconditions, render into the temp
// directory, inspect the output, store it and persist the final state.
// Every exit path leaves the item in a terminal state and writes it through
// the cache manager; only a failure to persist is returned as an error.
package worker

package processor

import (
	"mediacache/internal/mediacache"
)

// OutcomeKind classifies the result of processing one item.
type OutcomeKind string

const (
	// Skipped items were not processed; Reason says why.
	Skipped OutcomeKind = "skipped"
	// Failed items ended in error; Err carries the failure.
	Failed OutcomeKind = "failed"
	// Completed items reached a terminal status other than error.
	Completed OutcomeKind = "completed"
)

// Skip reasons.
const (
	ReasonNoWorker    = "no_worker"
	ReasonNoCacheItem = "no_cacheitem"
)

// Outcome is reported to the callback once per item.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Worker string
	Item   *mediacache.CacheItem
	Status mediacache.CacheStatus
	Err    error
}

// Callback receives outcomes synchronously, in queue order.
type Callback func(Outcome)

func (c Callback) emit(o Outcome) {
	if c != nil {
		c(o)
	}
}

// Label is the metrics and log label for the outcome.
func (o Outcome) Label() string {
	switch o.Kind {
	case Skipped:
		return o.Reason
	case Failed:
		return string(mediacache.StatusError)
	default:
		return string(o.Status)
	}
}

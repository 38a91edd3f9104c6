package processor

import (
	"context"
	"fmt"
	"time"
)

// DefaultMaxRunAge is how long the queue may go without a run before the
// health check complains.
const DefaultMaxRunAge = 24 * time.Hour

// Health problems reported by CheckLastRun.
const (
	ProblemNeverRun = "never run"
	ProblemStale    = "last run more than %s ago"
)

// LastRunReader reads the last-run timestamp.
type LastRunReader interface {
	GetTime(ctx context.Context, namespace, key string) (time.Time, bool, error)
}

// HealthReport describes the queue freshness.
type HealthReport struct {
	LastRun  time.Time
	Problems []string
}

// Healthy reports whether no problems were found.
func (r HealthReport) Healthy() bool { return len(r.Problems) == 0 }

// CheckLastRun compares the recorded last run with now. A maxAge of zero uses
// DefaultMaxRunAge.
func CheckLastRun(ctx context.Context, props LastRunReader, now time.Time, maxAge time.Duration) (HealthReport, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxRunAge
	}
	lastRun, ok, err := props.GetTime(ctx, PropertyNamespace, PropertyLastRun)
	if err != nil {
		return HealthReport{}, fmt.Errorf("read last run: %w", err)
	}
	if !ok {
		return HealthReport{Problems: []string{ProblemNeverRun}}, nil
	}
	report := HealthReport{LastRun: lastRun}
	if now.Sub(lastRun) > maxAge {
		report.Problems = append(report.Problems, fmt.Sprintf(ProblemStale, formatAge(maxAge)))
	}
	return report, nil
}

func formatAge(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}

package processor_test

import (
	"context"
	"testing"
	"time"

	"mediacache/internal/processor"
	"mediacache/internal/properties"
	"mediacache/internal/testsupport"
)

func TestCheckLastRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	props := properties.New(testsupport.MustOpenDB(t, cfg))
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	report, err := processor.CheckLastRun(ctx, props, now, 0)
	if err != nil {
		t.Fatalf("CheckLastRun: %v", err)
	}
	if report.Healthy() || report.Problems[0] != processor.ProblemNeverRun {
		t.Fatalf("expected never run, got %+v", report)
	}

	if err := props.SetTime(ctx, processor.PropertyNamespace, processor.PropertyLastRun, now.Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	report, err = processor.CheckLastRun(ctx, props, now, 0)
	if err != nil || !report.Healthy() {
		t.Fatalf("expected healthy report, got %+v (%v)", report, err)
	}
	if !report.LastRun.Equal(now.Add(-2 * time.Hour)) {
		t.Fatalf("unexpected last run %s", report.LastRun)
	}

	report, err = processor.CheckLastRun(ctx, props, now.Add(48*time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if report.Healthy() || report.Problems[0] != "last run more than 24h ago" {
		t.Fatalf("expected stale report, got %+v", report)
	}
}

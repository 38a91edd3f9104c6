package processor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes processor counters. A nil *Metrics records nothing.
type Metrics struct {
	items    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

// NewMetrics registers the processor metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		items: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacache_items_processed_total",
				Help: "Cache items handled by the processor, by worker and outcome.",
			},
			[]string{"worker", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediacache_item_duration_seconds",
				Help:    "Time spent in a worker per cache item.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"worker"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediacache_queue_runs_total",
				Help: "Queue runs by result.",
			},
			[]string{"result"},
		),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mediacache_last_run_timestamp_seconds",
			Help: "Unix time of the last processed cache item.",
		}),
	}
}

func (m *Metrics) observeItem(worker string, outcome Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(worker, outcome.Label()).Inc()
	if worker != "" {
		m.duration.WithLabelValues(worker).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeRun(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
}

func (m *Metrics) setLastRun(t time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(t.Unix()))
}

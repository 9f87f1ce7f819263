// Package observability holds the Prometheus instrumentation for the
// negotiation pipeline.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the pipeline's counters and latencies.
type Metrics struct {
	TurnsTotal     *prometheus.CounterVec
	OverridesTotal *prometheus.CounterVec
	BrainLatency   prometheus.Histogram
	FallbacksTotal prometheus.Counter
	SummariesTotal *prometheus.CounterVec
	StoreFailures  *prometheus.CounterVec
}

// New creates the metric set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vyapari_turns_total",
				Help: "Processed negotiation turns by final stage",
			},
			[]string{"stage"},
		),
		OverridesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vyapari_overrides_total",
				Help: "Validation overrides applied, by corrected field",
			},
			[]string{"field"},
		),
		BrainLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vyapari_brain_latency_seconds",
				Help:    "Duration of generation calls, retries included",
				Buckets: prometheus.DefBuckets,
			},
		),
		FallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vyapari_brain_fallbacks_total",
				Help: "Turns answered with the fixed fallback reply",
			},
		),
		SummariesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vyapari_session_summaries_total",
				Help: "Sessions reaching a terminal stage, by terminal kind",
			},
			[]string{"terminal"},
		),
		StoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vyapari_store_failures_total",
				Help: "Fatal session store failures, by operation",
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(
		m.TurnsTotal,
		m.OverridesTotal,
		m.BrainLatency,
		m.FallbacksTotal,
		m.SummariesTotal,
		m.StoreFailures,
	)
	return m
}

// NewNop creates an unregistered metric set for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveBrain records one generation call's duration.
func (m *Metrics) ObserveBrain(start time.Time) {
	m.BrainLatency.Observe(time.Since(start).Seconds())
}

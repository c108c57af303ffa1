package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for gating, signal fetches and the TTL cache. All methods are
// safe on a nil receiver so collaborators may run without metrics.
type Metrics struct {
	GateDecisions  *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	SignalFetches  *prometheus.CounterVec
	SignalDuration *prometheus.HistogramVec
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer in production and a fresh
// registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientcore_gate_decisions_total",
			Help: "Guard decisions by gating state and guard kind",
		}, []string{"state", "guard"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientcore_cache_lookups_total",
			Help: "TTL cache reads by result",
		}, []string{"result"}), // result: "hit", "miss"

		SignalFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clientcore_signal_fetches_total",
			Help: "Identity signal fetches by signal and outcome",
		}, []string{"signal", "outcome"}), // outcome: "committed", "stale", "error", "dropped"

		SignalDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clientcore_signal_fetch_duration_seconds",
			Help:    "Duration of identity signal fetches",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"signal"}),
	}
}

// IncGateDecision records one guard evaluation.
func (m *Metrics) IncGateDecision(state, guard string) {
	if m != nil {
		m.GateDecisions.WithLabelValues(state, guard).Inc()
	}
}

// IncCacheLookup records a cache hit or miss.
func (m *Metrics) IncCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveSignalFetch records the outcome and latency of one signal fetch.
func (m *Metrics) ObserveSignalFetch(signal, outcome string, d time.Duration) {
	if m != nil {
		m.SignalFetches.WithLabelValues(signal, outcome).Inc()
		m.SignalDuration.WithLabelValues(signal).Observe(d.Seconds())
	}
}

// Package metrics holds the Prometheus collectors updated by resolution
// rounds.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Round outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeAborted = "aborted"
)

// Metrics is the set of collectors of one engine.
type Metrics struct {
	RoundsTotal      *prometheus.CounterVec
	DiagnosticsTotal *prometheus.CounterVec
	RoundDuration    prometheus.Histogram
	Bindings         prometheus.Gauge
	Components       prometheus.Gauge
	ManifestCache    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which keeps several engines in one process from
// colliding.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graft_rounds_total",
				Help: "Number of resolution rounds by outcome.",
			},
			[]string{"outcome"},
		),
		DiagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graft_diagnostics_total",
				Help: "Number of diagnostics reported by kind and severity.",
			},
			[]string{"kind", "severity"},
		),
		RoundDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "graft_round_duration_seconds",
				Help:    "Time taken to resolve, validate and persist a round.",
				Buckets: prometheus.DefBuckets,
			},
		),
		Bindings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "graft_round_bindings",
				Help: "Number of owned bindings in the last completed round.",
			},
		),
		Components: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "graft_round_components",
				Help: "Number of component graphs in the last completed round.",
			},
		),
		ManifestCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "graft_manifest_cache_total",
				Help: "Manifest decode cache lookups by result.",
			},
			[]string{"result"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.RoundsTotal,
			m.DiagnosticsTotal,
			m.RoundDuration,
			m.Bindings,
			m.Components,
			m.ManifestCache,
		)
	}
	return m
}

// ObserveRound records a finished round.
func (m *Metrics) ObserveRound(outcome string, elapsed time.Duration) {
	m.RoundsTotal.WithLabelValues(outcome).Inc()
	m.RoundDuration.Observe(elapsed.Seconds())
}

// ObserveDiagnostic counts one diagnostic.
func (m *Metrics) ObserveDiagnostic(kind, severity string) {
	m.DiagnosticsTotal.WithLabelValues(kind, severity).Inc()
}

// SetSize records the size of the last completed round.
func (m *Metrics) SetSize(components, bindings int) {
	m.Components.Set(float64(components))
	m.Bindings.Set(float64(bindings))
}

// CacheLookup counts a manifest cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ManifestCache.WithLabelValues(result).Inc()
}

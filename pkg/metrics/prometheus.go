package metrics

import (
	"MacroCompass/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches   *prometheus.CounterVec
	cache     *prometheus.CounterVec
	composite prometheus.Gauge
	component *prometheus.GaugeVec
	snapshots *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macrocompass_provider_fetch_total",
				Help: "Provider group fetches by outcome",
			},
			[]string{"source", "result"},
		),
		cache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macrocompass_cache_requests_total",
				Help: "Regime cache lookups by outcome",
			},
			[]string{"result"},
		),
		composite: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "macrocompass_regime_composite",
				Help: "Latest composite regime score",
			},
		),
		component: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macrocompass_regime_component",
				Help: "Latest normalized component score",
			},
			[]string{"component"},
		),
		snapshots: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macrocompass_snapshots_recorded_total",
				Help: "Regime snapshots handed to a backend",
			},
			[]string{"backend"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macrocompass_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macrocompass_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch counts one provider group outcome.
func (r *Recorder) RecordFetch(source string, fallback bool) {
	result := models.SourceLive
	if fallback {
		result = models.SourceFallback
	}
	r.fetches.WithLabelValues(source, result).Inc()
}

// RecordCache counts a cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	if hit {
		r.cache.WithLabelValues("hit").Inc()
		return
	}
	r.cache.WithLabelValues("miss").Inc()
}

// RecordComposite publishes the latest scores.
func (r *Recorder) RecordComposite(composite float64, components []models.ComponentScore) {
	r.composite.Set(composite)
	for _, c := range components {
		r.component.WithLabelValues(c.Name).Set(c.Value)
	}
}

// RecordSnapshot counts a snapshot routed to backend.
func (r *Recorder) RecordSnapshot(backend string) {
	r.snapshots.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordFetch(string, bool) {}
func (Nop) RecordCache(bool) {}
func (Nop) RecordComposite(float64, []models.ComponentScore) {}
func (Nop) RecordSnapshot(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}

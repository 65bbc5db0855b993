package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions      *prometheus.CounterVec
	overrides      *prometheus.CounterVec
	contested      *prometheus.CounterVec
	signalsDropped *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_decisions_total",
				Help: "Decisions produced, by verdict and horizon",
			},
			[]string{"verdict", "horizon"},
		),
		overrides: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_overrides_total",
				Help: "Locked decisions replaced through confirmed overrides",
			},
			[]string{"instrument"},
		),
		contested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_contested_total",
				Help: "Decisions flagged as contested",
			},
			[]string{"instrument"},
		),
		signalsDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_signals_dropped_total",
				Help: "Signals rejected during collection, by reason",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalfuse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalfuse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordDecision records a produced decision.
func (r *Recorder) RecordDecision(verdict, horizon string) {
	r.decisions.WithLabelValues(verdict, horizon).Inc()
}

// RecordOverride records a confirmed override.
func (r *Recorder) RecordOverride(instrument string) {
	r.overrides.WithLabelValues(instrument).Inc()
}

// RecordContested records a contested decision.
func (r *Recorder) RecordContested(instrument string) {
	r.contested.WithLabelValues(instrument).Inc()
}

// RecordSignalDropped records a signal rejected during collection.
func (r *Recorder) RecordSignalDropped(reason string) {
	r.signalsDropped.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

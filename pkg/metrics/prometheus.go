package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	oracleCalls  *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	signals      *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		oracleCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_oracle_requests_total",
				Help: "Total oracle requests by kind and result",
			},
			[]string{"kind", "result"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_cache_lookups_total",
				Help: "Analysis cache lookups by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_signals_synthesized_total",
				Help: "Synthesized signals by type",
			},
			[]string{"type"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordOracleCall records one oracle request outcome.
func (r *Recorder) RecordOracleCall(kind, result string) {
	r.oracleCalls.WithLabelValues(kind, result).Inc()
}

// RecordCacheLookup records one freshness-gate lookup outcome.
func (r *Recorder) RecordCacheLookup(kind, outcome string) {
	r.cacheLookups.WithLabelValues(kind, outcome).Inc()
}

// RecordSignal records one synthesized signal.
func (r *Recorder) RecordSignal(signalType string) {
	r.signals.WithLabelValues(signalType).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

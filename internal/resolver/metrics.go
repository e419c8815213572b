package resolver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kosarica/rule-resolver/internal/rules"
)

var (
	// resolutions counts resolutions by outcome.
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_resolver_resolutions_total",
		Help: "Total number of resolutions by outcome",
	}, []string{"outcome"}) // outcome: ok, not_found, backend_error, invalid

	// resolutionDuration tracks end-to-end resolution latency.
	resolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rule_resolver_resolution_duration_seconds",
		Help:    "Time taken to resolve a product code",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// candidateRules tracks how many candidates the backend filter returned.
	candidateRules = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rule_resolver_candidate_rules_count",
		Help:    "Number of candidate rules returned by the backend filter",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	// classifiedRules counts rules kept by the classifier per scope.
	classifiedRules = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_resolver_classified_rules_total",
		Help: "Total number of rules kept by the classifier by scope",
	}, []string{"scope"})

	// droppedRules counts candidates the classifier rejected.
	droppedRules = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rule_resolver_dropped_rules_total",
		Help: "Total number of candidate rules dropped by the classifier",
	})

	// backendCallDuration tracks each backend operation.
	backendCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rule_resolver_backend_call_duration_seconds",
		Help:    "Time taken by backend calls by operation",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"op"})
)

// MetricsRecorder provides methods to record resolver metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordResolution records the outcome and latency of one resolution.
func (m *MetricsRecorder) RecordResolution(outcome string, duration time.Duration) {
	resolutions.WithLabelValues(outcome).Inc()
	resolutionDuration.Observe(duration.Seconds())
}

// RecordClassification records candidate and surviving rule counts.
func (m *MetricsRecorder) RecordClassification(candidates int, buckets *rules.Buckets) {
	candidateRules.Observe(float64(candidates))
	for scope, n := range buckets.Counts() {
		classifiedRules.WithLabelValues(string(scope)).Add(float64(n))
	}
	if dropped := candidates - buckets.Len(); dropped > 0 {
		droppedRules.Add(float64(dropped))
	}
}

// RecordBackendCall records the latency of one backend call.
func (m *MetricsRecorder) RecordBackendCall(op string, duration time.Duration) {
	backendCallDuration.WithLabelValues(op).Observe(duration.Seconds())
}

package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ComponentMetrics implements Recorder for one subsystem. Metric names are
// prefixed with the namespace and the subsystem name, e.g.
// reviewboard_export_operations_total.
type ComponentMetrics struct {
	Operations *prometheus.CounterVec   // operations by operation and status
	Durations  *prometheus.HistogramVec // latency by operation
	Errors     *prometheus.CounterVec   // errors by operation and error type
}

// NewComponentMetrics creates and registers the collectors for subsystem.
func NewComponentMetrics(registry prometheus.Registerer, subsystem string) (*ComponentMetrics, error) {
	m := &ComponentMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Total operations by operation and outcome",
		}, []string{"operation", "status"}),
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Operation latency in seconds",
			Buckets:   durationBuckets,
		}, []string{"operation"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total errors by operation and error category",
		}, []string{"operation", "error_type"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register %s metrics: %w", subsystem, err)
	}
	return m, nil
}

// RecordOperation implements Recorder.
func (m *ComponentMetrics) RecordOperation(operation, status string) {
	m.Operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *ComponentMetrics) RecordDuration(operation string, seconds float64) {
	m.Durations.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *ComponentMetrics) RecordError(operation, errorType string) {
	m.Errors.WithLabelValues(operation, errorType).Inc()
}

// Describe implements prometheus.Collector.
func (m *ComponentMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Operations.Describe(ch)
	m.Durations.Describe(ch)
	m.Errors.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *ComponentMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Operations.Collect(ch)
	m.Durations.Collect(ch)
	m.Errors.Collect(ch)
}

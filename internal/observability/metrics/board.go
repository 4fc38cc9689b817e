package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// BoardMetrics tracks the live state of the board.
type BoardMetrics struct {
	QueueLength     prometheus.Gauge
	Entries         prometheus.Gauge
	Qualifying      prometheus.Gauge
	BoardSession    prometheus.Gauge
	ReviewsTotal    prometheus.Counter
	RemoteQueueSize prometheus.Gauge
}

// NewBoardMetrics creates and registers the board gauges.
func NewBoardMetrics(registry prometheus.Registerer) (*BoardMetrics, error) {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "board",
			Name:      name,
			Help:      help,
		})
	}

	m := &BoardMetrics{
		QueueLength:     gauge("queue_length", "Submissions currently in the local queue"),
		Entries:         gauge("entries", "Scored entries on the board"),
		Qualifying:      gauge("qualifying_entries", "Entries at or above the qualifying total"),
		BoardSession:    gauge("session_number", "Current board session number"),
		RemoteQueueSize: gauge("remote_queue_length", "Submissions in the last fetched remote queue"),
		ReviewsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "board",
			Name:      "reviews_total",
			Help:      "Total reviews scored since start",
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register board metrics: %w", err)
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *BoardMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.QueueLength.Desc()
	ch <- m.Entries.Desc()
	ch <- m.Qualifying.Desc()
	ch <- m.BoardSession.Desc()
	ch <- m.ReviewsTotal.Desc()
	ch <- m.RemoteQueueSize.Desc()
}

// Collect implements prometheus.Collector.
func (m *BoardMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.QueueLength
	ch <- m.Entries
	ch <- m.Qualifying
	ch <- m.BoardSession
	ch <- m.ReviewsTotal
	ch <- m.RemoteQueueSize
}

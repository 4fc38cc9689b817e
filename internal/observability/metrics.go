// Package observability wires the Prometheus collectors for the review board
// and exposes them over HTTP.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Board    *metrics.BoardMetrics
	Export   *metrics.ComponentMetrics
	Remote   *metrics.ComponentMetrics
	History  *metrics.ComponentMetrics
	Notify   *metrics.ComponentMetrics
}

// NewMetrics creates a registry and every collector in it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	board, err := metrics.NewBoardMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create board metrics: %w", err)
	}

	components := make(map[string]*metrics.ComponentMetrics, 4)
	for _, name := range []string{"export", "remote", "history", "notification"} {
		cm, err := metrics.NewComponentMetrics(registry, name)
		if err != nil {
			return nil, err
		}
		components[name] = cm
	}

	return &Metrics{
		registry: registry,
		Board:    board,
		Export:   components["export"],
		Remote:   components["remote"],
		History:  components["history"],
		Notify:   components["notification"],
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

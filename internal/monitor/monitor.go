// Package monitor exposes the server's prometheus metrics.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ActiveConnections   prometheus.Gauge
	RoomsCreated        prometheus.Counter
	EventsHandled       prometheus.Counter
	AuthFailures        prometheus.Counter
	StaleUpdatesDropped prometheus.Counter
}

// NewMetrics registers every collector on reg; tests pass a private
// registry so packages can create metrics independently.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of live websocket connections",
		}),
		RoomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Total number of rooms created",
		}),
		EventsHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_handled_total",
			Help:      "Total number of websocket events dispatched",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Total number of rejected join attempts",
		}),
		StaleUpdatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_updates_dropped_total",
			Help:      "Total number of shared-state updates skipped as stale",
		}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.RoomsCreated,
		m.EventsHandled,
		m.AuthFailures,
		m.StaleUpdatesDropped,
	)
	return m
}

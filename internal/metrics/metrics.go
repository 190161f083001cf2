// Package metrics exposes the Prometheus instruments for the booking
// core.  Collectors register themselves on the default registry via
// promauto; the /metrics endpoint serves them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts orders that won their seats and persisted.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineseat_orders_created_total",
		Help: "Orders created with all requested seats secured.",
	})

	// SeatConflicts counts booking attempts refused because a seat was
	// already owned, including races lost on the unique index.
	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineseat_seat_conflicts_total",
		Help: "Booking attempts rejected due to unavailable seats.",
	})

	// OrdersExpired counts pending orders reclaimed by the expiry
	// sweep.  Orders reaped inline by a competing booking are not
	// counted here.
	OrdersExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cineseat_orders_expired_total",
		Help: "Pending orders expired after missing their deadline.",
	})

	// HubConnections tracks live seat-map websocket sessions.
	HubConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cineseat_hub_connections",
		Help: "Currently connected seat-map websocket clients.",
	})

	// SweepRuns counts expiry sweep executions by outcome.
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cineseat_sweep_runs_total",
		Help: "Expiry sweep executions.",
	}, []string{"outcome"})
)

// Package job holds the background maintenance work driven by the
// in-process scheduler.
package job

import (
	"context"
	"log"
	"time"

	"cineseat/internal/event"
	"cineseat/internal/metrics"
	"cineseat/internal/repository"
)

// OrderExpirer is the slice of the order repository the sweep needs.
type OrderExpirer interface {
	ExpireStale(ctx context.Context) ([]repository.StaleOrder, error)
}

// ExpirySweep reconciles orders whose payment window lapsed.  The
// database transition is authoritative and idempotent; the sweep's own
// job is just to run it on a cadence and fan the reclaimed orders out
// as OrderExpired events (seat release broadcasts, cache invalidation,
// broker publishing).  Failed runs are logged and retried on the next
// tick, so a missed tick only delays reclamation, never loses it.
type ExpirySweep struct {
	orders   OrderExpirer
	registry *event.Registry
}

// NewExpirySweep wires the sweep to the order store and the event
// registry.
func NewExpirySweep(orders OrderExpirer, registry *event.Registry) *ExpirySweep {
	return &ExpirySweep{orders: orders, registry: registry}
}

// Run executes one sweep pass.  The signature matches schedule.Func so
// the sweep can be handed to Scheduler.Every directly.
func (s *ExpirySweep) Run(ctx context.Context) {
	stale, err := s.orders.ExpireStale(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		log.Printf("expiry-sweep: run failed: %v", err)
		return
	}
	metrics.SweepRuns.WithLabelValues("ok").Inc()
	if len(stale) == 0 {
		return
	}
	log.Printf("expiry-sweep: reclaimed %d stale orders", len(stale))
	metrics.OrdersExpired.Add(float64(len(stale)))
	now := time.Now().UTC()
	for _, o := range stale {
		s.registry.Dispatch(ctx, event.Event{
			Kind:       event.OrderExpired,
			OrderID:    o.OrderID,
			Reference:  o.Reference,
			UserID:     o.UserID,
			ShowtimeID: o.ShowtimeID,
			SeatIDs:    o.SeatIDs,
			At:         now,
		})
	}
}

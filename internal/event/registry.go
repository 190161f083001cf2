// Package event implements a static registry of domain events.  Every
// event kind maps to an explicit, fixed-order list of handlers that
// are registered once at startup (hub broadcasts, cache invalidation,
// broker publishing, metrics).  Handler failures are isolated: one
// failing handler is logged and never blocks the rest, and Dispatch
// never propagates an error back to the write path that emitted the
// event.
package event

import (
	"context"
	"log"
	"time"
)

// Kind enumerates the domain events the core emits.
type Kind int

const (
	OrderCreated Kind = iota
	OrderConfirmed
	OrderCancelled
	OrderExpired
	ShowtimeReminder
)

// String returns the event name used in logs and broker routing keys.
func (k Kind) String() string {
	switch k {
	case OrderCreated:
		return "order.created"
	case OrderConfirmed:
		return "order.confirmed"
	case OrderCancelled:
		return "order.cancelled"
	case OrderExpired:
		return "order.expired"
	case ShowtimeReminder:
		return "showtime.reminder"
	}
	return "unknown"
}

// Event carries the facts shared by all kinds.  Fields irrelevant to
// a kind stay zero (a ShowtimeReminder has no order).
type Event struct {
	Kind       Kind
	OrderID    uint64
	Reference  string
	UserID     uint64
	ShowtimeID uint64
	SeatIDs    []uint64
	TotalCents uint32
	At         time.Time
}

// Handler reacts to a dispatched event.
type Handler func(ctx context.Context, ev Event) error

type namedHandler struct {
	name string
	fn   Handler
}

// Registry maps event kinds to their handler chains.  Registration is
// expected to happen during startup wiring, before Dispatch is called
// from request goroutines; the registry is read-only afterwards.
type Registry struct {
	handlers map[Kind][]namedHandler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind][]namedHandler)}
}

// On appends a handler to the chain for kind.  Handlers run in
// registration order.
func (r *Registry) On(kind Kind, name string, fn Handler) {
	r.handlers[kind] = append(r.handlers[kind], namedHandler{name: name, fn: fn})
}

// Dispatch runs every handler registered for the event's kind.  Each
// handler's error is logged under its name and the chain continues;
// the caller never observes handler failures.
func (r *Registry) Dispatch(ctx context.Context, ev Event) {
	for _, h := range r.handlers[ev.Kind] {
		if err := h.fn(ctx, ev); err != nil {
			log.Printf("event %s: handler %s failed: %v", ev.Kind, h.name, err)
		}
	}
}

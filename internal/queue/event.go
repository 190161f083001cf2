// Package queue defines message payloads exchanged over the message
// broker, the publisher for the order lifecycle queue, and the
// background consumer that drains it.
package queue

// OrderLifecycleEvent is published on every order state change
// (created, confirmed, cancelled, expired).  It carries enough for
// downstream consumers to log, notify, or feed analytics without
// querying the primary database.
type OrderLifecycleEvent struct {
	Event      string   `json:"event"`
	OrderID    uint64   `json:"order_id"`
	Reference  string   `json:"reference"`
	UserID     uint64   `json:"user_id"`
	ShowtimeID uint64   `json:"showtime_id"`
	SeatIDs    []uint64 `json:"seat_ids"`
	TotalCents uint32   `json:"total_cents"`
	OccurredAt string   `json:"occurred_at"`
}

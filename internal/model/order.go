package model

import "time"

// Order statuses.  An order is created PENDING with an expiry
// deadline, then moves to CONFIRMED on payment, CANCELLED on an
// explicit cancel, or EXPIRED when the reconciliation sweep reclaims
// it.
const (
	OrderPending   = "PENDING"
	OrderConfirmed = "CONFIRMED"
	OrderCancelled = "CANCELLED"
	OrderExpired   = "EXPIRED"
)

// Order is a purchase attempt grouping one or more tickets for a
// single showtime.  ExpiresAt is set only while the order is PENDING;
// a pending order whose deadline has passed (or was never set) is
// stale and its seats no longer count as sold.
type Order struct {
	ID         uint64     // orders.id
	Reference  string     // orders.reference (uuid, exposed to clients)
	UserID     uint64     // orders.user_id
	ShowtimeID uint64     // orders.showtime_id
	Status     string     // orders.status
	TotalCents uint32     // orders.total_cents
	ExpiresAt  *time.Time // orders.expires_at (nil unless PENDING)
	CreatedAt  time.Time  // orders.created_at
	UpdatedAt  time.Time  // orders.updated_at
	Tickets    []OrderTicket
}

// OrderTicket is the durable seat-ownership record.  Tickets are
// inserted atomically with their parent order and never updated apart
// from the live flag, which is cleared when the parent order stops
// being live.  The (showtime_id, seat_id, live) unique index is the
// race-free arbiter that prevents selling a seat twice.
type OrderTicket struct {
	ID         uint64 // order_tickets.id
	OrderID    uint64 // order_tickets.order_id
	ShowtimeID uint64 // order_tickets.showtime_id
	SeatID     uint64 // order_tickets.seat_id
	PriceCents uint32 // order_tickets.price_cents
}

// Live reports whether an order backs live tickets at the given
// instant: CONFIRMED always does, PENDING only until its deadline.
func (o *Order) Live(now time.Time) bool {
	switch o.Status {
	case OrderConfirmed:
		return true
	case OrderPending:
		return o.ExpiresAt != nil && o.ExpiresAt.After(now)
	}
	return false
}

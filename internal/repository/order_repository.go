package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cineseat/internal/model"
)

// OrderRepo owns the only write path that creates durable seat
// ownership.  Exclusivity does not come from the advisory pre-check
// or from any application lock: the unique index over
// (showtime_id, seat_id, live) accepts exactly one live ticket per
// seat, and a losing concurrent insert surfaces as a duplicate-key
// error translated to ErrSeatUnavailable.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo constructs an OrderRepo with the given DB handle.
func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// livePredicate scopes ticket rows to those whose parent order is
// CONFIRMED or PENDING with its deadline still ahead.  Expired but
// not-yet-swept orders fall outside the scope immediately, without
// waiting for the reconciliation sweep.
const livePredicate = `t.live = 1 AND (o.status = 'CONFIRMED' OR (o.status = 'PENDING' AND o.expires_at > UTC_TIMESTAMP()))`

// CreateBooking atomically inserts the order and one ticket per seat.
// The caller fills UserID, ShowtimeID, Reference, TotalCents,
// ExpiresAt and Tickets (seat and price per ticket).
//
// Before inserting, stale PENDING orders holding any of the target
// seats are reaped inline (the sweep's work done opportunistically)
// so the unique index only ever blocks on genuinely live tickets.
// The advisory pre-check then fails fast with the offending seat ids;
// losing the race after the pre-check surfaces as a duplicate-key
// violation mapped to the same ErrSeatUnavailable.  Nothing persists
// unless every insert succeeds.
func (r *OrderRepo) CreateBooking(ctx context.Context, order *model.Order) ([]uint64, error) {
	if len(order.Tickets) == 0 {
		return nil, errors.New("order has no tickets")
	}
	seatIDs := make([]uint64, 0, len(order.Tickets))
	for _, t := range order.Tickets {
		seatIDs = append(seatIDs, t.SeatID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := r.reapStaleForSeatsTx(ctx, tx, order.ShowtimeID, seatIDs); err != nil {
		return nil, fmt.Errorf("reap stale orders: %w", err)
	}

	taken, err := r.liveSeats(ctx, tx, order.ShowtimeID, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("check live tickets: %w", err)
	}
	if len(taken) > 0 {
		return taken, ErrSeatUnavailable
	}

	const insOrder = `INSERT INTO orders (reference, user_id, showtime_id, status, total_cents, expires_at)
	                  VALUES (?, ?, ?, 'PENDING', ?, ?)`
	res, err := tx.ExecContext(ctx, insOrder, order.Reference, order.UserID, order.ShowtimeID, order.TotalCents, order.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	order.ID = uint64(id)

	var b strings.Builder
	b.WriteString(`INSERT INTO order_tickets (order_id, showtime_id, seat_id, price_cents, live) VALUES `)
	args := make([]interface{}, 0, len(order.Tickets)*4)
	for i := range order.Tickets {
		t := &order.Tickets[i]
		t.OrderID = order.ID
		t.ShowtimeID = order.ShowtimeID
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, 1)")
		args = append(args, t.OrderID, t.ShowtimeID, t.SeatID, t.PriceCents)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		if isDuplicateKey(err) {
			// Lost the race: a concurrent booking inserted a live ticket
			// for one of these seats between the pre-check and here.
			// The winner has committed by the time its lock resolves our
			// insert, so a fresh read outside the doomed transaction
			// names the contested seats for the conflict response.
			taken, lookupErr := r.liveSeats(ctx, r.db, order.ShowtimeID, seatIDs)
			if lookupErr != nil {
				taken = nil
			}
			return taken, ErrSeatUnavailable
		}
		return nil, fmt.Errorf("insert tickets: %w", err)
	}

	const sel = `SELECT status, created_at, updated_at FROM orders WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, order.ID).Scan(&order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return nil, nil
}

// reapStaleForSeatsTx expires, in full, every stale PENDING order
// that still owns a live ticket on one of the target seats.  The
// whole order is expired (all its tickets released), not just the
// contested seats.
//
// The candidate scan is a plain snapshot read, not SELECT FOR UPDATE:
// a locking scan over the seat range would leave gap locks that
// deadlock two concurrent bookings of the same free seat.  Staleness
// is monotonic (a stale order never becomes live again), so it is
// enough that the UPDATE in expireOrdersTx takes the row locks, in id
// order, and re-checks the PENDING status under lock.
func (r *OrderRepo) reapStaleForSeatsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatIDs []uint64) error {
	var b strings.Builder
	b.WriteString(`SELECT DISTINCT o.id
	               FROM orders o JOIN order_tickets t ON t.order_id = o.id
	               WHERE t.showtime_id = ? AND t.live = 1
	                 AND o.status = 'PENDING'
	                 AND (o.expires_at IS NULL OR o.expires_at <= UTC_TIMESTAMP())
	                 AND t.seat_id IN (`)
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showtimeID)
	for i, id := range seatIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, id)
	}
	b.WriteString(") ORDER BY o.id")

	rows, err := tx.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return err
	}
	var stale []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		stale = append(stale, id)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	return expireOrdersTx(ctx, tx, stale)
}

// liveSeats returns the subset of seatIDs currently owned by a live
// ticket for the showtime.  It runs against either the booking
// transaction (pre-check) or the plain DB handle (conflict lookup
// after a lost race).
func (r *OrderRepo) liveSeats(ctx context.Context, q querier, showtimeID uint64, seatIDs []uint64) ([]uint64, error) {
	var b strings.Builder
	b.WriteString(`SELECT t.seat_id
	               FROM order_tickets t JOIN orders o ON o.id = t.order_id
	               WHERE t.showtime_id = ? AND ` + livePredicate + ` AND t.seat_id IN (`)
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showtimeID)
	for i, id := range seatIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, id)
	}
	b.WriteString(")")

	rows, err := q.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		taken = append(taken, id)
	}
	return taken, rows.Err()
}

// BookedSeatIDs returns the seats of a showtime owned by a live
// ticket, along with the earliest deadline among their PENDING owners
// (nil when every owner is CONFIRMED).  This is the durable layer the
// availability resolver merges advisory holds over; the deadline lets
// the snapshot cache expire no later than the first pending order
// does.
func (r *OrderRepo) BookedSeatIDs(ctx context.Context, showtimeID uint64) (map[uint64]struct{}, *time.Time, error) {
	const q = `SELECT t.seat_id, o.expires_at
	           FROM order_tickets t JOIN orders o ON o.id = t.order_id
	           WHERE t.showtime_id = ? AND ` + livePredicate
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	booked := make(map[uint64]struct{})
	var earliest *time.Time
	for rows.Next() {
		var id uint64
		var expires sql.NullTime
		if err := rows.Scan(&id, &expires); err != nil {
			return nil, nil, err
		}
		booked[id] = struct{}{}
		if expires.Valid && (earliest == nil || expires.Time.Before(*earliest)) {
			t := expires.Time
			earliest = &t
		}
	}
	return booked, earliest, rows.Err()
}

// GetByIDForUser loads an order with its tickets, scoped to the
// owning user.  Missing rows and foreign orders both read as
// ErrOrderNotFound so order ids cannot be probed.
func (r *OrderRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.Order, error) {
	const q = `SELECT id, reference, user_id, showtime_id, status, total_cents, expires_at, created_at, updated_at
	           FROM orders WHERE id = ? AND user_id = ?`
	var o model.Order
	var expires sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id, userID).Scan(
		&o.ID, &o.Reference, &o.UserID, &o.ShowtimeID, &o.Status,
		&o.TotalCents, &expires, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		o.ExpiresAt = &t
	}
	o.Tickets, err = r.ticketsByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) ticketsByOrder(ctx context.Context, orderID uint64) ([]model.OrderTicket, error) {
	const q = `SELECT id, order_id, showtime_id, seat_id, price_cents FROM order_tickets WHERE order_id = ?`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tickets []model.OrderTicket
	for rows.Next() {
		var t model.OrderTicket
		if err := rows.Scan(&t.ID, &t.OrderID, &t.ShowtimeID, &t.SeatID, &t.PriceCents); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// Confirm transitions a live PENDING order to CONFIRMED (payment
// succeeded) and clears its deadline; tickets stay live.  It returns
// the order with tickets for the confirmation broadcast.  A missing
// or foreign order yields ErrOrderNotFound; an order that already
// left PENDING, or whose deadline has passed, yields
// ErrOrderNotPending.
func (r *OrderRepo) Confirm(ctx context.Context, id, userID uint64) (*model.Order, error) {
	return r.transition(ctx, id, userID, model.OrderConfirmed)
}

// Cancel transitions a PENDING order to CANCELLED ahead of the sweep
// (payment failed or the buyer backed out) and releases its tickets
// by clearing their live flag.
func (r *OrderRepo) Cancel(ctx context.Context, id, userID uint64) (*model.Order, error) {
	return r.transition(ctx, id, userID, model.OrderCancelled)
}

func (r *OrderRepo) transition(ctx context.Context, id, userID uint64, target string) (*model.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT id, reference, user_id, showtime_id, status, total_cents, expires_at, created_at, updated_at
	             FROM orders WHERE id = ? AND user_id = ? FOR UPDATE`
	var o model.Order
	var expires sql.NullTime
	err = tx.QueryRowContext(ctx, sel, id, userID).Scan(
		&o.ID, &o.Reference, &o.UserID, &o.ShowtimeID, &o.Status,
		&o.TotalCents, &expires, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		o.ExpiresAt = &t
	}
	if o.Status != model.OrderPending {
		return nil, ErrOrderNotPending
	}
	if target == model.OrderConfirmed {
		// Confirming past the deadline is refused; the seats may
		// already belong to someone else.
		var live int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE id = ? AND expires_at > UTC_TIMESTAMP()`, id).Scan(&live); err != nil {
			return nil, err
		}
		if live == 0 {
			return nil, ErrOrderNotPending
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, expires_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, target, id); err != nil {
		return nil, err
	}
	if target == model.OrderCancelled {
		if _, err := tx.ExecContext(ctx, `UPDATE order_tickets SET live = NULL WHERE order_id = ?`, id); err != nil {
			return nil, err
		}
	}
	o.Status = target
	o.ExpiresAt = nil

	const selTickets = `SELECT id, order_id, showtime_id, seat_id, price_cents FROM order_tickets WHERE order_id = ?`
	rows, err := tx.QueryContext(ctx, selTickets, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var t model.OrderTicket
		if err := rows.Scan(&t.ID, &t.OrderID, &t.ShowtimeID, &t.SeatID, &t.PriceCents); err != nil {
			rows.Close()
			return nil, err
		}
		o.Tickets = append(o.Tickets, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &o, nil
}

// StaleOrder describes one order reclaimed by the expiry sweep, with
// enough context for the release broadcast and the expiry event.
type StaleOrder struct {
	OrderID    uint64
	Reference  string
	UserID     uint64
	ShowtimeID uint64
	SeatIDs    []uint64
}

// ExpireStale transitions every stale PENDING order (deadline missing
// or passed) to EXPIRED and clears its tickets' live flag, all in one
// transaction.  Running it twice in a row is safe: the second pass
// matches nothing.  On error the transaction rolls back and the next
// sweep tick retries the whole scan.
func (r *OrderRepo) ExpireStale(ctx context.Context) ([]StaleOrder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT o.id, o.reference, o.user_id, o.showtime_id, t.seat_id
	             FROM orders o JOIN order_tickets t ON t.order_id = o.id
	             WHERE o.status = 'PENDING' AND (o.expires_at IS NULL OR o.expires_at <= UTC_TIMESTAMP())
	             ORDER BY o.id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, sel)
	if err != nil {
		return nil, err
	}
	var stale []StaleOrder
	byID := make(map[uint64]int)
	for rows.Next() {
		var (
			orderID, userID, showtimeID, seatID uint64
			reference                           string
		)
		if err := rows.Scan(&orderID, &reference, &userID, &showtimeID, &seatID); err != nil {
			rows.Close()
			return nil, err
		}
		i, ok := byID[orderID]
		if !ok {
			i = len(stale)
			byID[orderID] = i
			stale = append(stale, StaleOrder{OrderID: orderID, Reference: reference, UserID: userID, ShowtimeID: showtimeID})
		}
		stale[i].SeatIDs = append(stale[i].SeatIDs, seatID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		committed = true
		return nil, tx.Commit()
	}

	ids := make([]uint64, 0, len(stale))
	for _, s := range stale {
		ids = append(ids, s.OrderID)
	}
	if err := expireOrdersTx(ctx, tx, ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return stale, nil
}

// expireOrdersTx flips the given orders to EXPIRED and releases their
// tickets.  Rows are locked in ascending id order so concurrent
// callers expiring overlapping sets cannot deadlock.
func expireOrdersTx(ctx context.Context, tx *sql.Tx, orderIDs []uint64) error {
	if len(orderIDs) == 0 {
		return nil
	}
	sort.Slice(orderIDs, func(i, j int) bool { return orderIDs[i] < orderIDs[j] })
	ph := strings.TrimSuffix(strings.Repeat("?,", len(orderIDs)), ",")
	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	// The status guard makes concurrent reaps of the same orders
	// serialize into a no-op instead of re-expiring.
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = 'EXPIRED', expires_at = NULL, updated_at = CURRENT_TIMESTAMP WHERE id IN (`+ph+`) AND status = 'PENDING'`, args...); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE order_tickets SET live = NULL WHERE order_id IN (`+ph+`)`, args...)
	return err
}

// Package repository implements data access against MySQL.  Sentinel
// errors defined here let handlers distinguish validation problems
// (bad or unknown rows) and expected conflicts (a seat just sold, a
// schedule slot taken) from everything else, which is treated as
// transient and safe to retry.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrScreenNotFound is returned when a screen lookup yields no rows.
var ErrScreenNotFound = errors.New("screen not found")

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrShowtimeNotFound is returned when a showtime lookup yields no rows.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrOrderNotFound is returned when an order lookup yields no rows
// for the requesting user.
var ErrOrderNotFound = errors.New("order not found")

// ErrSeatUnavailable is the expected outcome of losing a booking
// race: another live order already owns one of the requested seats.
// It is produced both by the advisory pre-check and by the unique
// index on (showtime_id, seat_id, live), and maps to HTTP 409.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrScheduleConflict is returned by the overlap guard when a
// candidate showtime window intersects another scheduled showtime on
// the same screen.  Handlers translate this into HTTP 409.
var ErrScheduleConflict = errors.New("schedule conflict")

// ErrOrderNotPending is returned when a confirm or cancel targets an
// order that already left the PENDING state (or whose deadline has
// passed).
var ErrOrderNotPending = errors.New("order is not pending")

// isDuplicateKey reports whether err is a MySQL duplicate-key
// violation (error 1062).  The unique index over live tickets
// surfaces booking races this way.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

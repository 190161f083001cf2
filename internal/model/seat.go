package model

import (
	"fmt"
	"time"
)

// Seat type classifications.  The surcharge rate applied on top of a
// showtime's base price depends on this value.
const (
	SeatTypeStandard   = "STANDARD"
	SeatTypeVIP        = "VIP"
	SeatTypeAccessible = "ACCESSIBLE"
)

// Seat is a physical seat within a screen.  RowLabel plus SeatNumber
// form the seat code (e.g. "A12"), unique within the screen.  Seats
// are soft-deleted through IsActive; history referencing a seat is
// never removed.
type Seat struct {
	ID         uint64    // seats.id
	ScreenID   uint64    // seats.screen_id
	RowLabel   string    // seats.row_label (A, B, ..., AA)
	SeatNumber uint32    // seats.seat_number (1-based within the row)
	SeatCode   string    // seats.seat_code (row label + number)
	SeatType   string    // seats.seat_type
	IsActive   bool      // seats.is_active
	CreatedAt  time.Time // seats.created_at
	UpdatedAt  time.Time // seats.updated_at
}

// Code derives the display code from the row label and number.  The
// stored seat_code column is populated with the same value at
// generation time.
func Code(rowLabel string, seatNumber uint32) string {
	return fmt.Sprintf("%s%d", rowLabel, seatNumber)
}

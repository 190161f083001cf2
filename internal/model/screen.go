package model

import "time"

// Screen is a physical auditorium inside a cinema.  It owns a fixed
// grid of seats which are generated once and afterwards only
// deactivated, never deleted.
//
// Fields:
//  ID        – primary key identifier.
//  CinemaID  – cinema the screen belongs to (cinema CRUD is external).
//  Name      – display name, unique within the cinema.
//  SeatRows  – number of seat rows generated for this screen.
//  SeatCols  – number of seats per row.
type Screen struct {
	ID        uint64    // screens.id
	CinemaID  uint64    // screens.cinema_id
	Name      string    // screens.name
	SeatRows  uint32    // screens.seat_rows
	SeatCols  uint32    // screens.seat_cols
	CreatedAt time.Time // screens.created_at
	UpdatedAt time.Time // screens.updated_at
}

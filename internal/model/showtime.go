package model

import "time"

// Showtime statuses.  Only SCHEDULED showtimes participate in the
// overlap check and accept bookings.
const (
	ShowtimeScheduled = "SCHEDULED"
	ShowtimeCancelled = "CANCELLED"
)

// Showtime is a scheduled screening of a movie on a screen.  The
// [StartsAt, EndsAt) window of a scheduled showtime must not overlap
// any other scheduled showtime on the same screen.  All timestamps
// are UTC.
type Showtime struct {
	ID             uint64    // showtimes.id
	MovieID        uint64    // showtimes.movie_id (movie CRUD is external)
	ScreenID       uint64    // showtimes.screen_id
	StartsAt       time.Time // showtimes.starts_at
	EndsAt         time.Time // showtimes.ends_at
	BasePriceCents uint32    // showtimes.base_price_cents
	Status         string    // showtimes.status
	CreatedAt      time.Time // showtimes.created_at
	UpdatedAt      time.Time // showtimes.updated_at
}

// Overlaps reports whether the showtime's window intersects the
// half-open interval [start, end).  A showtime ending exactly when
// another starts does not overlap.  This mirrors the SQL predicate
// the scheduling guard runs against the showtimes table.
func (s *Showtime) Overlaps(start, end time.Time) bool {
	return s.StartsAt.Before(end) && s.EndsAt.After(start)
}

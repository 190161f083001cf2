package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cineseat/internal/model"
)

// ShowtimeRepo manages persistence for showtimes and hosts the
// overlap guard.  Scheduling writes go through Schedule/Reschedule,
// which run the guard and the insert/update inside one transaction so
// the catalog layer can never persist a conflicting slot.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// GetByID retrieves a showtime by its ID.  It returns
// ErrShowtimeNotFound when there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	const q = `SELECT id, movie_id, screen_id, starts_at, ends_at, base_price_cents, status, created_at, updated_at
	           FROM showtimes WHERE id = ?`
	var s model.Showtime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.MovieID, &s.ScreenID, &s.StartsAt, &s.EndsAt,
		&s.BasePriceCents, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowtimeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// findOverlapping returns the scheduled showtimes on a screen whose
// [starts_at, ends_at) window intersects [start, end), excluding the
// showtime with excludeID (pass 0 on create).  Half-open semantics:
// a showtime ending exactly at start does not overlap.
func (r *ShowtimeRepo) findOverlapping(ctx context.Context, q querier, screenID, excludeID uint64, start, end time.Time) ([]model.Showtime, error) {
	const sel = `SELECT id, movie_id, screen_id, starts_at, ends_at, base_price_cents, status, created_at, updated_at
	             FROM showtimes
	             WHERE screen_id = ? AND id <> ? AND status = 'SCHEDULED'
	               AND starts_at < ? AND ends_at > ?`
	rows, err := q.QueryContext(ctx, sel, screenID, excludeID, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overlaps []model.Showtime
	for rows.Next() {
		var s model.Showtime
		if err := rows.Scan(
			&s.ID, &s.MovieID, &s.ScreenID, &s.StartsAt, &s.EndsAt,
			&s.BasePriceCents, &s.Status, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		overlaps = append(overlaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overlaps, nil
}

// Schedule inserts a new showtime after running the overlap guard.
// On a conflict it returns ErrScheduleConflict together with the
// conflicting showtimes and persists nothing.
func (r *ShowtimeRepo) Schedule(ctx context.Context, s *model.Showtime) ([]model.Showtime, error) {
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

	overlaps, err := r.findOverlapping(ctx, tx, s.ScreenID, 0, s.StartsAt, s.EndsAt)
	if err != nil {
		return nil, err
	}
	if len(overlaps) > 0 {
		return overlaps, ErrScheduleConflict
	}

	const q = `INSERT INTO showtimes (movie_id, screen_id, starts_at, ends_at, base_price_cents) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.MovieID, s.ScreenID, s.StartsAt, s.EndsAt, s.BasePriceCents)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.ID = uint64(id)
	const sel = `SELECT status, created_at, updated_at FROM showtimes WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, s.ID).Scan(&s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return nil, nil
}

// Reschedule updates an existing showtime's window and price after
// running the overlap guard with the showtime itself excluded, so a
// show may overlap its own previous slot.  It returns
// ErrShowtimeNotFound when the row does not exist and
// ErrScheduleConflict (with the conflicting showtimes) when the new
// window collides.
func (r *ShowtimeRepo) Reschedule(ctx context.Context, s *model.Showtime) ([]model.Showtime, error) {
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

	overlaps, err := r.findOverlapping(ctx, tx, s.ScreenID, s.ID, s.StartsAt, s.EndsAt)
	if err != nil {
		return nil, err
	}
	if len(overlaps) > 0 {
		return overlaps, ErrScheduleConflict
	}

	const q = `UPDATE showtimes
	           SET starts_at = ?, ends_at = ?, base_price_cents = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND screen_id = ?`
	res, err := tx.ExecContext(ctx, q, s.StartsAt, s.EndsAt, s.BasePriceCents, s.ID, s.ScreenID)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		// Either the row is missing or nothing changed; look it up.
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM showtimes WHERE id = ?`, s.ID).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		} else if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return nil, nil
}

// CancelShowtime marks a showtime CANCELLED so it stops participating
// in the overlap guard and no longer accepts bookings.
func (r *ShowtimeRepo) CancelShowtime(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE showtimes SET status = 'CANCELLED', updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'SCHEDULED'`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShowtimeNotFound
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"cineseat/internal/model"
)

// SeatRepo provides data access to the seats table.  Seats are bulk
// generated when a screen is laid out and afterwards only reclassified
// or deactivated; rows are never deleted so that ticket history stays
// intact.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// CreateBulk inserts multiple seats in a single statement.  Passing
// an empty slice has no effect and returns nil.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO seats (screen_id, row_label, seat_number, seat_code, seat_type) VALUES `)
	args := make([]interface{}, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, s.ScreenID, s.RowLabel, s.SeatNumber, s.SeatCode, s.SeatType)
	}
	_, err := r.db.ExecContext(ctx, b.String(), args...)
	return err
}

// GetActiveByScreen retrieves all active seats of a screen ordered by
// row label and seat number.  This is the seat set the availability
// resolver reports on.
func (r *SeatRepo) GetActiveByScreen(ctx context.Context, screenID uint64) ([]model.Seat, error) {
	const q = `SELECT id, screen_id, row_label, seat_number, seat_code, seat_type, is_active, created_at, updated_at
	           FROM seats
	           WHERE screen_id = ? AND is_active = 1
	           ORDER BY row_label, seat_number`
	return r.query(ctx, q, screenID)
}

// GetActiveByIDsForScreen returns the subset of the given seat IDs
// that exist on the screen and are active.  The booking path compares
// the result against its input to detect invalid seats.
func (r *SeatRepo) GetActiveByIDsForScreen(ctx context.Context, screenID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString(`SELECT id, screen_id, row_label, seat_number, seat_code, seat_type, is_active, created_at, updated_at
	               FROM seats WHERE screen_id = ? AND is_active = 1 AND id IN (`)
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, screenID)
	for i, id := range seatIDs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
		args = append(args, id)
	}
	b.WriteString(")")
	return r.query(ctx, b.String(), args...)
}

// SetActive flips a seat's active flag (logical deletion and
// reactivation).  It returns ErrSeatNotFound when the seat does not
// exist.
func (r *SeatRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE seats SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "missing" from "already in that state".
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM seats WHERE id = ?`, id).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return ErrSeatNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// SetType reclassifies a seat.  It returns ErrSeatNotFound when the
// seat does not exist.
func (r *SeatRepo) SetType(ctx context.Context, id uint64, seatType string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE seats SET seat_type = ? WHERE id = ?`, seatType, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM seats WHERE id = ?`, id).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return ErrSeatNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (r *SeatRepo) query(ctx context.Context, q string, args ...interface{}) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(
			&s.ID, &s.ScreenID, &s.RowLabel, &s.SeatNumber, &s.SeatCode,
			&s.SeatType, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

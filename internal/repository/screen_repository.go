package repository

import (
	"context"
	"database/sql"
	"errors"

	"cineseat/internal/model"
)

// ScreenRepo manages persistence for screens.
type ScreenRepo struct {
	db *sql.DB
}

// NewScreenRepo constructs a ScreenRepo with the given DB handle.
func NewScreenRepo(db *sql.DB) *ScreenRepo {
	return &ScreenRepo{db: db}
}

// Create inserts a new screen and populates the generated ID and
// DB-default timestamps on the given model.
func (r *ScreenRepo) Create(ctx context.Context, s *model.Screen) error {
	const q = `INSERT INTO screens (cinema_id, name, seat_rows, seat_cols) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.CinemaID, s.Name, s.SeatRows, s.SeatCols)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM screens WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a screen by its ID.  It returns ErrScreenNotFound
// when there is no matching row.
func (r *ScreenRepo) GetByID(ctx context.Context, id uint64) (*model.Screen, error) {
	const q = `SELECT id, cinema_id, name, seat_rows, seat_cols, created_at, updated_at
	           FROM screens WHERE id = ?`
	var s model.Screen
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.CinemaID, &s.Name, &s.SeatRows, &s.SeatCols, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScreenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

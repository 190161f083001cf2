package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Migrate applies the schema in order.  Every statement is idempotent
// so the server can run it unconditionally at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		createScreensTable,
		createSeatsTable,
		createShowtimesTable,
		createOrdersTable,
		createOrderTicketsTable,
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	log.Printf("database: schema up to date (%d statements)", len(statements))
	return nil
}

const createScreensTable = `
CREATE TABLE IF NOT EXISTS screens (
    id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    cinema_id  BIGINT UNSIGNED NOT NULL,
    name       VARCHAR(100)    NOT NULL,
    seat_rows  INT UNSIGNED    NOT NULL,
    seat_cols  INT UNSIGNED    NOT NULL,
    created_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    UNIQUE KEY uniq_cinema_screen (cinema_id, name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const createSeatsTable = `
CREATE TABLE IF NOT EXISTS seats (
    id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    screen_id   BIGINT UNSIGNED NOT NULL,
    row_label   VARCHAR(4)      NOT NULL,
    seat_number INT UNSIGNED    NOT NULL,
    seat_code   VARCHAR(8)      NOT NULL,
    seat_type   ENUM('STANDARD','VIP','ACCESSIBLE') NOT NULL DEFAULT 'STANDARD',
    is_active   TINYINT(1)      NOT NULL DEFAULT 1,
    created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    UNIQUE KEY uniq_screen_seat (screen_id, row_label, seat_number),
    CONSTRAINT fk_seats_screen FOREIGN KEY (screen_id) REFERENCES screens (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const createShowtimesTable = `
CREATE TABLE IF NOT EXISTS showtimes (
    id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    movie_id         BIGINT UNSIGNED NOT NULL,
    screen_id        BIGINT UNSIGNED NOT NULL,
    starts_at        DATETIME        NOT NULL,
    ends_at          DATETIME        NOT NULL,
    base_price_cents INT UNSIGNED    NOT NULL,
    status           ENUM('SCHEDULED','CANCELLED') NOT NULL DEFAULT 'SCHEDULED',
    created_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    KEY idx_showtimes_screen_window (screen_id, starts_at, ends_at),
    CONSTRAINT fk_showtimes_screen FOREIGN KEY (screen_id) REFERENCES screens (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
    id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    reference   CHAR(36)        NOT NULL,
    user_id     BIGINT UNSIGNED NOT NULL,
    showtime_id BIGINT UNSIGNED NOT NULL,
    status      ENUM('PENDING','CONFIRMED','CANCELLED','EXPIRED') NOT NULL DEFAULT 'PENDING',
    total_cents INT UNSIGNED    NOT NULL,
    expires_at  DATETIME        NULL,
    created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (id),
    UNIQUE KEY uniq_order_reference (reference),
    KEY idx_orders_sweep (status, expires_at),
    CONSTRAINT fk_orders_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

// live is 1 on tickets whose order still owns the seat and NULL once
// the order is cancelled or expired.  MySQL unique indexes skip NULLs,
// so uniq_live_seat admits at most one live ticket per seat per
// showtime while keeping the full ticket history in place.  Concurrent
// bookings race on this index and exactly one insert wins.
const createOrderTicketsTable = `
CREATE TABLE IF NOT EXISTS order_tickets (
    id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    order_id    BIGINT UNSIGNED NOT NULL,
    showtime_id BIGINT UNSIGNED NOT NULL,
    seat_id     BIGINT UNSIGNED NOT NULL,
    price_cents INT UNSIGNED    NOT NULL,
    live        TINYINT         NULL,
    PRIMARY KEY (id),
    UNIQUE KEY uniq_live_seat (showtime_id, seat_id, live),
    KEY idx_tickets_order (order_id),
    CONSTRAINT fk_tickets_order FOREIGN KEY (order_id) REFERENCES orders (id),
    CONSTRAINT fk_tickets_showtime FOREIGN KEY (showtime_id) REFERENCES showtimes (id),
    CONSTRAINT fk_tickets_seat FOREIGN KEY (seat_id) REFERENCES seats (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cineseat/internal/cache"
	"cineseat/internal/hub"
	"cineseat/internal/model"
	"cineseat/internal/pricing"
	"cineseat/internal/repository"
)

// BookedSeatSource resolves the durable layer of the seat map: the
// booked seat set and the earliest deadline among its pending owners.
type BookedSeatSource interface {
	BookedSeatIDs(ctx context.Context, showtimeID uint64) (map[uint64]struct{}, *time.Time, error)
}

// AvailabilityHandler serves the merged seat map of a showtime: the
// screen's active seats, overlaid with durable bookings from the
// database (optionally via the Redis snapshot cache) and advisory
// holds from the in-memory hub.
type AvailabilityHandler struct {
	SeatRepo     *repository.SeatRepo
	ShowtimeRepo *repository.ShowtimeRepo
	Orders       BookedSeatSource
	Hub          *hub.Hub
	Snapshots    *cache.Snapshots
}

// NewAvailabilityHandler constructs an AvailabilityHandler.  Snapshots
// may wrap a nil Redis client.
func NewAvailabilityHandler(seatRepo *repository.SeatRepo, showtimeRepo *repository.ShowtimeRepo, orders BookedSeatSource, h *hub.Hub, snaps *cache.Snapshots) *AvailabilityHandler {
	if seatRepo == nil || showtimeRepo == nil || orders == nil || h == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{SeatRepo: seatRepo, ShowtimeRepo: showtimeRepo, Orders: orders, Hub: h, Snapshots: snaps}
}

// Seat statuses reported by the availability endpoint.
const (
	StatusAvailable = "available"
	StatusHeld      = "held"
	StatusBooked    = "booked"
)

// SeatStatus is one seat's entry in the availability response.
type SeatStatus struct {
	SeatID     uint64 `json:"seat_id"`
	SeatCode   string `json:"seat_code"`
	SeatType   string `json:"seat_type"`
	PriceCents uint32 `json:"price_cents"`
	Status     string `json:"status"`
}

// GetSeatMap handles GET /v1/showtimes/:id/seats.  The optional
// "holder" query parameter names the caller's live-channel identity so
// that seats the caller itself holds read as available.
func (h *AvailabilityHandler) GetSeatMap(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	ctx := c.Request().Context()

	st, err := h.ShowtimeRepo.GetByID(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	seats, err := h.SeatRepo.GetActiveByScreen(ctx, st.ScreenID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	booked, hit := h.Snapshots.BookedSeats(ctx, showtimeID)
	if !hit {
		var deadline *time.Time
		booked, deadline, err = h.Orders.BookedSeatIDs(ctx, showtimeID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		h.Snapshots.StoreBookedSeats(ctx, showtimeID, booked, deadline)
	}
	held := h.Hub.HeldSeats(showtimeID)
	viewer := c.QueryParam("holder")

	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id":      st.ID,
		"screen_id":        st.ScreenID,
		"starts_at":        st.StartsAt,
		"ends_at":          st.EndsAt,
		"base_price_cents": st.BasePriceCents,
		"seats":            buildSeatMap(seats, st.BasePriceCents, booked, held, viewer),
	})
}

// buildSeatMap merges the three availability layers.  A durable
// booking always wins over an advisory hold, and a viewer's own holds
// read as available so the client UI does not block its own
// selection.
func buildSeatMap(seats []model.Seat, basePriceCents uint32, booked map[uint64]struct{}, held map[uint64]string, viewer string) []SeatStatus {
	out := make([]SeatStatus, 0, len(seats))
	for _, s := range seats {
		status := StatusAvailable
		if _, ok := booked[s.ID]; ok {
			status = StatusBooked
		} else if holder, ok := held[s.ID]; ok && (viewer == "" || holder != viewer) {
			status = StatusHeld
		}
		out = append(out, SeatStatus{
			SeatID:     s.ID,
			SeatCode:   s.SeatCode,
			SeatType:   s.SeatType,
			PriceCents: pricing.SeatPriceCents(basePriceCents, s.SeatType),
			Status:     status,
		})
	}
	return out
}

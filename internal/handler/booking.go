package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"cineseat/internal/event"
	"cineseat/internal/metrics"
	"cineseat/internal/model"
	"cineseat/internal/pricing"
	"cineseat/internal/repository"
)

// BookingHandler runs the purchase flow: creating a pending order
// with its tickets, confirming it when the payment provider reports
// success, and cancelling it when the buyer backs out.  Seat
// exclusivity is enforced inside OrderRepo.CreateBooking; this layer
// validates the request, prices the seats and announces the outcome.
type BookingHandler struct {
	OrderRepo    *repository.OrderRepo
	SeatRepo     *repository.SeatRepo
	ShowtimeRepo *repository.ShowtimeRepo
	Registry     *event.Registry
	HoldWindow   time.Duration
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(orderRepo *repository.OrderRepo, seatRepo *repository.SeatRepo, showtimeRepo *repository.ShowtimeRepo, registry *event.Registry, holdWindow time.Duration) *BookingHandler {
	if orderRepo == nil || seatRepo == nil || showtimeRepo == nil || registry == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{
		OrderRepo:    orderRepo,
		SeatRepo:     seatRepo,
		ShowtimeRepo: showtimeRepo,
		Registry:     registry,
		HoldWindow:   holdWindow,
	}
}

// orderResponse is the client-facing order shape.
type orderResponse struct {
	OrderID    uint64           `json:"order_id"`
	Reference  string           `json:"reference"`
	ShowtimeID uint64           `json:"showtime_id"`
	Status     string           `json:"status"`
	TotalCents uint32           `json:"total_cents"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
	Tickets    []ticketResponse `json:"tickets"`
}

type ticketResponse struct {
	SeatID     uint64 `json:"seat_id"`
	PriceCents uint32 `json:"price_cents"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		OrderID:    o.ID,
		Reference:  o.Reference,
		ShowtimeID: o.ShowtimeID,
		Status:     o.Status,
		TotalCents: o.TotalCents,
		ExpiresAt:  o.ExpiresAt,
	}
	for _, t := range o.Tickets {
		resp.Tickets = append(resp.Tickets, ticketResponse{SeatID: t.SeatID, PriceCents: t.PriceCents})
	}
	return resp
}

// CreateOrder handles POST /v1/showtimes/:id/orders.  The body must
// carry a "seat_ids" array.  On success it returns 201 with the
// pending order and its payment deadline; when any seat is already
// owned it returns 409 with the unavailable seat ids and persists
// nothing.
func (h *BookingHandler) CreateOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seatIDs := dedupe(body.SeatIDs)
	if len(seatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}
	ctx := c.Request().Context()

	st, err := h.ShowtimeRepo.GetByID(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	now := time.Now().UTC()
	if st.Status != model.ShowtimeScheduled || !st.StartsAt.After(now) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "showtime not open for booking"})
	}

	seats, err := h.SeatRepo.GetActiveByIDsForScreen(ctx, st.ScreenID, seatIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if len(seats) != len(seatIDs) {
		known := make(map[uint64]struct{}, len(seats))
		for _, s := range seats {
			known[s.ID] = struct{}{}
		}
		invalid := make([]uint64, 0, len(seatIDs)-len(seats))
		for _, id := range seatIDs {
			if _, ok := known[id]; !ok {
				invalid = append(invalid, id)
			}
		}
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "unknown or inactive seats for this screen",
			"invalid": invalid,
		})
	}

	expiresAt := now.Add(h.HoldWindow)
	order := &model.Order{
		Reference:  uuid.NewString(),
		UserID:     userID,
		ShowtimeID: showtimeID,
		ExpiresAt:  &expiresAt,
	}
	for _, s := range seats {
		price := pricing.SeatPriceCents(st.BasePriceCents, s.SeatType)
		order.TotalCents += price
		order.Tickets = append(order.Tickets, model.OrderTicket{SeatID: s.ID, PriceCents: price})
	}

	unavailable, err := h.OrderRepo.CreateBooking(ctx, order)
	if errors.Is(err, repository.ErrSeatUnavailable) {
		metrics.SeatConflicts.Inc()
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "some seats are unavailable",
			"unavailable": unavailable,
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}

	metrics.OrdersCreated.Inc()
	h.Registry.Dispatch(ctx, event.Event{
		Kind:       event.OrderCreated,
		OrderID:    order.ID,
		Reference:  order.Reference,
		UserID:     order.UserID,
		ShowtimeID: order.ShowtimeID,
		SeatIDs:    seatIDs,
		TotalCents: order.TotalCents,
		At:         now,
	})
	return c.JSON(http.StatusCreated, toOrderResponse(order))
}

// ConfirmOrder handles POST /v1/orders/:id/confirm, the callback
// surface for a successful payment.  Confirming an order whose
// deadline already passed fails with 409; its seats may have been
// resold.
func (h *BookingHandler) ConfirmOrder(c echo.Context) error {
	return h.transition(c, event.OrderConfirmed)
}

// CancelOrder handles POST /v1/orders/:id/cancel.  Cancelling frees
// the seats immediately instead of waiting for the expiry sweep.
func (h *BookingHandler) CancelOrder(c echo.Context) error {
	return h.transition(c, event.OrderCancelled)
}

func (h *BookingHandler) transition(c echo.Context, kind event.Kind) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	ctx := c.Request().Context()

	var order *model.Order
	if kind == event.OrderConfirmed {
		order, err = h.OrderRepo.Confirm(ctx, orderID, userID)
	} else {
		order, err = h.OrderRepo.Cancel(ctx, orderID, userID)
	}
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, repository.ErrOrderNotPending):
		return c.JSON(http.StatusConflict, echo.Map{"error": "order is not pending"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	seatIDs := make([]uint64, 0, len(order.Tickets))
	for _, t := range order.Tickets {
		seatIDs = append(seatIDs, t.SeatID)
	}
	h.Registry.Dispatch(ctx, event.Event{
		Kind:       kind,
		OrderID:    order.ID,
		Reference:  order.Reference,
		UserID:     order.UserID,
		ShowtimeID: order.ShowtimeID,
		SeatIDs:    seatIDs,
		TotalCents: order.TotalCents,
		At:         time.Now().UTC(),
	})
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

// GetOrder handles GET /v1/orders/:id, scoped to the caller.
func (h *BookingHandler) GetOrder(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.OrderRepo.GetByIDForUser(c.Request().Context(), orderID, userID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

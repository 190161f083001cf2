package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"cineseat/internal/model"
	"cineseat/internal/repository"
)

// seat grid limits for screen creation.
const (
	maxSeatRows = 100
	maxSeatCols = 200
)

// ScreenHandler manages screens and their seat grids.  Creating a
// screen generates its full seat layout in one shot; afterwards seats
// are only reclassified or deactivated.
type ScreenHandler struct {
	ScreenRepo *repository.ScreenRepo
	SeatRepo   *repository.SeatRepo
}

// NewScreenHandler constructs a ScreenHandler.
func NewScreenHandler(screenRepo *repository.ScreenRepo, seatRepo *repository.SeatRepo) *ScreenHandler {
	if screenRepo == nil || seatRepo == nil {
		panic("nil repository passed to NewScreenHandler")
	}
	return &ScreenHandler{ScreenRepo: screenRepo, SeatRepo: seatRepo}
}

// Create handles POST /v1/screens.  It persists the screen and
// bulk-generates rows x cols standard seats with labels A1, A2, ...
// The VIP and accessible classifications are applied afterwards via
// the seat endpoints.
func (h *ScreenHandler) Create(c echo.Context) error {
	var req struct {
		CinemaID uint64 `json:"cinema_id"`
		Name     string `json:"name"`
		Rows     uint32 `json:"rows"`
		Cols     uint32 `json:"cols"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.CinemaID == 0 || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cinema_id and name are required"})
	}
	if req.Rows == 0 || req.Cols == 0 || req.Rows > maxSeatRows || req.Cols > maxSeatCols {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat grid dimensions"})
	}
	ctx := c.Request().Context()

	screen := &model.Screen{CinemaID: req.CinemaID, Name: req.Name, SeatRows: req.Rows, SeatCols: req.Cols}
	if err := h.ScreenRepo.Create(ctx, screen); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create screen"})
	}

	seats := make([]model.Seat, 0, int(req.Rows)*int(req.Cols))
	for r := 0; r < int(req.Rows); r++ {
		label := indexToRowLabel(r)
		for n := uint32(1); n <= req.Cols; n++ {
			seats = append(seats, model.Seat{
				ScreenID:   screen.ID,
				RowLabel:   label,
				SeatNumber: n,
				SeatCode:   model.Code(label, n),
				SeatType:   model.SeatTypeStandard,
			})
		}
	}
	if err := h.SeatRepo.CreateBulk(ctx, seats); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate seats"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         screen.ID,
		"cinema_id":  screen.CinemaID,
		"name":       screen.Name,
		"rows":       screen.SeatRows,
		"cols":       screen.SeatCols,
		"seat_count": len(seats),
	})
}

// Get handles GET /v1/screens/:id, returning the screen with its
// active seats.
func (h *ScreenHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid screen id"})
	}
	ctx := c.Request().Context()
	screen, err := h.ScreenRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrScreenNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seats, err := h.SeatRepo.GetActiveByScreen(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seatList := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		seatList = append(seatList, echo.Map{
			"id":        s.ID,
			"seat_code": s.SeatCode,
			"seat_type": s.SeatType,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":        screen.ID,
		"cinema_id": screen.CinemaID,
		"name":      screen.Name,
		"rows":      screen.SeatRows,
		"cols":      screen.SeatCols,
		"seats":     seatList,
	})
}

// UpdateSeat handles PATCH /v1/seats/:id.  Either field may be
// omitted; seat_type must be one of the known classifications.
func (h *ScreenHandler) UpdateSeat(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var req struct {
		SeatType *string `json:"seat_type"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.SeatType == nil && req.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	ctx := c.Request().Context()

	if req.SeatType != nil {
		switch *req.SeatType {
		case model.SeatTypeStandard, model.SeatTypeVIP, model.SeatTypeAccessible:
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown seat type"})
		}
		if err := h.SeatRepo.SetType(ctx, id, *req.SeatType); err != nil {
			if errors.Is(err, repository.ErrSeatNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	if req.IsActive != nil {
		if err := h.SeatRepo.SetActive(ctx, id, *req.IsActive); err != nil {
			if errors.Is(err, repository.ErrSeatNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

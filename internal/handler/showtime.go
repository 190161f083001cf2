package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"cineseat/internal/event"
	"cineseat/internal/model"
	"cineseat/internal/repository"
	"cineseat/internal/schedule"
)

// ShowtimeHandler manages the screening catalog.  Scheduling and
// rescheduling run the overlap guard inside the repository
// transaction; a conflict reports the colliding showtimes so the
// admin can resolve it.
type ShowtimeHandler struct {
	ShowtimeRepo *repository.ShowtimeRepo
	ScreenRepo   *repository.ScreenRepo
	Scheduler    *schedule.Scheduler
	Registry     *event.Registry
	ReminderLead time.Duration

	// reminders tracks the pending reminder task per showtime so a
	// reschedule can cancel and re-arm it.
	remindersMu sync.Mutex
	reminders   map[uint64]*schedule.Task
}

// NewShowtimeHandler constructs a ShowtimeHandler.  Scheduler may be
// nil in tests; reminders are then skipped.
func NewShowtimeHandler(showtimeRepo *repository.ShowtimeRepo, screenRepo *repository.ScreenRepo, sched *schedule.Scheduler, registry *event.Registry, reminderLead time.Duration) *ShowtimeHandler {
	if showtimeRepo == nil || screenRepo == nil || registry == nil {
		panic("nil dependency passed to NewShowtimeHandler")
	}
	return &ShowtimeHandler{
		ShowtimeRepo: showtimeRepo,
		ScreenRepo:   screenRepo,
		Scheduler:    sched,
		Registry:     registry,
		ReminderLead: reminderLead,
		reminders:    make(map[uint64]*schedule.Task),
	}
}

type showtimeRequest struct {
	MovieID        uint64    `json:"movie_id"`
	ScreenID       uint64    `json:"screen_id"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	BasePriceCents uint32    `json:"base_price_cents"`
}

func (r *showtimeRequest) validate() string {
	if r.MovieID == 0 || r.ScreenID == 0 {
		return "movie_id and screen_id are required"
	}
	if r.StartsAt.IsZero() || r.EndsAt.IsZero() || !r.StartsAt.Before(r.EndsAt) {
		return "starts_at must be before ends_at"
	}
	if r.BasePriceCents == 0 {
		return "base_price_cents is required"
	}
	return ""
}

func showtimeJSON(s *model.Showtime) echo.Map {
	return echo.Map{
		"id":               s.ID,
		"movie_id":         s.MovieID,
		"screen_id":        s.ScreenID,
		"starts_at":        s.StartsAt,
		"ends_at":          s.EndsAt,
		"base_price_cents": s.BasePriceCents,
		"status":           s.Status,
	}
}

func conflictJSON(overlaps []model.Showtime) echo.Map {
	list := make([]echo.Map, 0, len(overlaps))
	for i := range overlaps {
		list = append(list, showtimeJSON(&overlaps[i]))
	}
	return echo.Map{"error": "showtime overlaps an existing slot", "conflicts": list}
}

// Schedule handles POST /v1/showtimes.  The window is half-open:
// back-to-back showtimes sharing a boundary instant do not conflict.
func (h *ShowtimeHandler) Schedule(c echo.Context) error {
	var req showtimeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()

	if _, err := h.ScreenRepo.GetByID(ctx, req.ScreenID); err != nil {
		if errors.Is(err, repository.ErrScreenNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "screen not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	st := &model.Showtime{
		MovieID:        req.MovieID,
		ScreenID:       req.ScreenID,
		StartsAt:       req.StartsAt.UTC(),
		EndsAt:         req.EndsAt.UTC(),
		BasePriceCents: req.BasePriceCents,
	}
	overlaps, err := h.ShowtimeRepo.Schedule(ctx, st)
	if errors.Is(err, repository.ErrScheduleConflict) {
		return c.JSON(http.StatusConflict, conflictJSON(overlaps))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to schedule showtime"})
	}
	h.armReminder(st)
	return c.JSON(http.StatusCreated, showtimeJSON(st))
}

// Reschedule handles PUT /v1/showtimes/:id.  The guard excludes the
// showtime itself, so a slot may overlap its own previous window.
func (h *ShowtimeHandler) Reschedule(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var req struct {
		StartsAt       time.Time `json:"starts_at"`
		EndsAt         time.Time `json:"ends_at"`
		BasePriceCents uint32    `json:"base_price_cents"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() || !req.StartsAt.Before(req.EndsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be before ends_at"})
	}
	ctx := c.Request().Context()

	st, err := h.ShowtimeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if st.Status != model.ShowtimeScheduled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "showtime is cancelled"})
	}
	st.StartsAt = req.StartsAt.UTC()
	st.EndsAt = req.EndsAt.UTC()
	if req.BasePriceCents > 0 {
		st.BasePriceCents = req.BasePriceCents
	}

	overlaps, err := h.ShowtimeRepo.Reschedule(ctx, st)
	if errors.Is(err, repository.ErrScheduleConflict) {
		return c.JSON(http.StatusConflict, conflictJSON(overlaps))
	}
	if errors.Is(err, repository.ErrShowtimeNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reschedule showtime"})
	}
	h.armReminder(st)
	return c.JSON(http.StatusOK, showtimeJSON(st))
}

// Cancel handles DELETE /v1/showtimes/:id.  A cancelled showtime
// leaves the overlap guard and stops accepting bookings; existing
// orders are refunded out of band.
func (h *ShowtimeHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	err := h.ShowtimeRepo.CancelShowtime(c.Request().Context(), id)
	if errors.Is(err, repository.ErrShowtimeNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	h.disarmReminder(id)
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/showtimes/:id.
func (h *ShowtimeHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	st, err := h.ShowtimeRepo.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrShowtimeNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, showtimeJSON(st))
}

// armReminder schedules the reminder event ahead of the showtime,
// replacing any reminder armed for a previous slot.  Showtimes too
// close to start (or already started) get no reminder.
func (h *ShowtimeHandler) armReminder(st *model.Showtime) {
	if h.Scheduler == nil || h.ReminderLead <= 0 {
		return
	}
	h.disarmReminder(st.ID)
	fireAt := st.StartsAt.Add(-h.ReminderLead)
	if !fireAt.After(time.Now().UTC()) {
		return
	}
	id := st.ID
	task := h.Scheduler.At(fireAt, "showtime-reminder", func(ctx context.Context) {
		h.Registry.Dispatch(ctx, event.Event{
			Kind:       event.ShowtimeReminder,
			ShowtimeID: id,
			At:         time.Now().UTC(),
		})
	})
	h.remindersMu.Lock()
	h.reminders[id] = task
	h.remindersMu.Unlock()
}

func (h *ShowtimeHandler) disarmReminder(showtimeID uint64) {
	h.remindersMu.Lock()
	t, ok := h.reminders[showtimeID]
	if ok {
		delete(h.reminders, showtimeID)
	}
	h.remindersMu.Unlock()
	if ok {
		t.Cancel()
	}
}

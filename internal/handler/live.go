package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"cineseat/internal/hub"
	"cineseat/internal/metrics"
	"cineseat/internal/model"
	"cineseat/internal/repository"
)

// ShowtimeFinder is the slice of the showtime repository the live
// channel needs to validate a join.
type ShowtimeFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.Showtime, error)
}

// LiveHandler upgrades seat-map viewers to a websocket session on the
// hub.  The session relays hold/release frames between viewers of the
// same showtime; it carries no durable state.
type LiveHandler struct {
	Showtimes ShowtimeFinder
	Hub       *hub.Hub
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(showtimes ShowtimeFinder, h *hub.Hub) *LiveHandler {
	if showtimes == nil || h == nil {
		panic("nil dependency passed to NewLiveHandler")
	}
	return &LiveHandler{Showtimes: showtimes, Hub: h}
}

// Serve handles GET /v1/showtimes/:id/live.  The optional "holder"
// query parameter lets a reconnecting client keep its identity;
// otherwise a fresh one is generated and echoed in the first frame's
// holder_id so the client can pass it to the availability endpoint.
func (h *LiveHandler) Serve(c echo.Context) error {
	showtimeID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	st, err := h.Showtimes.GetByID(c.Request().Context(), showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if st.Status != model.ShowtimeScheduled {
		return c.JSON(http.StatusConflict, echo.Map{"error": "showtime is not open"})
	}

	holderID := c.QueryParam("holder")
	if holderID == "" {
		holderID = uuid.NewString()
	}

	websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()
		conn := h.Hub.Join(showtimeID, holderID)
		metrics.HubConnections.Inc()
		defer metrics.HubConnections.Dec()
		defer h.Hub.Leave(conn)

		// Writer: drain the hub outbox onto the socket.  The outbox is
		// closed when the hub drops the connection; closing the socket
		// on exit unblocks the reader below either way.
		go func() {
			defer ws.Close()
			for payload := range conn.Outbox() {
				if err := websocket.Message.Send(ws, string(payload)); err != nil {
					return
				}
			}
		}()

		// First frame tells the client its holder identity.
		hello := hub.Message{Type: hub.TypeWelcome, ShowtimeID: showtimeID, HolderID: holderID}
		if err := websocket.Message.Send(ws, string(hello.Encode())); err != nil {
			return
		}

		// Reader: apply client frames to the hub until the socket
		// closes or the writer gives up.
		for {
			var raw string
			if err := websocket.Message.Receive(ws, &raw); err != nil {
				return
			}
			msg, err := hub.DecodeClient([]byte(raw))
			if err != nil {
				continue // bad frames are ignored, not fatal
			}
			switch msg.Type {
			case hub.TypeHold:
				h.Hub.Hold(conn, msg.SeatIDs)
			case hub.TypeRelease:
				h.Hub.Release(conn, msg.SeatIDs)
			}
		}
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}

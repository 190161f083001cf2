// Package router wires HTTP routes to their handlers.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cineseat/internal/handler"
	"cineseat/internal/middleware"
)

// Handlers groups everything the route table needs.
type Handlers struct {
	Availability *handler.AvailabilityHandler
	Booking      *handler.BookingHandler
	Live         *handler.LiveHandler
	Screen       *handler.ScreenHandler
	Showtime     *handler.ShowtimeHandler
}

// RegisterRoutes maps the whole API onto the Echo instance.
//
// Public: health, metrics, seat availability and the live channel, so
// guests can watch a seat map before authenticating.  Booking requires
// a CUSTOMER token; catalog administration requires ADMIN.
func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/v1/showtimes/:id", h.Showtime.Get)
	e.GET("/v1/showtimes/:id/seats", h.Availability.GetSeatMap)
	e.GET("/v1/showtimes/:id/live", h.Live.Serve)

	customer := e.Group("/v1")
	customer.Use(middleware.JWTAuth(jwtSecret))
	customer.Use(middleware.RequireRole("CUSTOMER", "ADMIN"))
	customer.POST("/showtimes/:id/orders", h.Booking.CreateOrder)
	customer.GET("/orders/:id", h.Booking.GetOrder)
	customer.POST("/orders/:id/confirm", h.Booking.ConfirmOrder)
	customer.POST("/orders/:id/cancel", h.Booking.CancelOrder)

	admin := e.Group("/v1")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/screens", h.Screen.Create)
	admin.GET("/screens/:id", h.Screen.Get)
	admin.PATCH("/seats/:id", h.Screen.UpdateSeat)
	admin.POST("/showtimes", h.Showtime.Schedule)
	admin.PUT("/showtimes/:id", h.Showtime.Reschedule)
	admin.DELETE("/showtimes/:id", h.Showtime.Cancel)
}

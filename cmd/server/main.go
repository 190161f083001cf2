package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"cineseat/internal/cache"
	"cineseat/internal/config"
	"cineseat/internal/database"
	"cineseat/internal/event"
	"cineseat/internal/handler"
	"cineseat/internal/hub"
	"cineseat/internal/job"
	"cineseat/internal/queue"
	"cineseat/internal/repository"
	"cineseat/internal/router"
	"cineseat/internal/schedule"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("database: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, availability snapshots disabled")
	}
	snapshots := cache.NewSnapshots(rdb, cfg.CacheTTL)

	screenRepo := repository.NewScreenRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	showtimeRepo := repository.NewShowtimeRepo(db)
	orderRepo := repository.NewOrderRepo(db)

	liveHub := hub.New()
	publisher := queue.NewPublisher(cfg.AmqpURL)
	registry := event.NewRegistry()
	wireEvents(registry, liveHub, snapshots, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := schedule.New()
	go sched.Run(ctx)
	sweep := job.NewExpirySweep(orderRepo, registry)
	sched.Every(cfg.SweepEvery, "expiry-sweep", sweep.Run)

	go queue.StartOrderConsumer(cfg.AmqpURL)

	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, router.Handlers{
		Availability: handler.NewAvailabilityHandler(seatRepo, showtimeRepo, orderRepo, liveHub, snapshots),
		Booking:      handler.NewBookingHandler(orderRepo, seatRepo, showtimeRepo, registry, cfg.HoldWindow),
		Live:         handler.NewLiveHandler(showtimeRepo, liveHub),
		Screen:       handler.NewScreenHandler(screenRepo, seatRepo),
		Showtime:     handler.NewShowtimeHandler(showtimeRepo, screenRepo, sched, registry, cfg.ReminderLead),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// wireEvents registers the reaction chains for each domain event.
// Ordering matters: local fan-out (hub, cache) runs before the broker
// publish so connected viewers see changes even when the broker is
// slow.
func wireEvents(registry *event.Registry, liveHub *hub.Hub, snapshots *cache.Snapshots, publisher *queue.Publisher) {
	publish := func(ctx context.Context, ev event.Event) error {
		return publisher.Publish(ctx, queue.OrderLifecycleEvent{
			Event:      ev.Kind.String(),
			OrderID:    ev.OrderID,
			Reference:  ev.Reference,
			UserID:     ev.UserID,
			ShowtimeID: ev.ShowtimeID,
			SeatIDs:    ev.SeatIDs,
			TotalCents: ev.TotalCents,
			OccurredAt: ev.At.Format(time.RFC3339),
		})
	}
	invalidate := func(ctx context.Context, ev event.Event) error {
		snapshots.Invalidate(ctx, ev.ShowtimeID)
		return nil
	}

	// A created order already owns its seats; confirmation changes
	// nothing about availability.
	registry.On(event.OrderCreated, "hub-confirm", func(ctx context.Context, ev event.Event) error {
		liveHub.ConfirmSeats(ev.ShowtimeID, ev.SeatIDs)
		return nil
	})
	registry.On(event.OrderCreated, "cache-invalidate", invalidate)
	registry.On(event.OrderCreated, "broker-publish", publish)

	registry.On(event.OrderConfirmed, "broker-publish", publish)

	for _, kind := range []event.Kind{event.OrderCancelled, event.OrderExpired} {
		registry.On(kind, "hub-release", func(ctx context.Context, ev event.Event) error {
			liveHub.ReleaseSeats(ev.ShowtimeID, ev.SeatIDs)
			return nil
		})
		registry.On(kind, "cache-invalidate", invalidate)
		registry.On(kind, "broker-publish", publish)
	}

	registry.On(event.ShowtimeReminder, "log", func(ctx context.Context, ev event.Event) error {
		log.Printf("reminder: showtime %d starts soon", ev.ShowtimeID)
		return nil
	})
	registry.On(event.ShowtimeReminder, "broker-publish", publish)
}

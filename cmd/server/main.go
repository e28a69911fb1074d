package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/lock"
	"github.com/iliyamo/hotel-reservation/internal/middleware"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/router"
	"github.com/iliyamo/hotel-reservation/internal/service"
	"github.com/iliyamo/hotel-reservation/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("server: .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Env, cfg.OTelConfig)
	if err != nil {
		log.Fatal(err)
	}

	// Store
	var (
		store  repository.Store
		health echo.HandlerFunc
	)
	switch cfg.StoreDriver {
	case "memory":
		store = repository.NewMemoryStore()
		health = handler.Health(nil)
		log.Printf("server: using in-memory store")
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("server: open database: %v", err)
		}
		defer db.Close()
		if cfg.DBMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				log.Fatalf("server: %v", err)
			}
		}
		store = repository.NewMySQLStore(db, repository.RetryPolicy{
			MaxRetries:   cfg.RetryConfig.MaxRetries,
			InitialDelay: cfg.RetryConfig.Initial,
			MaxDelay:     cfg.RetryConfig.MaxDelay,
			Jitter:       cfg.RetryConfig.Jitter,
		})
		health = handler.Health(db)
	}

	// Redis backs the settlement lock and the rate limiter when reachable.
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		log.Fatal(err)
	}
	rdb := config.NewRedisClient(redisCfg)
	var locker lock.Locker = lock.NewLocalLocker()
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, "hotel:lock:", cfg.SettleLockTTL(), 25*time.Millisecond)
	} else {
		log.Printf("server: redis unavailable, settlement lock is process-local and rate limiting is off")
	}
	rlCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Events
	var pub queue.EventPublisher = queue.LogPublisher{}
	if cfg.RabbitURL != "" {
		rp, err := queue.NewRabbitPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			log.Printf("server: rabbitmq unavailable, events go to the log: %v", err)
		} else {
			defer rp.Close()
			pub = rp
		}
	}
	dispatcher := queue.NewDispatcher(pub, cfg.DispatchBuffer, cfg.DispatchWorkers, 5*time.Second)

	ledger := service.NewBookingLedger(store, dispatcher)
	payments := service.NewPaymentProcessor(store, service.DefaultCapabilities(), locker, dispatcher)

	e := router.New(router.Handlers{
		Health:   health,
		Rooms:    handler.NewRoomHandler(ledger, service.NewAvailabilityChecker(store)),
		Bookings: handler.NewBookingHandler(ledger),
		Payments: handler.NewPaymentHandler(ledger, payments, cfg.SettleTimeout),
		Owner:    handler.NewOwnerHandler(ledger),
	}, cfg.JWTSecret, middleware.RateLimit(rlCfg, rdb))

	go func() {
		addr := ":" + cfg.Port
		log.Printf("server: listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("server: shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Printf("server: http shutdown: %v", err)
	}
	if err := dispatcher.Close(sctx); err != nil {
		log.Printf("server: drain events: %v", err)
	}
	if err := shutdownTracer(sctx); err != nil {
		log.Printf("server: tracer shutdown: %v", err)
	}
}

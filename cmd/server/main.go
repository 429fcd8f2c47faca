package main // Entry point package

import (
	"context"
	"log" // Logging library

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/GHtech935/glampinghub/internal/booking"
	"github.com/GHtech935/glampinghub/internal/config" // Internal config loader
	"github.com/GHtech935/glampinghub/internal/database"
	"github.com/GHtech935/glampinghub/internal/handler"
	"github.com/GHtech935/glampinghub/internal/paymentinfo"
	"github.com/GHtech935/glampinghub/internal/queue"
	"github.com/GHtech935/glampinghub/internal/repository"
	"github.com/GHtech935/glampinghub/internal/router" // Internal router setup
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load() // Load environment config

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpenConns,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}

	opts := booking.Options{PaymentWindow: cfg.PaymentWindow, DefaultCurrency: cfg.DefaultCurrency}
	if cfg.BrokerURL != "" {
		opts.Publisher = queue.NewPublisher(cfg.BrokerURL)
		if cfg.NotifyConsumerEnabled {
			go queue.StartNotificationConsumer(cfg.BrokerURL, queue.LogMailer{})
		}
	} else {
		log.Printf("no broker configured; booking events are not published")
	}
	svc := booking.NewService(db, opts)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	router.Register(e, router.Deps{
		DB:           db,
		JWTSecret:    cfg.JWTSecret,
		Redis:        rdb,
		Cache:        config.LoadCacheConfig(),
		RateLimit:    config.LoadRateLimitConfig(),
		Availability: handler.NewAvailabilityHandler(svc),
		Bookings:     handler.NewBookingHandler(svc, paymentinfo.NewProvider(db, repository.NewCatalogRepo(db))),
	})

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info
	if err := e.Start(addr); err != nil {                 // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}

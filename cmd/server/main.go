package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bazcar/bazcar-backend/config"
	"github.com/bazcar/bazcar-backend/internal/app/controller"
	"github.com/bazcar/bazcar-backend/internal/app/model"
	"github.com/bazcar/bazcar-backend/internal/app/repository"
	"github.com/bazcar/bazcar-backend/internal/app/service"
	"github.com/bazcar/bazcar-backend/internal/db"
	"github.com/bazcar/bazcar-backend/internal/middleware"
	"github.com/bazcar/bazcar-backend/internal/router"
	"github.com/bazcar/bazcar-backend/internal/scheduler"
	"github.com/bazcar/bazcar-backend/internal/websocket"
	"github.com/bazcar/bazcar-backend/pkg/bookingapi"
	"github.com/bazcar/bazcar-backend/pkg/events"
	"github.com/bazcar/bazcar-backend/pkg/logger"
	"github.com/bazcar/bazcar-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

// sessionStore is what both the cart snapshot and the cleanup job need
type sessionStore interface {
	service.SessionStore
	scheduler.StaleSessionStore
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting BAZCAR Backend Server", logger.Fields{
		"environment":   cfg.Server.Environment,
		"port":          cfg.Server.Port,
		"log_level":     logLevel,
		"session_store": cfg.Session.Store,
		"booking_api":   cfg.BookingAPI.BaseURL,
	})

	// Redis backs the redis session store and the booking API response cache.
	// With the postgres store it is optional.
	redisReady := false
	if err := redis.Init(&cfg.Redis); err != nil {
		if cfg.Session.Store == config.SessionStoreRedis {
			logger.Fatal("Redis is required for SESSION_STORE=redis", err)
		}
		logger.Warn("Redis unavailable, booking API responses will not be cached", logger.Fields{
			"error": err.Error(),
		})
	} else {
		redisReady = true
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}

	var store sessionStore
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		store = redis.NewSessionStore(redis.GetClient(), cfg.Session.TTL)
	default:
		if err := db.Initialize(&cfg.Database); err != nil {
			logger.Fatal("Failed to initialize database", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database connection", err)
			}
		}()
		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to run migrations", err)
		}
		store = repository.NewSessionRepository(db.GetDB())
	}

	// Booking API client
	var clientOpts []bookingapi.Option
	if redisReady && cfg.BookingAPI.CacheTTL > 0 {
		clientOpts = append(clientOpts, bookingapi.WithCache(redis.NewResponseCache(redis.GetClient())))
	}
	bookingClient, err := bookingapi.NewClient(bookingapi.Config{
		BaseURL:  cfg.BookingAPI.BaseURL,
		Timeout:  cfg.BookingAPI.Timeout,
		CacheTTL: cfg.BookingAPI.CacheTTL,
	}, clientOpts...)
	if err != nil {
		logger.Fatal("Failed to create booking API client", err)
	}

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.BookingTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", err)
		}
	}()

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Initialize services
	snapshot := service.NewCartSnapshot(store)
	catalogService := service.NewCatalogService(bookingClient, service.NewFetchGuard(), cfg.BookingAPI.ServerBaseURL())
	cartService := service.NewCartService(catalogService, snapshot, hub)
	qrService := service.NewQRService(bookingClient, store)
	checkoutService := service.NewCheckoutService(cartService, qrService, bookingClient, publisher, hub)
	exporter := service.NewQuoteExporter(func() []model.AdditionalService {
		return catalogService.ServiceCatalog(context.Background())
	})

	// Initialize controllers
	catalogController := controller.NewCatalogController(catalogService)
	quoteController := controller.NewQuoteController(catalogService, qrService)
	cartController := controller.NewCartController(cartService, checkoutService, exporter)
	checkoutController := controller.NewCheckoutController(checkoutService)
	qrController := controller.NewQRController(qrService)
	noticeController := controller.NewNoticeController(hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	sessionMiddleware := middleware.NewSessionMiddleware(
		cfg.Session.Secret,
		cfg.Session.TTL,
		cfg.Server.Environment == "production",
	)

	cleanup := scheduler.NewSessionCleanupScheduler(cfg.Session.CleanupCron, store, cfg.Session.TTL, cartService, checkoutService)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start session cleanup scheduler", err)
	}

	// Setup router
	r := router.NewRouter(
		catalogController,
		quoteController,
		cartController,
		checkoutController,
		qrController,
		noticeController,
		sessionMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", logger.Fields{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	cleanup.Stop()

	// carts changed by the last requests must reach the store
	if err := snapshot.Flush(ctx); err != nil {
		logger.Error("Failed to flush cart snapshots", err)
	}
	snapshot.Close()

	logger.Info("Server stopped successfully", nil)
}

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

	"github.com/ikkim/marketplace-backend/config"
	"github.com/ikkim/marketplace-backend/internal/app/controller"
	"github.com/ikkim/marketplace-backend/internal/app/repository"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	"github.com/ikkim/marketplace-backend/internal/db"
	"github.com/ikkim/marketplace-backend/internal/kv"
	"github.com/ikkim/marketplace-backend/internal/middleware"
	"github.com/ikkim/marketplace-backend/internal/router"
	"github.com/ikkim/marketplace-backend/internal/scheduler"
	"github.com/ikkim/marketplace-backend/internal/storage"
	ws "github.com/ikkim/marketplace-backend/internal/websocket"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	redisclient "github.com/ikkim/marketplace-backend/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

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

	logger.Info("Starting Marketplace Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
		"log_level":   logLevel,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := db.SeedAdmin(db.GetDB(), &cfg.Admin); err != nil {
		logger.Warn("Failed to seed admin account", map[string]interface{}{
			"error": err.Error(),
		})
	}

	store, closeStore := newKVStore(&cfg.Redis)
	defer closeStore()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	// Catalog event hub for admin consoles
	hub := ws.NewHub()
	go hub.Run(ctx)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	wishlistRepo := repository.NewWishlistRepository(store)

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		service.NewDatabaseCredentialVerifier(userRepo),
		store,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo, hub)
	cartService := service.NewCartService(cartRepo)
	wishlistService := service.NewWishlistService(wishlistRepo, productRepo)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService)
	wishlistController := controller.NewWishlistController(wishlistService)
	adminController := controller.NewAdminController(productService)
	uploadController := controller.NewUploadController(storage.NewS3Storage(ctx, &cfg.S3))
	eventsController := controller.NewEventsController(hub, cfg.CORS.AllowedOrigins)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, authService)

	// Scheduler
	reportScheduler := scheduler.NewCatalogReportScheduler(
		cfg.Scheduler.CatalogReportCron,
		productService,
		scheduler.CatalogGauges{Products: metrics.CatalogProducts, Clicks: metrics.CatalogClicks},
	)
	if err := reportScheduler.Start(); err != nil {
		logger.Warn("Catalog report scheduler disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer reportScheduler.Stop()
	}

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		wishlistController,
		adminController,
		uploadController,
		eventsController,
		authMiddleware,
		metrics,
		registry,
		cfg,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": server.Addr,
			"pid":     os.Getpid(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	logger.Info("Shutting down server gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err)
	}
	logger.Info("Server stopped successfully")
}

// newKVStore returns the Redis store when enabled and reachable, otherwise an
// in-process store. Wishlists and token revocations are then lost on restart.
func newKVStore(cfg *config.RedisConfig) (kv.Store, func()) {
	if cfg.Enabled {
		client, err := redisclient.NewClient(cfg)
		if err == nil {
			return kv.NewRedisStore(client), func() {
				if err := client.Close(); err != nil {
					logger.Error("Failed to close Redis connection", err)
				}
			}
		}
		logger.Warn("Redis unavailable, falling back to in-memory store", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return kv.NewMemoryStore(), func() {}
}

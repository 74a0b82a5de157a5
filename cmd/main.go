// Package main provides the entry point for the CityPulse API service.
// @title CityPulse API
// @version 1.0
// @description Event discovery backend: catalog search and pagination, favorites and per-device app state.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

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

	_ "github.com/citypulse/server/docs" // Import for swagger docs
	"github.com/citypulse/server/internal/api/handlers"
	"github.com/citypulse/server/internal/api/router"
	"github.com/citypulse/server/internal/cache"
	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/database"
	"github.com/citypulse/server/internal/jobs"
	"github.com/citypulse/server/internal/services/auth"
	"github.com/citypulse/server/internal/services/favorites"
	"github.com/citypulse/server/internal/services/search"
	"github.com/citypulse/server/internal/services/storage"
	"github.com/citypulse/server/internal/services/ticketmaster"
	"github.com/citypulse/server/internal/store"
	"github.com/citypulse/server/internal/utils"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Starting CityPulse service")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize databases
	pg, err := database.NewPostgresDB(&cfg.Postgres)
	if err != nil {
		logger.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	mongo, err := database.NewMongoDB(&cfg.MongoDB)
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	// The event cache is optional: details fall back to the catalog.
	handlerDeps := map[string]handlers.Pinger{"postgres": pg, "mongodb": mongo}
	var eventCache ticketmaster.EventCache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		logger.Warnf("Redis unavailable, event details will not be cached: %v", err)
	} else {
		eventCache = redisCache
		handlerDeps["redis"] = redisCache
	}

	// Initialize S3 storage for device state snapshots
	blobs, err := storage.NewStorage(&cfg.S3)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	handlerDeps["s3"] = blobs

	registry := store.NewRegistry(blobs, cfg.S3.StatePrefix)
	catalog := ticketmaster.NewClientFromConfig(cfg.Ticketmaster, cfg.Catalog.UpcomingWindowDays, eventCache)

	// Coordinators
	searchCoordinator := search.NewCoordinator(catalog, cfg.Catalog)
	favoritesCoordinator := favorites.NewCoordinator(mongo)

	// Identity
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:            cfg.API.JWTSecret,
		AccessTokenDuration:  cfg.API.AccessTokenDuration,
		RefreshTokenDuration: cfg.API.RefreshTokenDuration,
		Issuer:               cfg.API.JWTIssuer,
	})
	sessionService := auth.NewSessionService(pg, jwtService)
	notifier := auth.NewNotifier()
	identity := auth.NewIdentityService(pg, sessionService,
		auth.NewGoogleVerifier(cfg.Google.ClientID, ""), notifier)

	auth.NewSessionListener(registry, favoritesCoordinator).Start(ctx, notifier)

	// Maintenance jobs
	maintenance, err := jobs.NewMaintenance(cfg.Jobs, sessionService, registry, searchCoordinator)
	if err != nil {
		logger.Fatalf("Failed to schedule maintenance jobs: %v", err)
	}
	maintenance.Start()

	// Initialize router
	r := router.NewRouter(ctx, cfg, router.Handlers{
		Health:      handlers.NewHealthHandler(version, handlerDeps, "postgres", "mongodb"),
		Auth:        handlers.NewAuthHandlers(identity),
		Events:      handlers.NewEventHandler(searchCoordinator, catalog),
		Favorites:   handlers.NewFavoritesHandler(favoritesCoordinator),
		Preferences: handlers.NewPreferencesHandler(),
	}, registry, identity)

	// Start server
	go func() {
		logger.Infof("Starting server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := r.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Failed to shut down HTTP server: %v", err)
	}
	maintenance.Stop(shutdownCtx)
	stop()

	// Write back every dirty device store before the connections go away
	if err := registry.Flush(shutdownCtx); err != nil {
		logger.Errorf("Failed to flush device state: %v", err)
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			logger.Errorf("Failed to close Redis connection: %v", err)
		}
	}
	if err := mongo.Close(shutdownCtx); err != nil {
		logger.Errorf("Failed to close MongoDB connection: %v", err)
	}
	pg.Close()

	logger.Info("Server shutdown complete")
}

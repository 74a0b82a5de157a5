package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/citypulse/server/internal/api/handlers"
	"github.com/citypulse/server/internal/api/middleware"
	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/metrics"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandlers
	Events      *handlers.EventHandler
	Favorites   *handlers.FavoritesHandler
	Preferences *handlers.PreferencesHandler
}

type Router struct {
	engine *gin.Engine
	config *config.Config
	server *http.Server
}

// NewRouter builds the engine. ctx bounds the background work of the
// middleware it installs.
func NewRouter(ctx context.Context, cfg *config.Config, h Handlers, stores middleware.StoreProvider, validator middleware.AccessValidator) *Router {
	// Set Gin mode
	if cfg.Server.Host == "0.0.0.0" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Add middleware
	engine.Use(gin.Recovery())
	engine.Use(middleware.CorrelationIDMiddleware())
	engine.Use(middleware.MetricsMiddleware())
	if cfg.CORS.Enabled {
		engine.Use(middleware.CORSMiddleware(cfg.CORS))
	}

	// Health endpoints (no device required)
	health := engine.Group("/")
	{
		health.GET("/health", h.Health.Health)
		health.GET("/ready", h.Health.Readiness)
		health.GET("/live", h.Health.Liveness)
	}

	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Every API call carries a device id and works on that device's store.
	api := engine.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(ctx, &cfg.API))
	api.Use(middleware.DeviceMiddleware(stores))
	api.Use(middleware.OptionalJWTAuthMiddleware(validator))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/signup", h.Auth.SignUp)
		authGroup.POST("/guest", h.Auth.Guest)
		authGroup.POST("/google", h.Auth.Google)
		authGroup.POST("/biometric/login", h.Auth.BiometricLogin)
		authGroup.POST("/refresh", h.Auth.RefreshToken)

		protected := authGroup.Group("")
		protected.Use(middleware.JWTAuthMiddleware(validator))
		{
			protected.POST("/logout", h.Auth.Logout)
			protected.GET("/me", h.Auth.Me)
			protected.POST("/biometric", h.Auth.EnableBiometric)
			protected.DELETE("/biometric", h.Auth.DisableBiometric)
		}
	}

	events := api.Group("/events")
	{
		events.GET("", h.Events.List)
		events.POST("/search", h.Events.Search)
		events.POST("/more", h.Events.LoadMore)
		events.GET("/upcoming", h.Events.Upcoming)
		events.GET("/suggestions", h.Events.Suggestions)
		events.GET("/:event_id", h.Events.Details)
	}

	// Favorites belong to the signed-in user, so the device id alone is not
	// enough.
	favorites := api.Group("/favorites")
	favorites.Use(middleware.JWTAuthMiddleware(validator))
	{
		favorites.GET("", h.Favorites.List)
		favorites.PUT("", h.Favorites.Save)
		favorites.DELETE("", h.Favorites.Clear)
		favorites.POST("/sync", h.Favorites.Sync)
		favorites.POST("/:event_id/toggle", h.Favorites.Toggle)
	}

	prefs := api.Group("/preferences")
	{
		prefs.GET("", h.Preferences.Get)
		prefs.PUT("", h.Preferences.Update)
		prefs.POST("/splash-seen", h.Preferences.SplashSeen)
	}
	api.GET("/state", h.Preferences.State)

	return &Router{
		engine: engine,
		config: cfg,
		server: &http.Server{
			Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
			Handler: engine,
		},
	}
}

// Start serves until Shutdown is called. It returns http.ErrServerClosed
// after a clean shutdown.
func (r *Router) Start() error {
	return r.server.ListenAndServe()
}

func (r *Router) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablecast/tablecast/internal/app"
	"github.com/tablecast/tablecast/internal/handlers"
	"github.com/tablecast/tablecast/internal/middleware"
	"github.com/tablecast/tablecast/internal/realtime"
	"github.com/tablecast/tablecast/internal/store"
	"github.com/tablecast/tablecast/internal/uploads"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(cfg *app.Config, sessions *store.SessionStore, hub *realtime.Hub, storage *uploads.Storage) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store must be provided")
	}
	if hub == nil {
		return nil, fmt.Errorf("realtime hub must be provided")
	}
	if storage == nil {
		return nil, fmt.Errorf("upload storage must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins...))
	// Basic rate limiting: 300 requests/minute per IP+path
	r.Use(middleware.RateLimit(300, time.Minute))

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Uploaded map images are served as plain static files.
	r.Static("/uploads", storage.Dir())

	sessionHandler := handlers.NewSessionHandler(sessions)
	mapHandler := handlers.NewMapHandler(sessions, storage, cfg.Server.PublicBaseURL, cfg.Uploads.MaxBytes)
	tokenHandler := handlers.NewTokenHandler(sessions)
	presetHandler := handlers.NewPresetHandler(sessions)
	realtimeHandler := handlers.NewRealtimeHandler(sessions, hub)

	api := r.Group("/api")
	api.POST("/sessions", sessionHandler.Create)
	api.GET("/sessions", sessionHandler.List)
	api.GET("/sessions/:session_id", sessionHandler.Get)

	session := api.Group("/sessions/:session_id")
	{
		session.POST("/map/url", mapHandler.SetURL)
		session.POST("/map/upload", mapHandler.Upload)
		session.POST("/map/grid", mapHandler.SetGridSize)
		session.POST("/warp", mapHandler.SetWarp)
		session.POST("/view", mapHandler.SetView)

		session.POST("/tokens", tokenHandler.Create)
		session.POST("/tokens/order", tokenHandler.SetOrder)
		session.PUT("/tokens/:token_id", tokenHandler.Update)
		session.DELETE("/tokens/:token_id", tokenHandler.Delete)

		session.POST("/presets", presetHandler.Create)
		session.PUT("/presets/:preset_id", presetHandler.Update)
		session.DELETE("/presets/:preset_id", presetHandler.Delete)
	}

	r.GET("/ws/:session_id", realtimeHandler.Stream)

	return r, nil
}

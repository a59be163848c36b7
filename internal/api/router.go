package api

import (
	"net/http"

	"github.com/frostdev-ops/kpi-backend-go/internal/api/handlers"
	"github.com/frostdev-ops/kpi-backend-go/internal/api/middleware"
	"github.com/frostdev-ops/kpi-backend-go/internal/config"
	"github.com/frostdev-ops/kpi-backend-go/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MetricsExporter records HTTP telemetry and serves the scrape endpoint
type MetricsExporter interface {
	middleware.HTTPRecorder
	Handler() http.Handler
}

// NewRouter creates and configures the main HTTP router. metrics may be nil.
func NewRouter(cfg *config.Config, h *handlers.Handlers, metrics MetricsExporter, logger *logrus.Logger) *gin.Engine {
	// Set gin mode based on config
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if cfg.Security.EnableCORS {
		router.Use(middleware.CORSMiddleware(cfg.Security.AllowedOrigins))
	}
	if metrics != nil && cfg.Monitoring.Prometheus.Enabled {
		router.Use(middleware.MetricsMiddleware(metrics))
	}

	// Rate limiting
	if cfg.Security.RateLimitRPS > 0 {
		rateLimiter := middleware.NewRateLimiter(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
		router.Use(rateLimiter.RateLimitMiddleware())
	}

	router.Use(middleware.ErrorResponseMiddleware(logger))

	// Public routes
	router.GET("/health", h.Health)
	if metrics != nil && cfg.Monitoring.Prometheus.Enabled {
		router.GET(cfg.Monitoring.Prometheus.Path, gin.WrapH(metrics.Handler()))
	}

	// API v1 routes
	api := router.Group("/api/v1")
	if cfg.Auth.Enabled {
		api.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	} else {
		logger.Warn("Authentication disabled; callers are identified by the X-User-ID header")
		api.Use(middleware.HeaderIdentityMiddleware())
	}
	{
		// KPI endpoints
		kpis := api.Group("/kpis")
		{
			kpis.POST("", h.CreateKPI)
			kpis.GET("", h.GetKPIs)
			kpis.POST("/recompute", h.RecomputeAllKPIs)
			kpis.GET("/:id", h.GetKPI)
			kpis.PUT("/:id", h.UpdateKPI)
			kpis.PATCH("/:id/status", h.UpdateKPIStatus)
			kpis.DELETE("/:id", h.DeleteKPI)
			kpis.POST("/:id/recompute", h.RecomputeKPI)
			kpis.GET("/:id/history", h.GetKPIHistory)
			kpis.GET("/:id/alerts", h.GetKPIAlerts)
		}

		// Alert endpoints
		alerts := api.Group("/alerts")
		{
			alerts.GET("", h.GetAlerts)
			alerts.POST("/:id/acknowledge", h.AcknowledgeAlert)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		utils.SendError(c, http.StatusNotFound, "Endpoint not found")
	})

	return router
}

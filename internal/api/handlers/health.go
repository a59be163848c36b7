package handlers

import (
	"net/http"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/pkg/utils"
	"github.com/gin-gonic/gin"
)

// Health returns the health status of the service
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "kpi-backend-go",
		"version":   h.build.Version,
		"build":     h.build,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	}

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			h.log.WithError(err).Warn("Health check database ping failed")
			health["status"] = "unhealthy"
			health["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, utils.Response{
				Success:   false,
				Data:      health,
				Error:     "database unreachable",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		health["database"] = "ok"
	}

	utils.SendSuccess(c, health)
}

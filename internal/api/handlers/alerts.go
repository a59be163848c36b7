package handlers

import (
	"net/http"

	"github.com/frostdev-ops/kpi-backend-go/internal/api/middleware"
	"github.com/frostdev-ops/kpi-backend-go/pkg/utils"
	"github.com/gin-gonic/gin"
)

// GetAlerts lists the caller's alerts, newest first
func (h *Handlers) GetAlerts(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		utils.SendError(c, http.StatusBadRequest, "Invalid limit")
		return
	}
	unacknowledged := c.Query("unacknowledged") == "true"

	ctx, cancel := h.requestContext(c)
	defer cancel()

	alerts, err := h.store.ListAlerts(ctx, middleware.GetUserID(c), unacknowledged, limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list alerts")
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, alerts, gin.H{
		"count":          len(alerts),
		"unacknowledged": unacknowledged,
	})
}

// AcknowledgeAlert marks an alert as read
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	alert, err := h.store.AcknowledgeAlert(ctx, middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccess(c, alert)
}

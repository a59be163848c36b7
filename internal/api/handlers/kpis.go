package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/api/middleware"
	"github.com/frostdev-ops/kpi-backend-go/internal/core/kpi"
	"github.com/frostdev-ops/kpi-backend-go/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// kpiRequest is the body of create and update calls
type kpiRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	MetricType  kpi.MetricType      `json:"metric_type" binding:"required"`
	Source      kpi.Source          `json:"source"`
	PropertyID  string              `json:"property_id"`
	Unit        string              `json:"unit"`
	Goal        kpi.Goal            `json:"goal"`
	Period      kpi.Period          `json:"period"`
	Alerts      *kpi.AlertPolicy    `json:"alerts"`
	Status      kpi.LifecycleStatus `json:"status"`
}

func (r *kpiRequest) definition(userID, id string) *kpi.Definition {
	def := &kpi.Definition{
		ID:          id,
		UserID:      userID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		MetricType:  r.MetricType,
		Source:      r.Source,
		PropertyID:  r.PropertyID,
		Unit:        r.Unit,
		Goal:        r.Goal,
		Period:      r.Period,
		Status:      r.Status,
	}
	if r.Alerts != nil {
		def.Alerts = *r.Alerts
	} else {
		// omitted policy: alerts on, delivered in-app
		def.Alerts = kpi.AlertPolicy{
			Enabled:  true,
			Channels: kpi.NotificationChannels{InApp: true},
		}
	}
	return def
}

// CreateKPI stores a new KPI definition
func (h *Handlers) CreateKPI(c *gin.Context) {
	var request kpiRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := middleware.GetUserID(c)
	created, err := h.store.CreateKPI(ctx, request.definition(userID, ""))
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("Failed to create KPI")
		utils.SendAppError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"user_id": userID,
		"kpi_id":  created.ID,
	}).Info("KPI created")
	utils.SendCreated(c, created)
}

// GetKPIs lists the caller's KPIs
func (h *Handlers) GetKPIs(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	kpis, err := h.store.ListUserKPIs(ctx, middleware.GetUserID(c))
	if err != nil {
		h.log.WithError(err).Error("Failed to list KPIs")
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, kpis, gin.H{
		"count": len(kpis),
	})
}

// GetKPI retrieves one KPI with its current state and history
func (h *Handlers) GetKPI(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	found, err := h.store.GetKPI(ctx, middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccess(c, found)
}

// UpdateKPI replaces a KPI definition. Current state and history are kept.
func (h *Handlers) UpdateKPI(c *gin.Context) {
	var request kpiRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := middleware.GetUserID(c)
	updated, err := h.store.UpdateKPI(ctx, request.definition(userID, c.Param("id")))
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"kpi_id":  c.Param("id"),
		}).Warn("Failed to update KPI")
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccess(c, updated)
}

// UpdateKPIStatus changes the lifecycle status of a KPI
func (h *Handlers) UpdateKPIStatus(c *gin.Context) {
	var request struct {
		Status kpi.LifecycleStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := middleware.GetUserID(c)
	kpiID := c.Param("id")
	if err := h.store.SetLifecycleStatus(ctx, userID, kpiID, request.Status); err != nil {
		utils.SendAppError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"user_id": userID,
		"kpi_id":  kpiID,
		"status":  request.Status,
	}).Info("KPI status changed")
	utils.SendSuccess(c, gin.H{
		"id":     kpiID,
		"status": request.Status,
	})
}

// DeleteKPI removes a KPI with its history and alerts
func (h *Handlers) DeleteKPI(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	userID := middleware.GetUserID(c)
	kpiID := c.Param("id")
	if err := h.store.DeleteKPI(ctx, userID, kpiID); err != nil {
		utils.SendAppError(c, err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"user_id": userID,
		"kpi_id":  kpiID,
	}).Info("KPI deleted")
	utils.SendSuccess(c, gin.H{"deleted": kpiID})
}

// RecomputeKPI runs one recompute cycle. A JSON object body of raw metric
// fields replaces the provider fetch.
func (h *Handlers) RecomputeKPI(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var raw kpi.RawMetrics
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			utils.SendError(c, http.StatusBadRequest, "Raw metrics must be a JSON object of numbers")
			return
		}
	}

	userID := middleware.GetUserID(c)
	kpiID := c.Param("id")

	var result *kpi.CalculationResult
	if raw != nil {
		result, err = h.recomputer.RecomputeWithMetrics(c.Request.Context(), userID, kpiID, raw)
	} else {
		result, err = h.recomputer.Recompute(c.Request.Context(), userID, kpiID)
	}
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"kpi_id":  kpiID,
		}).Warn("KPI recompute failed")
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccess(c, result)
}

// RecomputeAllKPIs recomputes every active KPI of the caller
func (h *Handlers) RecomputeAllKPIs(c *gin.Context) {
	start := time.Now()
	userID := middleware.GetUserID(c)

	batch, err := h.recomputer.RecomputeAll(c.Request.Context(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("Batch recompute failed")
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, batch, gin.H{
		"computed": len(batch.Results),
		"failed":   len(batch.Errors),
		"skipped":  len(batch.Skipped),
		"duration": time.Since(start).String(),
	})
}

// GetKPIHistory returns the retained history of a KPI
func (h *Handlers) GetKPIHistory(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	history, err := h.store.GetHistory(ctx, middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, history, gin.H{
		"count": len(history),
	})
}

// GetKPIAlerts lists the alerts raised for one KPI
func (h *Handlers) GetKPIAlerts(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		utils.SendError(c, http.StatusBadRequest, "Invalid limit")
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	alerts, err := h.store.ListKPIAlerts(ctx, middleware.GetUserID(c), c.Param("id"), limit)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, alerts, gin.H{
		"count": len(alerts),
	})
}

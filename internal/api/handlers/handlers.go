package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/core/kpi"
	"github.com/frostdev-ops/kpi-backend-go/pkg/version"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// KPIStore is the definition, history and alert management surface
type KPIStore interface {
	CreateKPI(ctx context.Context, def *kpi.Definition) (*kpi.KPI, error)
	GetKPI(ctx context.Context, userID, kpiID string) (*kpi.KPI, error)
	ListUserKPIs(ctx context.Context, userID string) ([]*kpi.KPI, error)
	UpdateKPI(ctx context.Context, def *kpi.Definition) (*kpi.KPI, error)
	SetLifecycleStatus(ctx context.Context, userID, kpiID string, status kpi.LifecycleStatus) error
	DeleteKPI(ctx context.Context, userID, kpiID string) error
	GetHistory(ctx context.Context, userID, kpiID string) ([]kpi.HistoryEntry, error)
	ListAlerts(ctx context.Context, userID string, unacknowledgedOnly bool, limit int) ([]*kpi.Alert, error)
	ListKPIAlerts(ctx context.Context, userID, kpiID string, limit int) ([]*kpi.Alert, error)
	AcknowledgeAlert(ctx context.Context, userID, alertID string) (*kpi.Alert, error)
}

// Recomputer runs recompute cycles
type Recomputer interface {
	Recompute(ctx context.Context, userID, kpiID string) (*kpi.CalculationResult, error)
	RecomputeWithMetrics(ctx context.Context, userID, kpiID string, raw kpi.RawMetrics) (*kpi.CalculationResult, error)
	RecomputeAll(ctx context.Context, userID string) (*kpi.BatchResult, error)
}

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	store      KPIStore
	recomputer Recomputer
	db         Pinger
	log        *logrus.Logger

	// requestTimeout bounds store calls; recomputes carry their own timeout
	requestTimeout time.Duration
	startedAt      time.Time
	build          version.BuildInfo
}

// NewHandlers creates a new handlers instance
func NewHandlers(store KPIStore, recomputer Recomputer, db Pinger, logger *logrus.Logger) *Handlers {
	return &Handlers{
		store:          store,
		recomputer:     recomputer,
		db:             db,
		log:            logger,
		requestTimeout: 10 * time.Second,
		startedAt:      time.Now(),
		build:          version.GetBuildInfo(),
	}
}

func (h *Handlers) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.requestTimeout)
}

// queryLimit parses the limit query parameter; 0 means the store default
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, false
	}
	return limit, true
}

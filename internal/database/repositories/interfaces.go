package repositories

import (
	"context"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/database/models"
)

// KPIRepository defines KPI definition and current state data access methods.
// Every lookup is scoped to the owning user.
type KPIRepository interface {
	Create(ctx context.Context, kpi *models.KPI) error
	GetByID(ctx context.Context, userID, id string) (*models.KPI, error)
	ListByUser(ctx context.Context, userID string) ([]*models.KPI, error)
	Update(ctx context.Context, kpi *models.KPI) error
	UpdateStatus(ctx context.Context, userID, id, status string) error
	UpdateCurrentState(ctx context.Context, userID, id string, state CurrentState) error
	Delete(ctx context.Context, userID, id string) error
}

// CurrentState is the recompute output written over a KPI row
type CurrentState struct {
	Value       float64
	Progress    float64
	Status      string
	LastUpdated time.Time
}

// KPIHistoryRepository defines bounded history data access methods
type KPIHistoryRepository interface {
	Get(ctx context.Context, kpiID string) ([]*models.KPIHistory, error)
	Replace(ctx context.Context, kpiID string, entries []*models.KPIHistory) error
}

// KPIAlertRepository defines alert data access methods
type KPIAlertRepository interface {
	Create(ctx context.Context, alert *models.KPIAlert) error
	GetByID(ctx context.Context, userID, id string) (*models.KPIAlert, error)
	ListByUser(ctx context.Context, userID string, unacknowledgedOnly bool, limit int) ([]*models.KPIAlert, error)
	ListByKPI(ctx context.Context, userID, kpiID string, limit int) ([]*models.KPIAlert, error)
	Acknowledge(ctx context.Context, userID, id string, at time.Time) error
}

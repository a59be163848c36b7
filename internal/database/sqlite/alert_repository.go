package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/database/models"
	"github.com/frostdev-ops/kpi-backend-go/internal/database/repositories"
	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const alertColumns = `id, user_id, kpi_id, kpi_name, type, level, title, message, suggestions, metadata,
	acknowledged, acknowledged_at, action_required, created_at`

// DefaultAlertListLimit caps list queries that pass no limit
const DefaultAlertListLimit = 50

// KPIAlertRepository implements repositories.KPIAlertRepository
type KPIAlertRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

// NewKPIAlertRepository creates a new alert repository
func NewKPIAlertRepository(db *sqlx.DB, log *logrus.Logger) repositories.KPIAlertRepository {
	return &KPIAlertRepository{
		db:  db,
		log: log,
	}
}

// Create stores a new alert
func (r *KPIAlertRepository) Create(ctx context.Context, alert *models.KPIAlert) error {
	if alert.Suggestions == "" {
		alert.Suggestions = "[]"
	}
	if alert.Metadata == "" {
		alert.Metadata = "{}"
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	alert.CreatedAt = alert.CreatedAt.UTC()

	query := `INSERT INTO kpi_alerts (` + alertColumns + `) VALUES (
		:id, :user_id, :kpi_id, :kpi_name, :type, :level, :title, :message, :suggestions, :metadata,
		:acknowledged, :acknowledged_at, :action_required, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, alert); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{
			"alert_id": alert.ID,
			"kpi_id":   alert.KPIID,
		}).Error("Failed to create KPI alert")
		return fmt.Errorf("failed to create KPI alert: %w", err)
	}
	return nil
}

// GetByID retrieves an alert owned by userID
func (r *KPIAlertRepository) GetByID(ctx context.Context, userID, id string) (*models.KPIAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM kpi_alerts WHERE id = ? AND user_id = ?`

	var alert models.KPIAlert
	if err := r.db.GetContext(ctx, &alert, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("alert %s not found", id)
		}
		return nil, fmt.Errorf("failed to get KPI alert: %w", err)
	}
	return &alert, nil
}

// ListByUser lists a user's alerts, newest first
func (r *KPIAlertRepository) ListByUser(ctx context.Context, userID string, unacknowledgedOnly bool, limit int) ([]*models.KPIAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM kpi_alerts WHERE user_id = ?`
	args := []interface{}{userID}
	if unacknowledgedOnly {
		query += ` AND acknowledged = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	var alerts []*models.KPIAlert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("Failed to list KPI alerts")
		return nil, fmt.Errorf("failed to list KPI alerts: %w", err)
	}
	return alerts, nil
}

// ListByKPI lists the alerts raised for one KPI, newest first
func (r *KPIAlertRepository) ListByKPI(ctx context.Context, userID, kpiID string, limit int) ([]*models.KPIAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM kpi_alerts WHERE user_id = ? AND kpi_id = ?
		ORDER BY created_at DESC LIMIT ?`

	var alerts []*models.KPIAlert
	if err := r.db.SelectContext(ctx, &alerts, query, userID, kpiID, normalizeLimit(limit)); err != nil {
		r.log.WithError(err).WithField("kpi_id", kpiID).Error("Failed to list KPI alerts")
		return nil, fmt.Errorf("failed to list KPI alerts: %w", err)
	}
	return alerts, nil
}

// Acknowledge marks an alert as read. Acknowledging twice keeps the first timestamp.
func (r *KPIAlertRepository) Acknowledge(ctx context.Context, userID, id string, at time.Time) error {
	query := `UPDATE kpi_alerts SET acknowledged = ?, acknowledged_at = COALESCE(acknowledged_at, ?)
		WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, true, at.UTC(), id, userID)
	if err != nil {
		r.log.WithError(err).WithField("alert_id", id).Error("Failed to acknowledge KPI alert")
		return fmt.Errorf("failed to acknowledge KPI alert: %w", err)
	}
	return requireAffected(result, "alert", id)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultAlertListLimit
	}
	return limit
}

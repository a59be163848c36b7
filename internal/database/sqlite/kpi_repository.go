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

const kpiColumns = `id, user_id, name, description, category, metric_type, source, property_id, unit,
	goal_target, goal_operator, goal_min, goal_max, goal_deadline,
	period_type, period_start, period_end,
	alerts_enabled, warning_threshold, critical_threshold, notify_email, notify_push, notify_in_app,
	status, current_value, current_progress, current_status, last_updated, created_at, updated_at`

// KPIRepository implements repositories.KPIRepository
type KPIRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

// NewKPIRepository creates a new KPI repository
func NewKPIRepository(db *sqlx.DB, log *logrus.Logger) repositories.KPIRepository {
	return &KPIRepository{
		db:  db,
		log: log,
	}
}

// Create inserts a new KPI definition
func (r *KPIRepository) Create(ctx context.Context, kpi *models.KPI) error {
	now := time.Now().UTC()
	if kpi.CreatedAt.IsZero() {
		kpi.CreatedAt = now
	}
	kpi.UpdatedAt = now

	query := `INSERT INTO kpis (` + kpiColumns + `) VALUES (
		:id, :user_id, :name, :description, :category, :metric_type, :source, :property_id, :unit,
		:goal_target, :goal_operator, :goal_min, :goal_max, :goal_deadline,
		:period_type, :period_start, :period_end,
		:alerts_enabled, :warning_threshold, :critical_threshold, :notify_email, :notify_push, :notify_in_app,
		:status, :current_value, :current_progress, :current_status, :last_updated, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, kpi); err != nil {
		r.log.WithError(err).WithField("kpi_id", kpi.ID).Error("Failed to create KPI")
		return fmt.Errorf("failed to create KPI: %w", err)
	}
	return nil
}

// GetByID retrieves a KPI owned by userID
func (r *KPIRepository) GetByID(ctx context.Context, userID, id string) (*models.KPI, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpis WHERE id = ? AND user_id = ?`

	var kpi models.KPI
	if err := r.db.GetContext(ctx, &kpi, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("KPI %s not found", id)
		}
		r.log.WithError(err).WithField("kpi_id", id).Error("Failed to get KPI")
		return nil, fmt.Errorf("failed to get KPI: %w", err)
	}
	return &kpi, nil
}

// ListByUser lists every KPI a user owns, newest first
func (r *KPIRepository) ListByUser(ctx context.Context, userID string) ([]*models.KPI, error) {
	query := `SELECT ` + kpiColumns + ` FROM kpis WHERE user_id = ? ORDER BY created_at DESC, id`

	var kpis []*models.KPI
	if err := r.db.SelectContext(ctx, &kpis, query, userID); err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("Failed to list KPIs")
		return nil, fmt.Errorf("failed to list KPIs: %w", err)
	}
	return kpis, nil
}

// Update rewrites the definition columns; current state is left untouched
func (r *KPIRepository) Update(ctx context.Context, kpi *models.KPI) error {
	kpi.UpdatedAt = time.Now().UTC()

	query := `UPDATE kpis SET
		name = :name, description = :description, category = :category,
		metric_type = :metric_type, source = :source, property_id = :property_id, unit = :unit,
		goal_target = :goal_target, goal_operator = :goal_operator, goal_min = :goal_min,
		goal_max = :goal_max, goal_deadline = :goal_deadline,
		period_type = :period_type, period_start = :period_start, period_end = :period_end,
		alerts_enabled = :alerts_enabled, warning_threshold = :warning_threshold,
		critical_threshold = :critical_threshold, notify_email = :notify_email,
		notify_push = :notify_push, notify_in_app = :notify_in_app,
		status = :status, updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id`

	result, err := r.db.NamedExecContext(ctx, query, kpi)
	if err != nil {
		r.log.WithError(err).WithField("kpi_id", kpi.ID).Error("Failed to update KPI")
		return fmt.Errorf("failed to update KPI: %w", err)
	}
	return requireAffected(result, "KPI", kpi.ID)
}

// UpdateStatus changes the lifecycle status
func (r *KPIRepository) UpdateStatus(ctx context.Context, userID, id, status string) error {
	query := `UPDATE kpis SET status = ?, updated_at = ? WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id, userID)
	if err != nil {
		r.log.WithError(err).WithField("kpi_id", id).Error("Failed to update KPI status")
		return fmt.Errorf("failed to update KPI status: %w", err)
	}
	return requireAffected(result, "KPI", id)
}

// UpdateCurrentState overwrites the computed state columns
func (r *KPIRepository) UpdateCurrentState(ctx context.Context, userID, id string, state repositories.CurrentState) error {
	query := `UPDATE kpis SET current_value = ?, current_progress = ?, current_status = ?, last_updated = ?
		WHERE id = ? AND user_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		state.Value, state.Progress, state.Status, state.LastUpdated.UTC(), id, userID)
	if err != nil {
		r.log.WithError(err).WithField("kpi_id", id).Error("Failed to update KPI current state")
		return fmt.Errorf("failed to update KPI current state: %w", err)
	}
	return requireAffected(result, "KPI", id)
}

// Delete removes a KPI together with its history and alerts
func (r *KPIRepository) Delete(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM kpis WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		r.log.WithError(err).WithField("kpi_id", id).Error("Failed to delete KPI")
		return fmt.Errorf("failed to delete KPI: %w", err)
	}
	if err := requireAffected(result, "KPI", id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM kpi_history WHERE kpi_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete KPI history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM kpi_alerts WHERE kpi_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete KPI alerts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func requireAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("%s %s not found", entity, id)
	}
	return nil
}

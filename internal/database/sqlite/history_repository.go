package sqlite

import (
	"context"
	"fmt"

	"github.com/frostdev-ops/kpi-backend-go/internal/database/models"
	"github.com/frostdev-ops/kpi-backend-go/internal/database/repositories"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// KPIHistoryRepository implements repositories.KPIHistoryRepository
type KPIHistoryRepository struct {
	db  *sqlx.DB
	log *logrus.Logger
}

// NewKPIHistoryRepository creates a new history repository
func NewKPIHistoryRepository(db *sqlx.DB, log *logrus.Logger) repositories.KPIHistoryRepository {
	return &KPIHistoryRepository{
		db:  db,
		log: log,
	}
}

// Get returns the retained entries of a KPI in chronological order
func (r *KPIHistoryRepository) Get(ctx context.Context, kpiID string) ([]*models.KPIHistory, error) {
	query := `SELECT id, kpi_id, seq, date, value, progress, status, recorded_at
		FROM kpi_history WHERE kpi_id = ? ORDER BY seq`

	var entries []*models.KPIHistory
	if err := r.db.SelectContext(ctx, &entries, query, kpiID); err != nil {
		r.log.WithError(err).WithField("kpi_id", kpiID).Error("Failed to get KPI history")
		return nil, fmt.Errorf("failed to get KPI history: %w", err)
	}
	return entries, nil
}

// Replace swaps the stored history of a KPI for entries in one transaction.
// Seq is reassigned from the slice order.
func (r *KPIHistoryRepository) Replace(ctx context.Context, kpiID string, entries []*models.KPIHistory) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kpi_history WHERE kpi_id = ?`, kpiID); err != nil {
		r.log.WithError(err).WithField("kpi_id", kpiID).Error("Failed to clear KPI history")
		return fmt.Errorf("failed to clear KPI history: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO kpi_history (kpi_id, seq, date, value, progress, status, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	for i, entry := range entries {
		entry.KPIID = kpiID
		entry.Seq = i
		if _, err := stmt.ExecContext(ctx, kpiID, i, entry.Date, entry.Value, entry.Progress, entry.Status, entry.RecordedAt.UTC()); err != nil {
			r.log.WithError(err).WithField("kpi_id", kpiID).Error("Failed to insert KPI history entry")
			return fmt.Errorf("failed to insert KPI history entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

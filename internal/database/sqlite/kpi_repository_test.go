package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/database/models"
	"github.com/frostdev-ops/kpi-backend-go/internal/database/repositories"
	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKPI(id, userID string) *models.KPI {
	return &models.KPI{
		ID:                id,
		UserID:            userID,
		Name:              "Monthly sessions",
		Description:       sql.NullString{String: "Sessions from all channels", Valid: true},
		MetricType:        "ga4_sessions",
		Source:            "analytics",
		PropertyID:        sql.NullString{String: "123456", Valid: true},
		GoalTarget:        10000,
		GoalOperator:      "greater_or_equal",
		GoalDeadline:      sql.NullTime{Time: time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), Valid: true},
		PeriodType:        "monthly",
		AlertsEnabled:     true,
		WarningThreshold:  70,
		CriticalThreshold: 50,
		NotifyInApp:       true,
		Status:            "active",
	}
}

func TestKPIRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testKPI("kpi-1", "user-1")))

	got, err := repo.GetByID(ctx, "user-1", "kpi-1")
	require.NoError(t, err)

	assert.Equal(t, "Monthly sessions", got.Name)
	assert.Equal(t, "Sessions from all channels", got.Description.String)
	assert.False(t, got.Category.Valid)
	assert.Equal(t, 10000.0, got.GoalTarget)
	assert.Equal(t, "greater_or_equal", got.GoalOperator)
	assert.False(t, got.GoalMin.Valid)
	require.True(t, got.GoalDeadline.Valid)
	assert.True(t, got.GoalDeadline.Time.Equal(time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)))
	assert.True(t, got.AlertsEnabled)
	assert.True(t, got.NotifyInApp)
	assert.False(t, got.NotifyEmail)
	assert.False(t, got.CurrentStatus.Valid)
	assert.False(t, got.LastUpdated.Valid)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestKPIRepository_GetByID_ScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testKPI("kpi-1", "user-1")))

	_, err := repo.GetByID(ctx, "user-2", "kpi-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = repo.GetByID(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestKPIRepository_ListByUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testKPI("kpi-1", "user-1")))
	require.NoError(t, repo.Create(ctx, testKPI("kpi-2", "user-1")))
	require.NoError(t, repo.Create(ctx, testKPI("kpi-3", "user-2")))

	kpis, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, kpis, 2)

	kpis, err = repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, kpis)
}

func TestKPIRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRepository(db, testLogger())
	ctx := context.Background()

	kpi := testKPI("kpi-1", "user-1")
	require.NoError(t, repo.Create(ctx, kpi))
	require.NoError(t, repo.UpdateCurrentState(ctx, "user-1", "kpi-1", repositories.CurrentState{
		Value: 5000, Progress: 50, Status: "at_risk", LastUpdated: time.Now(),
	}))

	kpi.Name = "Quarterly sessions"
	kpi.PeriodType = "quarterly"
	kpi.GoalTarget = 30000
	require.NoError(t, repo.Update(ctx, kpi))

	got, err := repo.GetByID(ctx, "user-1", "kpi-1")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly sessions", got.Name)
	assert.Equal(t, "quarterly", got.PeriodType)
	assert.Equal(t, 30000.0, got.GoalTarget)
	// current state is not part of the definition update
	assert.Equal(t, 5000.0, got.CurrentValue)
	assert.Equal(t, "at_risk", got.CurrentStatus.String)

	missing := testKPI("missing", "user-1")
	assert.ErrorIs(t, repo.Update(ctx, missing), apperrors.ErrNotFound)
}

func TestKPIRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testKPI("kpi-1", "user-1")))
	require.NoError(t, repo.UpdateStatus(ctx, "user-1", "kpi-1", "paused"))

	got, err := repo.GetByID(ctx, "user-1", "kpi-1")
	require.NoError(t, err)
	assert.Equal(t, "paused", got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "user-2", "kpi-1", "active"), apperrors.ErrNotFound)
}

func TestKPIRepository_UpdateCurrentState(t *testing.T) {
	db := setupTestDB(t)
	repo := NewKPIRepository(db, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testKPI("kpi-1", "user-1")))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateCurrentState(ctx, "user-1", "kpi-1", repositories.CurrentState{
		Value: 8000, Progress: 80, Status: "on_track", LastUpdated: at,
	}))

	got, err := repo.GetByID(ctx, "user-1", "kpi-1")
	require.NoError(t, err)
	assert.Equal(t, 8000.0, got.CurrentValue)
	assert.Equal(t, 80.0, got.CurrentProgress)
	assert.Equal(t, "on_track", got.CurrentStatus.String)
	require.True(t, got.LastUpdated.Valid)
	assert.True(t, got.LastUpdated.Time.Equal(at))

	err = repo.UpdateCurrentState(ctx, "user-1", "missing", repositories.CurrentState{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestKPIRepository_DeleteRemovesChildren(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	kpis := NewKPIRepository(db, testLogger())
	history := NewKPIHistoryRepository(db, testLogger())
	alerts := NewKPIAlertRepository(db, testLogger())

	require.NoError(t, kpis.Create(ctx, testKPI("kpi-1", "user-1")))
	require.NoError(t, history.Replace(ctx, "kpi-1", []*models.KPIHistory{
		{Date: "2026-03-01", Value: 1, Progress: 1, Status: "off_track", RecordedAt: time.Now()},
	}))
	require.NoError(t, alerts.Create(ctx, testAlert("alert-1", "user-1", "kpi-1", time.Now())))

	assert.ErrorIs(t, kpis.Delete(ctx, "user-2", "kpi-1"), apperrors.ErrNotFound)
	require.NoError(t, kpis.Delete(ctx, "user-1", "kpi-1"))

	_, err := kpis.GetByID(ctx, "user-1", "kpi-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	entries, err := history.Get(ctx, "kpi-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	list, err := alerts.ListByUser(ctx, "user-1", false, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

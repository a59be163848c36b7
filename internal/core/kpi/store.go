package kpi

import (
	"context"
	"time"
)

// Store is the persistence the orchestrator needs. Implementations must
// return an error matching errors.ErrNotFound when a KPI does not exist.
type Store interface {
	LoadKPI(ctx context.Context, userID, kpiID string) (*KPI, error)
	ListKPIs(ctx context.Context, userID string) ([]Definition, error)
	SaveCurrentState(ctx context.Context, userID, kpiID string, state CurrentState) error
	SaveHistory(ctx context.Context, userID, kpiID string, entries []HistoryEntry) error
	SaveAlert(ctx context.Context, alert *Alert) error
}

// MetricsProvider fetches raw aggregates for a property or site
type MetricsProvider interface {
	GetRawMetrics(ctx context.Context, source Source, propertyID string, dateRange DateRange) (RawMetrics, error)
}

// Recorder receives engine telemetry
type Recorder interface {
	RecordRecompute(outcome string, duration time.Duration)
	RecordAlert(alertType, level string)
	RecordStatusTransition(from, to string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRecompute(string, time.Duration) {}
func (nopRecorder) RecordAlert(string, string)            {}
func (nopRecorder) RecordStatusTransition(string, string) {}

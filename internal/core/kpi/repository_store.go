package kpi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/database/models"
	"github.com/frostdev-ops/kpi-backend-go/internal/database/repositories"
	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/google/uuid"
)

// RepositoryStore backs Store with the SQL repositories and carries the
// definition management used by the API
type RepositoryStore struct {
	kpis    repositories.KPIRepository
	history repositories.KPIHistoryRepository
	alerts  repositories.KPIAlertRepository
	now     func() time.Time
}

// NewRepositoryStore creates a store over the given repositories
func NewRepositoryStore(kpis repositories.KPIRepository, history repositories.KPIHistoryRepository, alerts repositories.KPIAlertRepository) *RepositoryStore {
	return &RepositoryStore{
		kpis:    kpis,
		history: history,
		alerts:  alerts,
		now:     time.Now,
	}
}

// LoadKPI loads a definition with its current state and history
func (s *RepositoryStore) LoadKPI(ctx context.Context, userID, kpiID string) (*KPI, error) {
	row, err := s.kpis.GetByID(ctx, userID, kpiID)
	if err != nil {
		return nil, err
	}

	rows, err := s.history.Get(ctx, kpiID)
	if err != nil {
		return nil, err
	}

	kpi := KPIFromModel(row)
	kpi.History = HistoryFromModels(rows)
	return kpi, nil
}

// ListKPIs returns every definition of a user
func (s *RepositoryStore) ListKPIs(ctx context.Context, userID string) ([]Definition, error) {
	rows, err := s.kpis.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	defs := make([]Definition, 0, len(rows))
	for _, row := range rows {
		defs = append(defs, KPIFromModel(row).Definition)
	}
	return defs, nil
}

// SaveCurrentState overwrites the computed state of a KPI
func (s *RepositoryStore) SaveCurrentState(ctx context.Context, userID, kpiID string, state CurrentState) error {
	return s.kpis.UpdateCurrentState(ctx, userID, kpiID, repositories.CurrentState{
		Value:       state.Value,
		Progress:    state.Progress,
		Status:      string(state.Status),
		LastUpdated: state.LastUpdated,
	})
}

// SaveHistory replaces the stored history of a KPI with entries
func (s *RepositoryStore) SaveHistory(ctx context.Context, _ string, kpiID string, entries []HistoryEntry) error {
	rows := make([]*models.KPIHistory, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &models.KPIHistory{
			KPIID:      kpiID,
			Date:       e.Date,
			Value:      e.Value,
			Progress:   e.Progress,
			Status:     string(e.Status),
			RecordedAt: e.Timestamp,
		})
	}
	return s.history.Replace(ctx, kpiID, rows)
}

// SaveAlert persists a newly raised alert
func (s *RepositoryStore) SaveAlert(ctx context.Context, alert *Alert) error {
	row, err := AlertToModel(alert)
	if err != nil {
		return err
	}
	return s.alerts.Create(ctx, row)
}

// CreateKPI validates and stores a new definition
func (s *RepositoryStore) CreateKPI(ctx context.Context, def *Definition) (*KPI, error) {
	def.ApplyDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	row := DefinitionToModel(def)
	if err := s.kpis.Create(ctx, row); err != nil {
		return nil, err
	}
	return KPIFromModel(row), nil
}

// GetKPI returns a KPI with its history
func (s *RepositoryStore) GetKPI(ctx context.Context, userID, kpiID string) (*KPI, error) {
	return s.LoadKPI(ctx, userID, kpiID)
}

// ListUserKPIs returns every KPI of a user with its current state
func (s *RepositoryStore) ListUserKPIs(ctx context.Context, userID string) ([]*KPI, error) {
	rows, err := s.kpis.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	kpis := make([]*KPI, 0, len(rows))
	for _, row := range rows {
		kpis = append(kpis, KPIFromModel(row))
	}
	return kpis, nil
}

// UpdateKPI replaces the definition of an existing KPI
func (s *RepositoryStore) UpdateKPI(ctx context.Context, def *Definition) (*KPI, error) {
	existing, err := s.kpis.GetByID(ctx, def.UserID, def.ID)
	if err != nil {
		return nil, err
	}

	def.ApplyDefaults()
	if err := def.Validate(); err != nil {
		return nil, err
	}

	row := DefinitionToModel(def)
	row.CreatedAt = existing.CreatedAt
	if err := s.kpis.Update(ctx, row); err != nil {
		return nil, err
	}
	return s.LoadKPI(ctx, def.UserID, def.ID)
}

// SetLifecycleStatus changes whether a KPI is active, paused, archived or achieved
func (s *RepositoryStore) SetLifecycleStatus(ctx context.Context, userID, kpiID string, status LifecycleStatus) error {
	switch status {
	case LifecycleActive, LifecyclePaused, LifecycleArchived, LifecycleAchieved:
	default:
		return apperrors.Validation("unknown lifecycle status %q", status)
	}
	return s.kpis.UpdateStatus(ctx, userID, kpiID, string(status))
}

// DeleteKPI removes a KPI with its history and alerts
func (s *RepositoryStore) DeleteKPI(ctx context.Context, userID, kpiID string) error {
	return s.kpis.Delete(ctx, userID, kpiID)
}

// GetHistory returns the retained history of a KPI
func (s *RepositoryStore) GetHistory(ctx context.Context, userID, kpiID string) ([]HistoryEntry, error) {
	if _, err := s.kpis.GetByID(ctx, userID, kpiID); err != nil {
		return nil, err
	}
	rows, err := s.history.Get(ctx, kpiID)
	if err != nil {
		return nil, err
	}
	return HistoryFromModels(rows), nil
}

// ListAlerts returns a user's alerts, newest first
func (s *RepositoryStore) ListAlerts(ctx context.Context, userID string, unacknowledgedOnly bool, limit int) ([]*Alert, error) {
	rows, err := s.alerts.ListByUser(ctx, userID, unacknowledgedOnly, limit)
	if err != nil {
		return nil, err
	}
	return alertsFromModels(rows)
}

// ListKPIAlerts returns the alerts raised for one KPI
func (s *RepositoryStore) ListKPIAlerts(ctx context.Context, userID, kpiID string, limit int) ([]*Alert, error) {
	if _, err := s.kpis.GetByID(ctx, userID, kpiID); err != nil {
		return nil, err
	}
	rows, err := s.alerts.ListByKPI(ctx, userID, kpiID, limit)
	if err != nil {
		return nil, err
	}
	return alertsFromModels(rows)
}

// AcknowledgeAlert marks an alert as read and returns it
func (s *RepositoryStore) AcknowledgeAlert(ctx context.Context, userID, alertID string) (*Alert, error) {
	if err := s.alerts.Acknowledge(ctx, userID, alertID, s.now()); err != nil {
		return nil, err
	}
	row, err := s.alerts.GetByID(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}
	return AlertFromModel(row)
}

// DefinitionToModel maps a definition to a kpis row
func DefinitionToModel(def *Definition) *models.KPI {
	return &models.KPI{
		ID:                def.ID,
		UserID:            def.UserID,
		Name:              def.Name,
		Description:       nullString(def.Description),
		Category:          nullString(def.Category),
		MetricType:        string(def.MetricType),
		Source:            string(def.Source),
		PropertyID:        nullString(def.PropertyID),
		Unit:              nullString(def.Unit),
		GoalTarget:        def.Goal.Target,
		GoalOperator:      string(def.Goal.Operator),
		GoalMin:           nullFloat(def.Goal.Min),
		GoalMax:           nullFloat(def.Goal.Max),
		GoalDeadline:      nullTime(def.Goal.Deadline),
		PeriodType:        string(def.Period.Type),
		PeriodStart:       nullTime(def.Period.Start),
		PeriodEnd:         nullTime(def.Period.End),
		AlertsEnabled:     def.Alerts.Enabled,
		WarningThreshold:  def.Alerts.Thresholds.Warning,
		CriticalThreshold: def.Alerts.Thresholds.Critical,
		NotifyEmail:       def.Alerts.Channels.Email,
		NotifyPush:        def.Alerts.Channels.Push,
		NotifyInApp:       def.Alerts.Channels.InApp,
		Status:            string(def.Status),
		CreatedAt:         def.CreatedAt,
		UpdatedAt:         def.UpdatedAt,
	}
}

// KPIFromModel maps a kpis row to a KPI without history
func KPIFromModel(row *models.KPI) *KPI {
	kpi := &KPI{
		Definition: Definition{
			ID:          row.ID,
			UserID:      row.UserID,
			Name:        row.Name,
			Description: row.Description.String,
			Category:    row.Category.String,
			MetricType:  MetricType(row.MetricType),
			Source:      Source(row.Source),
			PropertyID:  row.PropertyID.String,
			Unit:        row.Unit.String,
			Goal: Goal{
				Target:   row.GoalTarget,
				Operator: Operator(row.GoalOperator),
				Min:      floatPtr(row.GoalMin),
				Max:      floatPtr(row.GoalMax),
				Deadline: timePtr(row.GoalDeadline),
			},
			Period: Period{
				Type:  PeriodType(row.PeriodType),
				Start: timePtr(row.PeriodStart),
				End:   timePtr(row.PeriodEnd),
			},
			Alerts: AlertPolicy{
				Enabled: row.AlertsEnabled,
				Thresholds: Thresholds{
					Warning:  row.WarningThreshold,
					Critical: row.CriticalThreshold,
				},
				Channels: NotificationChannels{
					Email: row.NotifyEmail,
					Push:  row.NotifyPush,
					InApp: row.NotifyInApp,
				},
			},
			Status:    LifecycleStatus(row.Status),
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		Current: CurrentState{
			Value:    row.CurrentValue,
			Progress: row.CurrentProgress,
			Status:   GoalStatus(row.CurrentStatus.String),
		},
		History: []HistoryEntry{},
	}
	if row.LastUpdated.Valid {
		kpi.Current.LastUpdated = row.LastUpdated.Time
	}
	return kpi
}

// HistoryFromModels maps kpi_history rows, already ordered by seq
func HistoryFromModels(rows []*models.KPIHistory) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, HistoryEntry{
			Date:      row.Date,
			Value:     row.Value,
			Progress:  row.Progress,
			Status:    GoalStatus(row.Status),
			Timestamp: row.RecordedAt,
		})
	}
	return entries
}

// AlertToModel maps an alert to a kpi_alerts row
func AlertToModel(alert *Alert) (*models.KPIAlert, error) {
	suggestions := alert.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	suggestionsJSON, err := json.Marshal(suggestions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert suggestions: %w", err)
	}
	metadataJSON, err := json.Marshal(alert.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode alert metadata: %w", err)
	}

	return &models.KPIAlert{
		ID:             alert.ID,
		UserID:         alert.UserID,
		KPIID:          alert.KPIID,
		KPIName:        alert.KPIName,
		Type:           string(alert.Type),
		Level:          string(alert.Level),
		Title:          alert.Title,
		Message:        alert.Message,
		Suggestions:    string(suggestionsJSON),
		Metadata:       string(metadataJSON),
		Acknowledged:   alert.Acknowledged,
		AcknowledgedAt: nullTime(alert.AcknowledgedAt),
		ActionRequired: alert.ActionRequired,
		CreatedAt:      alert.CreatedAt,
	}, nil
}

// AlertFromModel maps a kpi_alerts row to an alert
func AlertFromModel(row *models.KPIAlert) (*Alert, error) {
	alert := &Alert{
		ID:             row.ID,
		UserID:         row.UserID,
		KPIID:          row.KPIID,
		KPIName:        row.KPIName,
		Type:           AlertType(row.Type),
		Level:          AlertLevel(row.Level),
		Title:          row.Title,
		Message:        row.Message,
		Suggestions:    []string{},
		Acknowledged:   row.Acknowledged,
		AcknowledgedAt: timePtr(row.AcknowledgedAt),
		ActionRequired: row.ActionRequired,
		CreatedAt:      row.CreatedAt,
	}
	if row.Suggestions != "" {
		if err := json.Unmarshal([]byte(row.Suggestions), &alert.Suggestions); err != nil {
			return nil, fmt.Errorf("failed to decode alert suggestions: %w", err)
		}
	}
	if row.Metadata != "" {
		if err := json.Unmarshal([]byte(row.Metadata), &alert.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode alert metadata: %w", err)
		}
	}
	return alert, nil
}

func alertsFromModels(rows []*models.KPIAlert) ([]*Alert, error) {
	alerts := make([]*Alert, 0, len(rows))
	for _, row := range rows {
		alert, err := AlertFromModel(row)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

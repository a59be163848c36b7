package kpi

import (
	"time"
)

// MetricType identifies which upstream aggregate a KPI tracks
type MetricType string

const (
	MetricGA4Sessions        MetricType = "ga4_sessions"
	MetricGA4Users           MetricType = "ga4_users"
	MetricGA4PageViews       MetricType = "ga4_pageviews"
	MetricGA4BounceRate      MetricType = "ga4_bounce_rate"
	MetricGA4SessionDuration MetricType = "ga4_session_duration"
	MetricGA4Conversions     MetricType = "ga4_conversions"
	MetricGA4ConversionRate  MetricType = "ga4_conversion_rate"
	MetricGSCClicks          MetricType = "gsc_clicks"
	MetricGSCImpressions     MetricType = "gsc_impressions"
	MetricGSCCTR             MetricType = "gsc_ctr"
	MetricGSCPosition        MetricType = "gsc_position"
	MetricCustomFormula      MetricType = "custom_formula"
)

// Source is the system a KPI's metric comes from
type Source string

const (
	SourceAnalytics Source = "analytics"
	SourceSearch    Source = "search"
	SourceCustom    Source = "custom"
)

// Operator is the goal comparison
type Operator string

const (
	OpGreaterThan    Operator = "greater_than"
	OpLessThan       Operator = "less_than"
	OpEqualTo        Operator = "equal_to"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessOrEqual    Operator = "less_or_equal"
	OpBetween        Operator = "between"
)

// Decreasing reports whether reaching the goal means the metric going down
func (o Operator) Decreasing() bool {
	return o == OpLessThan || o == OpLessOrEqual
}

// PeriodType is informational; it only selects the metrics date range
type PeriodType string

const (
	PeriodDaily     PeriodType = "daily"
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
	PeriodCustom    PeriodType = "custom"
)

// LifecycleStatus is the user-controlled state of a definition
type LifecycleStatus string

const (
	LifecycleActive   LifecycleStatus = "active"
	LifecyclePaused   LifecycleStatus = "paused"
	LifecycleArchived LifecycleStatus = "archived"
	LifecycleAchieved LifecycleStatus = "achieved"
)

// GoalStatus is the computed health classification of a KPI
type GoalStatus string

const (
	StatusNotStarted GoalStatus = "not_started"
	StatusOnTrack    GoalStatus = "on_track"
	StatusAtRisk     GoalStatus = "at_risk"
	StatusOffTrack   GoalStatus = "off_track"
	StatusAchieved   GoalStatus = "achieved"
)

// Known reports whether s is one of the defined statuses.
// The zero value means the KPI was never computed.
func (s GoalStatus) Known() bool {
	switch s {
	case StatusNotStarted, StatusOnTrack, StatusAtRisk, StatusOffTrack, StatusAchieved:
		return true
	}
	return false
}

// AlertType is the visual class of an alert
type AlertType string

const (
	AlertSuccess AlertType = "success"
	AlertWarning AlertType = "warning"
	AlertDanger  AlertType = "danger"
	AlertInfo    AlertType = "info"
)

// AlertLevel is the alert severity
type AlertLevel string

const (
	LevelHigh   AlertLevel = "high"
	LevelMedium AlertLevel = "medium"
	LevelLow    AlertLevel = "low"
)

// Confidence marks how trustworthy a computed value is
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Goal is the target a KPI is measured against
type Goal struct {
	Target   float64    `json:"target"`
	Operator Operator   `json:"operator"`
	Min      *float64   `json:"min,omitempty"`
	Max      *float64   `json:"max,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// Thresholds are percent-of-target boundaries; Warning must exceed Critical
type Thresholds struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// NotificationChannels records where the user wants alerts delivered
type NotificationChannels struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	InApp bool `json:"in_app"`
}

// AlertPolicy controls alert generation for a KPI
type AlertPolicy struct {
	Enabled    bool                 `json:"enabled"`
	Thresholds Thresholds           `json:"thresholds"`
	Channels   NotificationChannels `json:"channels"`
}

// Period describes the reporting window of a KPI
type Period struct {
	Type  PeriodType `json:"type"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Definition is a user-authored KPI
type Definition struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	MetricType  MetricType      `json:"metric_type"`
	Source      Source          `json:"source"`
	PropertyID  string          `json:"property_id,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Goal        Goal            `json:"goal"`
	Period      Period          `json:"period"`
	Alerts      AlertPolicy     `json:"alerts"`
	Status      LifecycleStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CurrentState is overwritten on every recompute cycle
type CurrentState struct {
	Value       float64    `json:"value"`
	Progress    float64    `json:"progress"`
	Status      GoalStatus `json:"status,omitempty"`
	LastUpdated time.Time  `json:"last_updated"`
}

// HistoryEntry is an immutable daily snapshot
type HistoryEntry struct {
	Date      string     `json:"date"`
	Value     float64    `json:"value"`
	Progress  float64    `json:"progress"`
	Status    GoalStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
}

// KPI is a definition together with its current state and bounded history
type KPI struct {
	Definition
	Current CurrentState   `json:"current"`
	History []HistoryEntry `json:"history"`
}

// Evaluation is the outcome of classifying one resolved value
type Evaluation struct {
	Value    float64    `json:"value"`
	Progress float64    `json:"progress"`
	Status   GoalStatus `json:"status"`
}

// AlertMetadata is the numeric snapshot taken when an alert is raised
type AlertMetadata struct {
	CurrentValue      float64    `json:"current_value"`
	Target            float64    `json:"target"`
	Progress          float64    `json:"progress"`
	Status            GoalStatus `json:"status"`
	DaysLeft          *int       `json:"days_left,omitempty"`
	RequiredDailyRate *float64   `json:"required_daily_rate,omitempty"`
	Gap               float64    `json:"gap"`
}

// Alert is created once by the alert engine and only acknowledged afterwards
type Alert struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	KPIID          string        `json:"kpi_id"`
	KPIName        string        `json:"kpi_name"`
	Type           AlertType     `json:"type"`
	Level          AlertLevel    `json:"level"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	Suggestions    []string      `json:"suggestions"`
	Acknowledged   bool          `json:"acknowledged"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	ActionRequired bool          `json:"action_required"`
	Metadata       AlertMetadata `json:"metadata"`
	CreatedAt      time.Time     `json:"created_at"`
}

// CalculationResult is returned by every recompute
type CalculationResult struct {
	KPIID          string     `json:"kpi_id"`
	Value          float64    `json:"value"`
	PreviousValue  float64    `json:"previous_value"`
	Change         float64    `json:"change"`
	ChangePercent  float64    `json:"change_percent"`
	Progress       float64    `json:"progress"`
	Status         GoalStatus `json:"status"`
	PreviousStatus GoalStatus `json:"previous_status,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	Confidence     Confidence `json:"confidence"`
	Alert          *Alert     `json:"alert,omitempty"`
}

// RawMetrics is the flat numeric bag supplied by a metrics provider
type RawMetrics map[string]float64

// DateRange is an inclusive calendar range
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

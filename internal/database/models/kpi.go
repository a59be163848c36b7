package models

import (
	"database/sql"
	"time"
)

// KPI is a row of the kpis table: the definition plus its current state
type KPI struct {
	ID                string          `json:"id" db:"id"`
	UserID            string          `json:"user_id" db:"user_id"`
	Name              string          `json:"name" db:"name"`
	Description       sql.NullString  `json:"description" db:"description"`
	Category          sql.NullString  `json:"category" db:"category"`
	MetricType        string          `json:"metric_type" db:"metric_type"`
	Source            string          `json:"source" db:"source"`
	PropertyID        sql.NullString  `json:"property_id" db:"property_id"`
	Unit              sql.NullString  `json:"unit" db:"unit"`
	GoalTarget        float64         `json:"goal_target" db:"goal_target"`
	GoalOperator      string          `json:"goal_operator" db:"goal_operator"`
	GoalMin           sql.NullFloat64 `json:"goal_min" db:"goal_min"`
	GoalMax           sql.NullFloat64 `json:"goal_max" db:"goal_max"`
	GoalDeadline      sql.NullTime    `json:"goal_deadline" db:"goal_deadline"`
	PeriodType        string          `json:"period_type" db:"period_type"`
	PeriodStart       sql.NullTime    `json:"period_start" db:"period_start"`
	PeriodEnd         sql.NullTime    `json:"period_end" db:"period_end"`
	AlertsEnabled     bool            `json:"alerts_enabled" db:"alerts_enabled"`
	WarningThreshold  float64         `json:"warning_threshold" db:"warning_threshold"`
	CriticalThreshold float64         `json:"critical_threshold" db:"critical_threshold"`
	NotifyEmail       bool            `json:"notify_email" db:"notify_email"`
	NotifyPush        bool            `json:"notify_push" db:"notify_push"`
	NotifyInApp       bool            `json:"notify_in_app" db:"notify_in_app"`
	Status            string          `json:"status" db:"status"`
	CurrentValue      float64         `json:"current_value" db:"current_value"`
	CurrentProgress   float64         `json:"current_progress" db:"current_progress"`
	CurrentStatus     sql.NullString  `json:"current_status" db:"current_status"`
	LastUpdated       sql.NullTime    `json:"last_updated" db:"last_updated"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// KPIHistory is one retained snapshot. Seq orders the entries of a KPI.
type KPIHistory struct {
	ID         int64     `json:"id" db:"id"`
	KPIID      string    `json:"kpi_id" db:"kpi_id"`
	Seq        int       `json:"seq" db:"seq"`
	Date       string    `json:"date" db:"date"`
	Value      float64   `json:"value" db:"value"`
	Progress   float64   `json:"progress" db:"progress"`
	Status     string    `json:"status" db:"status"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

// KPIAlert is a stored alert. Suggestions and Metadata hold JSON documents.
type KPIAlert struct {
	ID             string       `json:"id" db:"id"`
	UserID         string       `json:"user_id" db:"user_id"`
	KPIID          string       `json:"kpi_id" db:"kpi_id"`
	KPIName        string       `json:"kpi_name" db:"kpi_name"`
	Type           string       `json:"type" db:"type"`
	Level          string       `json:"level" db:"level"`
	Title          string       `json:"title" db:"title"`
	Message        string       `json:"message" db:"message"`
	Suggestions    string       `json:"suggestions" db:"suggestions"`
	Metadata       string       `json:"metadata" db:"metadata"`
	Acknowledged   bool         `json:"acknowledged" db:"acknowledged"`
	AcknowledgedAt sql.NullTime `json:"acknowledged_at" db:"acknowledged_at"`
	ActionRequired bool         `json:"action_required" db:"action_required"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

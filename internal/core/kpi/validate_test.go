package kpi

import (
	"testing"
	"time"

	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefinition() Definition {
	return Definition{
		Name:       "Organic clicks",
		MetricType: MetricGSCClicks,
		Source:     SourceSearch,
		Goal:       Goal{Target: 5000, Operator: OpGreaterOrEqual},
		Period:     Period{Type: PeriodMonthly},
		Alerts:     AlertPolicy{Enabled: true, Thresholds: defaultThresholds},
		Status:     LifecycleActive,
	}
}

func TestDefinitionValidate_Valid(t *testing.T) {
	def := validDefinition()
	assert.NoError(t, def.Validate())

	def.MetricType = MetricCustomFormula
	def.Source = SourceCustom
	assert.NoError(t, def.Validate())
}

func TestDefinitionValidate_CollectsProblems(t *testing.T) {
	def := validDefinition()
	def.Name = "  "
	def.Source = SourceAnalytics
	def.Alerts.Thresholds = Thresholds{Warning: 40, Critical: 60}

	err := def.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "name is required")
	assert.Contains(t, appErr.Details, "served by source")
	assert.Contains(t, appErr.Details, "warning threshold must be greater")
}

func TestDefinitionValidate_Fields(t *testing.T) {
	lo, hi := 30.0, 10.0
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	tests := []struct {
		name   string
		mutate func(d *Definition)
		detail string
	}{
		{"unknown metric", func(d *Definition) { d.MetricType = "ga4_revenue" }, "unknown metric type"},
		{"unknown source", func(d *Definition) { d.Source = "crm" }, "unknown source"},
		{"unknown operator", func(d *Definition) { d.Goal.Operator = "near" }, "unknown operator"},
		{"inverted between", func(d *Definition) {
			d.Goal.Operator = OpBetween
			d.Goal.Min, d.Goal.Max = &lo, &hi
		}, "goal.min must not exceed goal.max"},
		{"threshold out of range", func(d *Definition) { d.Alerts.Thresholds.Warning = 120 }, "between 0 and 100"},
		{"unknown period", func(d *Definition) { d.Period.Type = "hourly" }, "unknown period type"},
		{"period end before start", func(d *Definition) {
			d.Period = Period{Type: PeriodCustom, Start: &start, End: &end}
		}, "period end must not be before period start"},
		{"unknown lifecycle", func(d *Definition) { d.Status = "deleted" }, "unknown lifecycle status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)

			var appErr *apperrors.AppError
			require.ErrorAs(t, def.Validate(), &appErr)
			assert.Contains(t, appErr.Details, tt.detail)
		})
	}
}

func TestDefinitionApplyDefaults(t *testing.T) {
	def := Definition{Name: "Sessions", MetricType: MetricGA4Sessions, Goal: Goal{Target: 100, Operator: OpGreaterThan}}
	def.ApplyDefaults()

	assert.Equal(t, LifecycleActive, def.Status)
	assert.Equal(t, PeriodMonthly, def.Period.Type)
	assert.Equal(t, SourceAnalytics, def.Source)
	assert.Equal(t, Thresholds{Warning: 70, Critical: 50}, def.Alerts.Thresholds)
	assert.NoError(t, def.Validate())
}

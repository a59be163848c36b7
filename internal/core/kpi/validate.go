package kpi

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
)

// Validate checks a definition before it is stored. All problems are
// reported together as one validation error.
func (d *Definition) Validate() error {
	var problems []string

	if strings.TrimSpace(d.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !KnownMetricType(d.MetricType) {
		problems = append(problems, fmt.Sprintf("unknown metric type %q", d.MetricType))
	}
	switch d.Source {
	case SourceAnalytics, SourceSearch, SourceCustom:
	default:
		problems = append(problems, fmt.Sprintf("unknown source %q", d.Source))
	}
	if src, ok := MetricSource(d.MetricType); ok && src != SourceCustom && d.Source != src {
		problems = append(problems, fmt.Sprintf("metric type %q is served by source %q, not %q", d.MetricType, src, d.Source))
	}

	switch d.Goal.Operator {
	case OpGreaterThan, OpLessThan, OpEqualTo, OpGreaterOrEqual, OpLessOrEqual:
	case OpBetween:
		if d.Goal.Min != nil && d.Goal.Max != nil && *d.Goal.Min > *d.Goal.Max {
			problems = append(problems, "goal.min must not exceed goal.max")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown operator %q", d.Goal.Operator))
	}
	if math.IsNaN(d.Goal.Target) || math.IsInf(d.Goal.Target, 0) {
		problems = append(problems, "goal.target must be a finite number")
	}

	th := d.Alerts.Thresholds
	if th.Warning < 0 || th.Warning > 100 || th.Critical < 0 || th.Critical > 100 {
		problems = append(problems, "alert thresholds must be between 0 and 100")
	}
	if th.Warning <= th.Critical {
		problems = append(problems, "warning threshold must be greater than critical threshold")
	}

	switch d.Period.Type {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly, PeriodCustom:
	default:
		problems = append(problems, fmt.Sprintf("unknown period type %q", d.Period.Type))
	}
	if d.Period.Start != nil && d.Period.End != nil && d.Period.End.Before(*d.Period.Start) {
		problems = append(problems, "period end must not be before period start")
	}

	switch d.Status {
	case LifecycleActive, LifecyclePaused, LifecycleArchived, LifecycleAchieved:
	default:
		problems = append(problems, fmt.Sprintf("unknown lifecycle status %q", d.Status))
	}

	if len(problems) > 0 {
		return apperrors.WithDetails(apperrors.Validation("invalid KPI definition"), strings.Join(problems, "; "))
	}
	return nil
}

// ApplyDefaults fills optional fields left empty by the caller
func (d *Definition) ApplyDefaults() {
	if d.Status == "" {
		d.Status = LifecycleActive
	}
	if d.Period.Type == "" {
		d.Period.Type = PeriodMonthly
	}
	if d.Source == "" {
		if src, ok := MetricSource(d.MetricType); ok {
			d.Source = src
		}
	}
	if d.Alerts.Thresholds == (Thresholds{}) {
		d.Alerts.Thresholds = Thresholds{Warning: 70, Critical: 50}
	}
}

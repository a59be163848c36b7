package kpi

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// DefaultTrendAlertDelta is the progress movement, in percentage points,
// that re-raises an alert while a KPI stays at risk or off track
const DefaultTrendAlertDelta = 5.0

// AlertEngine decides whether a recompute warrants an alert and builds it.
// It holds no per-KPI state; everything it needs is passed to Decide.
type AlertEngine struct {
	catalog    *SuggestionCatalog
	trendDelta float64
	now        func() time.Time
	newID      func() string
}

// AlertEngineOption configures an AlertEngine
type AlertEngineOption func(*AlertEngine)

// WithSuggestionCatalog replaces the embedded suggestion catalog
func WithSuggestionCatalog(catalog *SuggestionCatalog) AlertEngineOption {
	return func(e *AlertEngine) {
		e.catalog = catalog
	}
}

// WithTrendDelta sets the progress movement that counts as trending
func WithTrendDelta(delta float64) AlertEngineOption {
	return func(e *AlertEngine) {
		if delta > 0 {
			e.trendDelta = delta
		}
	}
}

// WithClock sets the time source used for deadlines and timestamps
func WithClock(now func() time.Time) AlertEngineOption {
	return func(e *AlertEngine) {
		e.now = now
	}
}

// WithIDGenerator sets how alert ids are generated
func WithIDGenerator(newID func() string) AlertEngineOption {
	return func(e *AlertEngine) {
		e.newID = newID
	}
}

// NewAlertEngine creates an alert engine
func NewAlertEngine(opts ...AlertEngineOption) *AlertEngine {
	e := &AlertEngine{
		catalog:    DefaultSuggestionCatalog(),
		trendDelta: DefaultTrendAlertDelta,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide returns the alert for this evaluation, or nil.
// kpi.History is expected to already contain the entry for eval.
// previous is the goal status captured before this cycle's write.
func (e *AlertEngine) Decide(kpi *KPI, eval Evaluation, previous GoalStatus) *Alert {
	if !kpi.Alerts.Enabled || !previous.Known() {
		return nil
	}
	if !e.ShouldAlert(kpi, eval, previous) {
		return nil
	}

	th := kpi.Alerts.Thresholds
	switch {
	case eval.Status == StatusAchieved && previous != StatusAchieved:
		return e.achievedAlert(kpi, eval)
	case eval.Status == StatusOffTrack && eval.Progress < th.Critical:
		return e.shortfallAlert(kpi, eval, SeverityCritical)
	case eval.Status == StatusAtRisk || (eval.Progress >= th.Critical && eval.Progress < th.Warning):
		return e.shortfallAlert(kpi, eval, SeverityWarning)
	case eval.Status == StatusOnTrack && previous != StatusOnTrack:
		return e.onTrackAlert(kpi, eval)
	}
	return nil
}

// ShouldAlert reports whether the transition is significant: any status
// change, or a bad status whose progress moved more than the trend delta
// since the previous history entry.
func (e *AlertEngine) ShouldAlert(kpi *KPI, eval Evaluation, previous GoalStatus) bool {
	if eval.Status != previous {
		return true
	}
	if eval.Status != StatusOffTrack && eval.Status != StatusAtRisk {
		return false
	}
	if len(kpi.History) < 2 {
		return false
	}
	prior := kpi.History[len(kpi.History)-2]
	return math.Abs(eval.Progress-prior.Progress) > e.trendDelta
}

func (e *AlertEngine) newAlert(kpi *KPI, eval Evaluation, alertType AlertType, level AlertLevel) *Alert {
	return &Alert{
		ID:          e.newID(),
		UserID:      kpi.UserID,
		KPIID:       kpi.ID,
		KPIName:     kpi.Name,
		Type:        alertType,
		Level:       level,
		Suggestions: []string{},
		Metadata: AlertMetadata{
			CurrentValue: eval.Value,
			Target:       kpi.Goal.Target,
			Progress:     eval.Progress,
			Status:       eval.Status,
			Gap:          goalGap(kpi.Goal, eval.Value),
		},
		CreatedAt: e.now(),
	}
}

func (e *AlertEngine) achievedAlert(kpi *KPI, eval Evaluation) *Alert {
	alert := e.newAlert(kpi, eval, AlertSuccess, LevelLow)
	alert.Title = fmt.Sprintf("Target achieved: %s", kpi.Name)
	alert.Message = fmt.Sprintf("%s reached its target of %s with a current value of %s.",
		kpi.Name, formatValue(kpi.Goal.Target, kpi.Unit), formatValue(eval.Value, kpi.Unit))
	return alert
}

func (e *AlertEngine) onTrackAlert(kpi *KPI, eval Evaluation) *Alert {
	alert := e.newAlert(kpi, eval, AlertInfo, LevelLow)
	alert.Title = fmt.Sprintf("On track: %s", kpi.Name)
	alert.Message = fmt.Sprintf("%s is on track at %s of its %s target.",
		kpi.Name, formatPercent(eval.Progress), formatValue(kpi.Goal.Target, kpi.Unit))
	return alert
}

func (e *AlertEngine) shortfallAlert(kpi *KPI, eval Evaluation, severity Severity) *Alert {
	var alert *Alert
	if severity == SeverityCritical {
		alert = e.newAlert(kpi, eval, AlertDanger, LevelHigh)
		alert.Title = fmt.Sprintf("Achievement at risk: %s", kpi.Name)
		alert.Message = fmt.Sprintf("%s is only at %s of its %s target (current: %s).",
			kpi.Name, formatPercent(eval.Progress), formatValue(kpi.Goal.Target, kpi.Unit), formatValue(eval.Value, kpi.Unit))
	} else {
		alert = e.newAlert(kpi, eval, AlertWarning, LevelMedium)
		alert.Title = fmt.Sprintf("Falling behind: %s", kpi.Name)
		alert.Message = fmt.Sprintf("%s is at %s of its %s target (current: %s).",
			kpi.Name, formatPercent(eval.Progress), formatValue(kpi.Goal.Target, kpi.Unit), formatValue(eval.Value, kpi.Unit))
	}
	alert.ActionRequired = true
	alert.Suggestions = e.catalog.Lookup(severity, kpi.Source)

	if kpi.Goal.Deadline != nil {
		alert.Message += " " + e.projection(kpi, &alert.Metadata, severity)
	}
	return alert
}

// projection fills the deadline fields of meta and returns the sentence
// describing them
func (e *AlertEngine) projection(kpi *KPI, meta *AlertMetadata, severity Severity) string {
	daysLeft := DaysUntil(*kpi.Goal.Deadline, e.now())
	meta.DaysLeft = &daysLeft

	gap := formatValue(meta.Gap, kpi.Unit)
	if daysLeft == 0 {
		return fmt.Sprintf("The deadline has passed with a remaining gap of %s.", gap)
	}

	rate := math.Ceil(meta.Gap / float64(daysLeft))
	meta.RequiredDailyRate = &rate

	verb := "is needed to close"
	if severity == SeverityWarning {
		verb = "would close"
	}
	direction := ""
	if kpi.Goal.Operator.Decreasing() {
		direction = "a reduction of "
	}
	return fmt.Sprintf("%s left: %s%s per day %s the gap of %s.",
		pluralDays(daysLeft), direction, formatValue(rate, kpi.Unit), verb, gap)
}

// DaysUntil returns whole days from now to deadline, rounded up and
// floored at zero
func DaysUntil(deadline, now time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// goalGap is how far the value is from the target in the direction the goal
// needs it to move. It never goes below zero.
func goalGap(goal Goal, current float64) float64 {
	var gap float64
	if goal.Operator.Decreasing() {
		gap = current - goal.Target
	} else {
		gap = goal.Target - current
	}
	return math.Max(0, gap)
}

func formatValue(v float64, unit string) string {
	s := humanize.Commaf(math.Round(v*100) / 100)
	if unit == "" || unit == "%" {
		return s + unit
	}
	return s + " " + unit
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

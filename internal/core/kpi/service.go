package kpi

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ServiceConfig contains orchestrator configuration
type ServiceConfig struct {
	SingleFlight         bool          `json:"single_flight"`
	RecomputeTimeout     time.Duration `json:"recompute_timeout"`
	DefaultDateRangeDays int           `json:"default_date_range_days"`
}

// DefaultServiceConfig returns default orchestrator configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		SingleFlight:         true,
		RecomputeTimeout:     30 * time.Second,
		DefaultDateRangeDays: 30,
	}
}

// Service runs the recompute cycle for individual KPIs
type Service struct {
	store    Store
	provider MetricsProvider
	engine   *AlertEngine
	recorder Recorder
	logger   *logrus.Logger
	config   ServiceConfig
	flight   singleflight.Group
	now      func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRecorder attaches a telemetry recorder
func WithRecorder(recorder Recorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithAlertEngine replaces the default alert engine
func WithAlertEngine(engine *AlertEngine) ServiceOption {
	return func(s *Service) {
		s.engine = engine
	}
}

// WithServiceClock sets the time source used for state and history
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new KPI service
func NewService(store Store, provider MetricsProvider, config ServiceConfig, logger *logrus.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		provider: provider,
		recorder: nopRecorder{},
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = NewAlertEngine(WithClock(s.now))
	}
	return s
}

type metricsSource func(ctx context.Context, kpi *KPI) (RawMetrics, error)

// Recompute fetches fresh metrics for the KPI from the provider and runs
// the full evaluation cycle. Concurrent calls for the same KPI share one
// provider fetch when single flight is enabled.
func (s *Service) Recompute(ctx context.Context, userID, kpiID string) (*CalculationResult, error) {
	if !s.config.SingleFlight {
		return s.recompute(ctx, userID, kpiID, s.fetchMetrics)
	}
	return s.shared(ctx, userID, kpiID)
}

// RecomputeWithMetrics runs the evaluation cycle with caller-supplied
// metrics. It never joins another caller's run.
func (s *Service) RecomputeWithMetrics(ctx context.Context, userID, kpiID string, raw RawMetrics) (*CalculationResult, error) {
	return s.recompute(ctx, userID, kpiID, func(context.Context, *KPI) (RawMetrics, error) {
		return raw, nil
	})
}

// BatchResult collects the outcome of RecomputeAll
type BatchResult struct {
	Results []*CalculationResult `json:"results"`
	Errors  map[string]string    `json:"errors,omitempty"`
	Skipped []string             `json:"skipped,omitempty"`
}

// RecomputeAll recomputes every active KPI of a user. A failing KPI is
// recorded in Errors and does not stop the batch.
func (s *Service) RecomputeAll(ctx context.Context, userID string) (*BatchResult, error) {
	definitions, err := s.store.ListKPIs(ctx, userID)
	if err != nil {
		return nil, apperrors.Persistence(err, "failed to list KPIs for user %s", userID)
	}

	batch := &BatchResult{
		Results: make([]*CalculationResult, 0, len(definitions)),
		Errors:  make(map[string]string),
	}
	for _, def := range definitions {
		if def.Status != LifecycleActive {
			batch.Skipped = append(batch.Skipped, def.ID)
			continue
		}
		result, err := s.Recompute(ctx, userID, def.ID)
		if err != nil {
			batch.Errors[def.ID] = err.Error()
			continue
		}
		batch.Results = append(batch.Results, result)
	}
	return batch, nil
}

// shared runs a provider-backed recompute through the flight group. The run
// is detached from any one caller's cancellation; each caller still stops
// waiting when its own context ends.
func (s *Service) shared(ctx context.Context, userID, kpiID string) (*CalculationResult, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(userID+"/"+kpiID, func() (interface{}, error) {
		return s.recompute(detached, userID, kpiID, s.fetchMetrics)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.WithFields(logrus.Fields{"user_id": userID, "kpi_id": kpiID}).Debug("Joined in-flight KPI recompute")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CalculationResult), nil
	}
}

// recompute performs one strictly ordered cycle. The first failed write
// aborts the remaining steps; earlier writes are not rolled back.
func (s *Service) recompute(ctx context.Context, userID, kpiID string, source metricsSource) (result *CalculationResult, err error) {
	start := time.Now()
	defer func() {
		s.recorder.RecordRecompute(outcomeOf(err), time.Since(start))
	}()

	if s.config.RecomputeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RecomputeTimeout)
		defer cancel()
	}

	log := s.logger.WithFields(logrus.Fields{"user_id": userID, "kpi_id": kpiID})

	kpi, err := s.store.LoadKPI(ctx, userID, kpiID)
	if err != nil {
		if stderrors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.Persistence(err, "failed to load KPI %s", kpiID)
	}
	previous := kpi.Current

	raw, err := source(ctx, kpi)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindUpstreamData {
			return nil, err
		}
		return nil, apperrors.UpstreamData(err, "failed to fetch %s metrics for KPI %s", kpi.Source, kpiID)
	}

	value, found := lookupMetricValue(kpi.MetricType, raw)
	confidence := ConfidenceHigh
	if !found {
		confidence = ConfidenceLow
		if kpi.MetricType != MetricCustomFormula {
			log.WithField("metric_type", kpi.MetricType).Warn("Metric field missing from upstream data, using 0")
		}
	}
	log.WithFields(logrus.Fields{"metric_type": kpi.MetricType, "value": value}).Debug("Resolved KPI metric value")

	eval := Evaluate(value, kpi.Goal, kpi.Alerts.Thresholds)
	now := s.now()

	state := CurrentState{
		Value:       eval.Value,
		Progress:    eval.Progress,
		Status:      eval.Status,
		LastUpdated: now,
	}
	if err := s.store.SaveCurrentState(ctx, userID, kpiID, state); err != nil {
		log.WithError(err).Error("Failed to save KPI current state")
		return nil, apperrors.Persistence(err, "failed to save current state for KPI %s", kpiID)
	}

	history := AppendHistory(kpi.History, NewHistoryEntry(eval, now))
	if err := s.store.SaveHistory(ctx, userID, kpiID, history); err != nil {
		log.WithError(err).Error("Failed to save KPI history")
		return nil, apperrors.Persistence(err, "failed to save history for KPI %s", kpiID)
	}

	updated := *kpi
	updated.Current = state
	updated.History = history

	alert := s.engine.Decide(&updated, eval, previous.Status)
	if alert != nil {
		if err := s.store.SaveAlert(ctx, alert); err != nil {
			log.WithError(err).Error("Failed to save KPI alert")
			return nil, apperrors.Persistence(err, "failed to save alert for KPI %s", kpiID)
		}
		s.recorder.RecordAlert(string(alert.Type), string(alert.Level))
		log.WithFields(logrus.Fields{
			"alert_id":    alert.ID,
			"alert_type":  alert.Type,
			"alert_level": alert.Level,
		}).Info("KPI alert raised")
	}

	if previous.Status.Known() && previous.Status != eval.Status {
		s.recorder.RecordStatusTransition(string(previous.Status), string(eval.Status))
	}

	change := eval.Value - previous.Value
	result = &CalculationResult{
		KPIID:          kpiID,
		Value:          eval.Value,
		PreviousValue:  previous.Value,
		Change:         change,
		ChangePercent:  changePercent(change, previous.Value),
		Progress:       eval.Progress,
		Status:         eval.Status,
		PreviousStatus: previous.Status,
		Timestamp:      now,
		Confidence:     confidence,
		Alert:          alert,
	}

	log.WithFields(logrus.Fields{
		"value":           result.Value,
		"progress":        result.Progress,
		"status":          result.Status,
		"previous_status": previous.Status,
	}).Info("KPI recomputed")

	return result, nil
}

func (s *Service) fetchMetrics(ctx context.Context, kpi *KPI) (RawMetrics, error) {
	if s.provider == nil {
		return nil, apperrors.UpstreamData(nil, "no metrics provider configured")
	}
	dateRange := DateRangeFor(kpi.Period, s.now(), s.config.DefaultDateRangeDays)
	raw, err := s.provider.GetRawMetrics(ctx, kpi.Source, kpi.PropertyID, dateRange)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = RawMetrics{}
	}
	return raw, nil
}

func changePercent(change, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return change / math.Abs(previous) * 100
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return string(apperrors.KindOf(err))
}

// String implements fmt.Stringer for log output
func (r *CalculationResult) String() string {
	return fmt.Sprintf("kpi=%s value=%g progress=%.1f status=%s", r.KPIID, r.Value, r.Progress, r.Status)
}

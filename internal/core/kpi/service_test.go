package kpi

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with per-operation failure injection
type memStore struct {
	mu     sync.Mutex
	kpis   map[string]*KPI
	alerts []*Alert

	loadErr    error
	stateErr   error
	historyErr error
	alertErr   error

	stateWrites   int
	historyWrites int
}

func newMemStore(kpis ...*KPI) *memStore {
	s := &memStore{kpis: make(map[string]*KPI)}
	for _, k := range kpis {
		s.kpis[k.ID] = k
	}
	return s
}

func (s *memStore) LoadKPI(_ context.Context, userID, kpiID string) (*KPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	k, ok := s.kpis[kpiID]
	if !ok || k.UserID != userID {
		return nil, apperrors.NotFound("KPI %s not found", kpiID)
	}
	cp := *k
	cp.History = append([]HistoryEntry(nil), k.History...)
	return &cp, nil
}

func (s *memStore) ListKPIs(_ context.Context, userID string) ([]Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var defs []Definition
	for _, k := range s.kpis {
		if k.UserID == userID {
			defs = append(defs, k.Definition)
		}
	}
	return defs, nil
}

func (s *memStore) SaveCurrentState(_ context.Context, _, kpiID string, state CurrentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stateErr != nil {
		return s.stateErr
	}
	s.stateWrites++
	s.kpis[kpiID].Current = state
	return nil
}

func (s *memStore) SaveHistory(_ context.Context, _, kpiID string, entries []HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyErr != nil {
		return s.historyErr
	}
	s.historyWrites++
	s.kpis[kpiID].History = entries
	return nil
}

func (s *memStore) SaveAlert(_ context.Context, alert *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alertErr != nil {
		return s.alertErr
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetRawMetrics(ctx context.Context, source Source, propertyID string, dateRange DateRange) (RawMetrics, error) {
	args := m.Called(ctx, source, propertyID, dateRange)
	raw, _ := args.Get(0).(RawMetrics)
	return raw, args.Error(1)
}

type countingRecorder struct {
	mu          sync.Mutex
	outcomes    []string
	alerts      []string
	transitions []string
}

func (r *countingRecorder) RecordRecompute(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *countingRecorder) RecordAlert(alertType, level string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alertType+"/"+level)
}

func (r *countingRecorder) RecordStatusTransition(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from+"->"+to)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func sessionsKPI() *KPI {
	return &KPI{
		Definition: Definition{
			ID:         "kpi-sessions",
			UserID:     "user-1",
			Name:       "Monthly sessions",
			MetricType: MetricGA4Sessions,
			Source:     SourceAnalytics,
			PropertyID: "properties/123",
			Goal:       Goal{Target: 10000, Operator: OpGreaterOrEqual},
			Period:     Period{Type: PeriodMonthly},
			Alerts:     AlertPolicy{Enabled: true, Thresholds: defaultThresholds},
			Status:     LifecycleActive,
		},
		Current: CurrentState{Value: 5500, Progress: 55, Status: StatusAtRisk},
		History: []HistoryEntry{{Date: "2026-02-28", Value: 5500, Progress: 55, Status: StatusAtRisk}},
	}
}

func newTestService(store Store, provider MetricsProvider, opts ...ServiceOption) *Service {
	opts = append([]ServiceOption{
		WithServiceClock(func() time.Time { return testNow }),
		WithAlertEngine(newTestEngine()),
	}, opts...)
	return NewService(store, provider, DefaultServiceConfig(), quietLogger(), opts...)
}

func TestService_Recompute_EndToEnd(t *testing.T) {
	store := newMemStore(sessionsKPI())
	provider := &mockProvider{}
	expectedRange := DateRangeFor(Period{Type: PeriodMonthly}, testNow, 30)
	provider.On("GetRawMetrics", mock.Anything, SourceAnalytics, "properties/123", expectedRange).
		Return(RawMetrics{FieldTotalSessions: 8000}, nil).Once()

	recorder := &countingRecorder{}
	svc := newTestService(store, provider, WithRecorder(recorder))

	result, err := svc.Recompute(context.Background(), "user-1", "kpi-sessions")
	require.NoError(t, err)
	provider.AssertExpectations(t)

	assert.Equal(t, 8000.0, result.Value)
	assert.Equal(t, 80.0, result.Progress)
	assert.Equal(t, StatusOnTrack, result.Status)
	assert.Equal(t, StatusAtRisk, result.PreviousStatus)
	assert.Equal(t, 5500.0, result.PreviousValue)
	assert.Equal(t, 2500.0, result.Change)
	assert.InDelta(t, 45.4545, result.ChangePercent, 0.001)
	assert.Equal(t, ConfidenceHigh, result.Confidence)
	assert.Equal(t, testNow, result.Timestamp)

	require.NotNil(t, result.Alert)
	assert.Equal(t, AlertInfo, result.Alert.Type)
	assert.Contains(t, result.Alert.Title, "On track")
	assert.Equal(t, 80.0, result.Alert.Metadata.Progress)

	stored := store.kpis["kpi-sessions"]
	assert.Equal(t, StatusOnTrack, stored.Current.Status)
	assert.Equal(t, testNow, stored.Current.LastUpdated)
	require.Len(t, stored.History, 2)
	assert.Equal(t, 80.0, stored.History[1].Progress)
	require.Len(t, store.alerts, 1)
	assert.Same(t, result.Alert, store.alerts[0])

	assert.Equal(t, []string{"success"}, recorder.outcomes)
	assert.Equal(t, []string{"info/low"}, recorder.alerts)
	assert.Equal(t, []string{"at_risk->on_track"}, recorder.transitions)
}

func TestService_Recompute_FirstCycleRaisesNoAlert(t *testing.T) {
	k := sessionsKPI()
	k.Current = CurrentState{}
	k.History = nil
	store := newMemStore(k)

	svc := newTestService(store, nil)
	result, err := svc.RecomputeWithMetrics(context.Background(), "user-1", k.ID, RawMetrics{FieldTotalSessions: 12000})
	require.NoError(t, err)

	assert.Equal(t, StatusAchieved, result.Status)
	assert.Nil(t, result.Alert)
	assert.Equal(t, 0.0, result.ChangePercent)
	assert.Empty(t, store.alerts)
	assert.Len(t, store.kpis[k.ID].History, 1)
}

func TestService_Recompute_MissingFieldIsLowConfidence(t *testing.T) {
	store := newMemStore(sessionsKPI())
	svc := newTestService(store, nil)

	result, err := svc.RecomputeWithMetrics(context.Background(), "user-1", "kpi-sessions", RawMetrics{FieldTotalUsers: 10})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Value)
	assert.Equal(t, StatusNotStarted, result.Status)
	assert.Equal(t, ConfidenceLow, result.Confidence)
}

func TestService_Recompute_NotFound(t *testing.T) {
	store := newMemStore(sessionsKPI())
	provider := &mockProvider{}
	recorder := &countingRecorder{}
	svc := newTestService(store, provider, WithRecorder(recorder))

	_, err := svc.Recompute(context.Background(), "user-1", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, store.stateWrites)
	provider.AssertNotCalled(t, "GetRawMetrics", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{"not_found"}, recorder.outcomes)

	// another user's KPI is not visible
	_, err = svc.Recompute(context.Background(), "user-2", "kpi-sessions")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestService_Recompute_LoadFailureIsPersistence(t *testing.T) {
	store := newMemStore(sessionsKPI())
	store.loadErr = stderrors.New("database is locked")
	svc := newTestService(store, nil)

	_, err := svc.RecomputeWithMetrics(context.Background(), "user-1", "kpi-sessions", RawMetrics{})
	assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
}

func TestService_Recompute_UpstreamFailure(t *testing.T) {
	store := newMemStore(sessionsKPI())
	provider := &mockProvider{}
	provider.On("GetRawMetrics", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, stderrors.New("quota exceeded"))
	svc := newTestService(store, provider)

	_, err := svc.Recompute(context.Background(), "user-1", "kpi-sessions")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamData)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Zero(t, store.stateWrites)
	assert.Zero(t, store.historyWrites)
}

func TestService_Recompute_NoProvider(t *testing.T) {
	store := newMemStore(sessionsKPI())
	svc := newTestService(store, nil)

	_, err := svc.Recompute(context.Background(), "user-1", "kpi-sessions")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamData)
}

func TestService_Recompute_PersistenceAbortsRemainingSteps(t *testing.T) {
	t.Run("current state", func(t *testing.T) {
		store := newMemStore(sessionsKPI())
		store.stateErr = stderrors.New("disk full")
		svc := newTestService(store, nil)

		_, err := svc.RecomputeWithMetrics(context.Background(), "user-1", "kpi-sessions", RawMetrics{FieldTotalSessions: 8000})
		assert.ErrorIs(t, err, apperrors.ErrPersistence)
		assert.Zero(t, store.historyWrites)
		assert.Empty(t, store.alerts)
	})

	t.Run("history", func(t *testing.T) {
		store := newMemStore(sessionsKPI())
		store.historyErr = stderrors.New("disk full")
		svc := newTestService(store, nil)

		_, err := svc.RecomputeWithMetrics(context.Background(), "user-1", "kpi-sessions", RawMetrics{FieldTotalSessions: 8000})
		assert.ErrorIs(t, err, apperrors.ErrPersistence)
		assert.Equal(t, 1, store.stateWrites)
		assert.Empty(t, store.alerts)
	})

	t.Run("alert", func(t *testing.T) {
		store := newMemStore(sessionsKPI())
		store.alertErr = stderrors.New("disk full")
		recorder := &countingRecorder{}
		svc := newTestService(store, nil, WithRecorder(recorder))

		_, err := svc.RecomputeWithMetrics(context.Background(), "user-1", "kpi-sessions", RawMetrics{FieldTotalSessions: 8000})
		assert.ErrorIs(t, err, apperrors.ErrPersistence)
		assert.Equal(t, 1, store.stateWrites)
		assert.Equal(t, 1, store.historyWrites)
		assert.Empty(t, recorder.alerts)
		assert.Equal(t, []string{"persistence"}, recorder.outcomes)
	})
}

func TestService_RecomputeAll(t *testing.T) {
	active := sessionsKPI()
	paused := sessionsKPI()
	paused.ID = "kpi-paused"
	paused.Status = LifecyclePaused
	failing := sessionsKPI()
	failing.ID = "kpi-search"
	failing.Source = SourceSearch
	failing.MetricType = MetricGSCClicks
	failing.PropertyID = "sc-domain:example.com"
	other := sessionsKPI()
	other.ID = "kpi-other"
	other.UserID = "user-2"

	store := newMemStore(active, paused, failing, other)
	provider := &mockProvider{}
	provider.On("GetRawMetrics", mock.Anything, SourceAnalytics, mock.Anything, mock.Anything).
		Return(RawMetrics{FieldTotalSessions: 8000}, nil)
	provider.On("GetRawMetrics", mock.Anything, SourceSearch, mock.Anything, mock.Anything).
		Return(nil, apperrors.UpstreamData(nil, "search console unavailable"))
	svc := newTestService(store, provider)

	batch, err := svc.RecomputeAll(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, batch.Results, 1)
	assert.Equal(t, "kpi-sessions", batch.Results[0].KPIID)
	assert.Equal(t, []string{"kpi-paused"}, batch.Skipped)
	require.Contains(t, batch.Errors, "kpi-search")
	assert.Contains(t, batch.Errors["kpi-search"], "search console unavailable")
	assert.Equal(t, StatusAtRisk, store.kpis["kpi-other"].Current.Status)
}

// blockingProvider holds every call until release is closed
type blockingProvider struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func (p *blockingProvider) GetRawMetrics(ctx context.Context, _ Source, _ string, _ DateRange) (RawMetrics, error) {
	if atomic.AddInt32(&p.calls, 1) == 1 {
		close(p.started)
	}
	<-p.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return RawMetrics{FieldTotalSessions: 8000}, nil
}

func TestService_Recompute_SingleFlight(t *testing.T) {
	store := newMemStore(sessionsKPI())
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(store, provider)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*CalculationResult, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = svc.Recompute(context.Background(), "user-1", "kpi-sessions")
	}()
	<-provider.started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Recompute(context.Background(), "user-1", "kpi-sessions")
		}(i)
	}
	// let the followers reach the flight group before releasing the leader
	time.Sleep(50 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls))
	assert.Equal(t, 1, store.stateWrites)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Same(t, results[0], r)
	}
}

func TestService_RecomputeWithMetrics_DoesNotJoinFlight(t *testing.T) {
	store := newMemStore(sessionsKPI())
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(store, provider)

	var (
		wg      sync.WaitGroup
		fetched *CalculationResult
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		fetched, _ = svc.Recompute(context.Background(), "user-1", "kpi-sessions")
	}()
	<-provider.started

	pushed, err := svc.RecomputeWithMetrics(context.Background(), "user-1", "kpi-sessions",
		RawMetrics{FieldTotalSessions: 2000})
	require.NoError(t, err)
	assert.Equal(t, 2000.0, pushed.Value)
	assert.Equal(t, 20.0, pushed.Progress)

	close(provider.release)
	wg.Wait()

	require.NotNil(t, fetched)
	assert.Equal(t, 8000.0, fetched.Value)
	assert.NotSame(t, fetched, pushed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls))
	assert.Equal(t, 2, store.stateWrites)
}

func TestService_Recompute_SharedRunSurvivesLeaderCancel(t *testing.T) {
	store := newMemStore(sessionsKPI())
	provider := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(store, provider)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.Recompute(leaderCtx, "user-1", "kpi-sessions")
		leaderErr <- err
	}()
	<-provider.started

	var (
		wg          sync.WaitGroup
		follower    *CalculationResult
		followerErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		follower, followerErr = svc.Recompute(context.Background(), "user-1", "kpi-sessions")
	}()
	// let the follower reach the flight group before the leader goes away
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(provider.release)
	wg.Wait()

	require.NoError(t, followerErr)
	require.NotNil(t, follower)
	assert.Equal(t, 8000.0, follower.Value)
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls))
	assert.Equal(t, 1, store.stateWrites)
}

func TestChangePercent(t *testing.T) {
	assert.Equal(t, 0.0, changePercent(50, 0))
	assert.Equal(t, 50.0, changePercent(50, 100))
	assert.Equal(t, 50.0, changePercent(50, -100))
	assert.Equal(t, -25.0, changePercent(-25, 100))
}

package google

import (
	"context"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/core/kpi"
	apperrors "github.com/frostdev-ops/kpi-backend-go/pkg/errors"
	"github.com/sirupsen/logrus"
)

// UpstreamRecorder receives upstream call telemetry
type UpstreamRecorder interface {
	RecordUpstreamRequest(source string, success bool, duration time.Duration)
}

// Provider serves raw metrics for the analytics and search sources
type Provider struct {
	client   *Client
	recorder UpstreamRecorder
	logger   *logrus.Logger
}

var _ kpi.MetricsProvider = (*Provider)(nil)

// NewProvider creates a metrics provider over client. recorder may be nil.
func NewProvider(client *Client, recorder UpstreamRecorder, logger *logrus.Logger) *Provider {
	return &Provider{
		client:   client,
		recorder: recorder,
		logger:   logger,
	}
}

// GetRawMetrics implements kpi.MetricsProvider. Every failure is reported
// as an upstream data error.
func (p *Provider) GetRawMetrics(ctx context.Context, source kpi.Source, propertyID string, dateRange kpi.DateRange) (kpi.RawMetrics, error) {
	start := time.Now()

	var (
		raw kpi.RawMetrics
		err error
	)
	switch source {
	case kpi.SourceAnalytics:
		raw, err = p.client.RunReport(ctx, propertyID, dateRange)
	case kpi.SourceSearch:
		raw, err = p.client.QuerySearchAnalytics(ctx, propertyID, dateRange)
	default:
		return nil, apperrors.UpstreamData(nil, "no metrics provider for source %q", source)
	}

	if p.recorder != nil {
		p.recorder.RecordUpstreamRequest(string(source), err == nil, time.Since(start))
	}

	fields := logrus.Fields{
		"source":      source,
		"property_id": propertyID,
		"duration":    time.Since(start),
	}
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Warn("Failed to fetch raw metrics")
		return nil, apperrors.UpstreamData(err, "failed to fetch %s metrics", source)
	}

	p.logger.WithFields(fields).WithField("fields", len(raw)).Debug("Fetched raw metrics")
	return raw, nil
}

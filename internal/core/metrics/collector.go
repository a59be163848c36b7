package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordRecompute(outcome string, duration time.Duration)
	RecordAlert(alertType, level string)
	RecordStatusTransition(from, to string)
	RecordUpstreamRequest(source string, success bool, duration time.Duration)
}

// MetricsConfig contains configuration for metrics collection
type MetricsConfig struct {
	Enabled bool
	Prefix  string
}

// NopCollector discards every observation
type NopCollector struct{}

func (NopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NopCollector) RecordRecompute(string, time.Duration)                {}
func (NopCollector) RecordAlert(string, string)                           {}
func (NopCollector) RecordStatusTransition(string, string)                {}
func (NopCollector) RecordUpstreamRequest(string, bool, time.Duration)    {}

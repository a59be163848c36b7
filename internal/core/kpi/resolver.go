package kpi

import "math"

// Raw bag field names produced by the metrics providers
const (
	FieldTotalSessions          = "totalSessions"
	FieldTotalUsers             = "totalUsers"
	FieldTotalPageViews         = "totalPageViews"
	FieldAverageBounceRate      = "averageBounceRate"
	FieldAverageSessionDuration = "averageSessionDuration"
	FieldTotalConversions       = "totalConversions"
	FieldConversionRate         = "conversionRate"
	FieldTotalClicks            = "totalClicks"
	FieldTotalImpressions       = "totalImpressions"
	FieldAverageCTR             = "averageCTR"
	FieldAveragePosition        = "averagePosition"
)

type metricSpec struct {
	source Source
	field  string
}

// metricTable is the single dispatch point for metric resolution.
// custom_formula has no field and always resolves to 0.
var metricTable = map[MetricType]metricSpec{
	MetricGA4Sessions:        {SourceAnalytics, FieldTotalSessions},
	MetricGA4Users:           {SourceAnalytics, FieldTotalUsers},
	MetricGA4PageViews:       {SourceAnalytics, FieldTotalPageViews},
	MetricGA4BounceRate:      {SourceAnalytics, FieldAverageBounceRate},
	MetricGA4SessionDuration: {SourceAnalytics, FieldAverageSessionDuration},
	MetricGA4Conversions:     {SourceAnalytics, FieldTotalConversions},
	MetricGA4ConversionRate:  {SourceAnalytics, FieldConversionRate},
	MetricGSCClicks:          {SourceSearch, FieldTotalClicks},
	MetricGSCImpressions:     {SourceSearch, FieldTotalImpressions},
	MetricGSCCTR:             {SourceSearch, FieldAverageCTR},
	MetricGSCPosition:        {SourceSearch, FieldAveragePosition},
	MetricCustomFormula:      {SourceCustom, ""},
}

// KnownMetricType reports whether mt is part of the metric enumeration
func KnownMetricType(mt MetricType) bool {
	_, ok := metricTable[mt]
	return ok
}

// MetricSource returns the source a metric type is served from
func MetricSource(mt MetricType) (Source, bool) {
	spec, ok := metricTable[mt]
	return spec.source, ok
}

// ResolveMetricValue looks up the value for metricType in raw.
// Missing, unknown or non-finite values resolve to 0.
func ResolveMetricValue(metricType MetricType, raw RawMetrics) float64 {
	value, _ := lookupMetricValue(metricType, raw)
	return value
}

// lookupMetricValue is ResolveMetricValue that also reports whether the
// field was actually present
func lookupMetricValue(metricType MetricType, raw RawMetrics) (float64, bool) {
	spec, ok := metricTable[metricType]
	if !ok || spec.field == "" {
		return 0, false
	}
	value, ok := raw[spec.field]
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

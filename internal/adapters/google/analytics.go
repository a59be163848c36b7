package google

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/frostdev-ops/kpi-backend-go/internal/core/kpi"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// analyticsMetrics maps GA4 metric names to raw bag fields. Rates reported
// as fractions are scaled to percent.
var analyticsMetrics = []struct {
	name    string
	field   string
	percent bool
}{
	{"sessions", kpi.FieldTotalSessions, false},
	{"totalUsers", kpi.FieldTotalUsers, false},
	{"screenPageViews", kpi.FieldTotalPageViews, false},
	{"bounceRate", kpi.FieldAverageBounceRate, true},
	{"averageSessionDuration", kpi.FieldAverageSessionDuration, false},
	{"conversions", kpi.FieldTotalConversions, false},
	{"sessionConversionRate", kpi.FieldConversionRate, true},
}

type runReportRequest struct {
	DateRanges []reportDateRange `json:"dateRanges"`
	Metrics    []reportMetric    `json:"metrics"`
}

type reportDateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type reportMetric struct {
	Name string `json:"name"`
}

type runReportResponse struct {
	MetricHeaders []struct {
		Name string `json:"name"`
	} `json:"metricHeaders"`
	Rows []struct {
		MetricValues []struct {
			Value string `json:"value"`
		} `json:"metricValues"`
	} `json:"rows"`
}

// RunReport fetches the aggregate analytics metrics of a GA4 property.
// propertyID may be given bare or as "properties/{id}".
func (c *Client) RunReport(ctx context.Context, propertyID string, dateRange kpi.DateRange) (kpi.RawMetrics, error) {
	propertyID = strings.TrimPrefix(propertyID, "properties/")
	if propertyID == "" {
		return nil, fmt.Errorf("analytics property id is required")
	}

	req := runReportRequest{
		DateRanges: []reportDateRange{{
			StartDate: dateRange.Start.Format(dateLayout),
			EndDate:   dateRange.End.Format(dateLayout),
		}},
	}
	for _, m := range analyticsMetrics {
		req.Metrics = append(req.Metrics, reportMetric{Name: m.name})
	}

	url := fmt.Sprintf("%s/v1beta/properties/%s:runReport", c.analyticsBaseURL, propertyID)

	var resp runReportResponse
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to run analytics report for property %s: %w", propertyID, err)
	}

	raw := kpi.RawMetrics{}
	if len(resp.Rows) == 0 {
		c.logger.WithField("property_id", propertyID).Debug("Analytics report returned no rows")
		return raw, nil
	}

	values := resp.Rows[0].MetricValues
	for i, header := range resp.MetricHeaders {
		if i >= len(values) {
			break
		}
		for _, m := range analyticsMetrics {
			if m.name != header.Name {
				continue
			}
			v, err := strconv.ParseFloat(values[i].Value, 64)
			if err != nil {
				c.logger.WithFields(logrus.Fields{
					"metric": header.Name,
					"value":  values[i].Value,
				}).Debug("Skipping unparseable analytics value")
				break
			}
			if m.percent {
				v *= 100
			}
			raw[m.field] = v
			break
		}
	}

	return raw, nil
}

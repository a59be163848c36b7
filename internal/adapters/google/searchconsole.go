package google

import (
	"context"
	"fmt"
	"net/url"

	"github.com/frostdev-ops/kpi-backend-go/internal/core/kpi"
)

type searchAnalyticsRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	RowLimit  int    `json:"rowLimit,omitempty"`
}

type searchAnalyticsResponse struct {
	Rows []struct {
		Clicks      float64 `json:"clicks"`
		Impressions float64 `json:"impressions"`
		CTR         float64 `json:"ctr"`
		Position    float64 `json:"position"`
	} `json:"rows"`
}

// QuerySearchAnalytics fetches the site-wide search totals of a Search
// Console property such as "https://example.com/" or "sc-domain:example.com"
func (c *Client) QuerySearchAnalytics(ctx context.Context, siteURL string, dateRange kpi.DateRange) (kpi.RawMetrics, error) {
	if siteURL == "" {
		return nil, fmt.Errorf("search console site url is required")
	}

	endpoint := fmt.Sprintf("%s/webmasters/v3/sites/%s/searchAnalytics/query",
		c.searchConsoleBaseURL, url.QueryEscape(siteURL))

	req := searchAnalyticsRequest{
		StartDate: dateRange.Start.Format(dateLayout),
		EndDate:   dateRange.End.Format(dateLayout),
		RowLimit:  1,
	}

	var resp searchAnalyticsResponse
	if err := c.postJSON(ctx, endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to query search analytics for %s: %w", siteURL, err)
	}

	raw := kpi.RawMetrics{}
	if len(resp.Rows) == 0 {
		c.logger.WithField("site_url", siteURL).Debug("Search analytics returned no rows")
		return raw, nil
	}

	row := resp.Rows[0]
	raw[kpi.FieldTotalClicks] = row.Clicks
	raw[kpi.FieldTotalImpressions] = row.Impressions
	raw[kpi.FieldAverageCTR] = row.CTR * 100
	raw[kpi.FieldAveragePosition] = row.Position

	return raw, nil
}

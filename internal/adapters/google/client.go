package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/frostdev-ops/kpi-backend-go/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	scopeAnalyticsReadonly  = "https://www.googleapis.com/auth/analytics.readonly"
	scopeWebmastersReadonly = "https://www.googleapis.com/auth/webmasters.readonly"

	maxErrorBody = 4 << 10
)

// Client talks to the Analytics Data and Search Console REST APIs
type Client struct {
	httpClient           *http.Client
	analyticsBaseURL     string
	searchConsoleBaseURL string
	retry                RetryPolicy
	logger               *logrus.Logger
}

// NewClient creates a client authorised with the configured refresh token.
// Access tokens are fetched and refreshed by the oauth2 transport.
func NewClient(ctx context.Context, cfg config.GoogleConfig, logger *logrus.Logger) *Client {
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: cfg.TokenURL,
		},
		Scopes: []string{scopeAnalyticsReadonly, scopeWebmastersReadonly},
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// token requests use the same timeout as API calls
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := oauth2Config.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	httpClient.Timeout = timeout

	client := NewClientWithHTTP(httpClient, cfg.AnalyticsBaseURL, cfg.SearchConsoleBaseURL, logger)
	client.retry = DefaultRetryPolicy(cfg.MaxRetries)
	return client
}

// NewClientWithHTTP creates a client over an already authorised HTTP
// client. Failed calls are not retried.
func NewClientWithHTTP(httpClient *http.Client, analyticsBaseURL, searchConsoleBaseURL string, logger *logrus.Logger) *Client {
	return &Client{
		httpClient:           httpClient,
		analyticsBaseURL:     strings.TrimSuffix(analyticsBaseURL, "/"),
		searchConsoleBaseURL: strings.TrimSuffix(searchConsoleBaseURL, "/"),
		retry:                DefaultRetryPolicy(0),
		logger:               logger,
	}
}

// APIError is a non-2xx response from a Google API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google api returned %d: %s", e.StatusCode, e.Body)
}

// postJSON sends body as JSON and decodes the response into out,
// retrying transient failures
func (c *Client) postJSON(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	return c.withRetry(ctx, url, func() error {
		return c.post(ctx, url, payload, out)
	})
}

func (c *Client) post(ctx context.Context, url string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.WithField("url", url).Debug("Calling Google API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

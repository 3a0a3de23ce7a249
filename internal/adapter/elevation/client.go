// Package elevation resolves terrain elevation for repeater sightings via an
// Open-Elevation-compatible HTTP API. Lookups are best-effort: callers treat
// any failure as "leave elevation null" and retry on the next sighting.
package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/radiowatch/coverage-map/internal/observability"
)

// Client implements domain.ElevationLookup against the Open-Elevation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an elevation client. The timeout bounds the whole request
// so a slow provider cannot stall a repeater write.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     logger,
	}
}

// Lookup resolves the elevation in metres at the given coordinate.
func (c *Client) Lookup(ctx context.Context, lat, lon float64) (float64, error) {
	params := url.Values{
		"locations": {fmt.Sprintf("%.6f,%.6f", lat, lon)},
	}
	fullURL := c.baseURL + "/api/v1/lookup?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ElevationAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ElevationRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("elevation request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		c.metrics.ElevationRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("elevation API error: status %d: %s", resp.StatusCode, body)
	}

	var apiResp response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		c.metrics.ElevationRequests.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Results) == 0 {
		c.metrics.ElevationRequests.WithLabelValues("empty").Inc()
		return 0, fmt.Errorf("elevation API returned no results for %.6f,%.6f", lat, lon)
	}

	c.metrics.ElevationRequests.WithLabelValues("success").Inc()
	return apiResp.Results[0].Elevation, nil
}

// Open-Elevation API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

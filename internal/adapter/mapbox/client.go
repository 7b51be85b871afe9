package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	"github.com/couchcryptid/covid-mortality-etl/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.BoundaryResolver using the Mapbox Geocoding API.
// A region's boundary is the bounding box of its best region-type match.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox boundary client.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Boundary looks up region and returns its bounding polygon, or nil when
// Mapbox has no matching region.
func (c *Client) Boundary(ctx context.Context, region string) (*domain.Boundary, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(region))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"region"},
	}

	start := time.Now()
	b, err := c.doRequest(ctx, u+"?"+params.Encode(), region)
	c.metrics.BoundaryAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.BoundaryRequests.WithLabelValues("error").Inc()
		c.logger.Debug("boundary lookup failed", "region", region, "error", err)
	case b == nil:
		c.metrics.BoundaryRequests.WithLabelValues("empty").Inc()
	default:
		c.metrics.BoundaryRequests.WithLabelValues("success").Inc()
	}
	return b, err
}

func (c *Client) doRequest(ctx context.Context, fullURL, region string) (*domain.Boundary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("boundary request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return nil, nil
	}
	return toBoundary(region, mapboxResp.Features[0]), nil
}

// toBoundary converts a feature to a closed rectangular ring. Features
// without a bbox collapse to their center point.
func toBoundary(region string, f feature) *domain.Boundary {
	b := &domain.Boundary{Region: region}
	if len(f.Center) == 2 {
		b.Center = [2]float64{f.Center[0], f.Center[1]}
	}
	if len(f.BBox) != 4 {
		b.Polygon = [][2]float64{b.Center}
		return b
	}

	minLon, minLat, maxLon, maxLat := f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3]
	b.Polygon = [][2]float64{
		{minLon, minLat},
		{maxLon, minLat},
		{maxLon, maxLat},
		{minLon, maxLat},
		{minLon, minLat},
	}
	if len(f.Center) != 2 {
		b.Center = [2]float64{(minLon + maxLon) / 2, (minLat + maxLat) / 2}
	}
	return b
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	BBox      []float64 `json:"bbox"`   // [minLon, minLat, maxLon, maxLat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

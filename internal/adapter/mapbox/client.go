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

	"github.com/couchcryptid/fetchclimate-client/internal/domain"
	"github.com/couchcryptid/fetchclimate-client/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.PlaceResolver using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
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

// ResolvePlace converts a place name such as "Seattle, WA" to coordinates.
func (c *Client) ResolvePlace(ctx context.Context, query string) (domain.Place, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,region,country"},
	}

	p, err := c.doRequest(ctx, u+"?"+params.Encode(), "forward")
	if err != nil {
		return domain.Place{}, err
	}
	if p.Name == "" {
		return domain.Place{}, fmt.Errorf("%w: %q", domain.ErrPlaceNotFound, query)
	}
	return p, nil
}

// DescribeLocation names the place at the given coordinates.
func (c *Client) DescribeLocation(ctx context.Context, lat, lon float64) (domain.Place, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}

	p, err := c.doRequest(ctx, u+"?"+params.Encode(), "reverse")
	if err != nil {
		return domain.Place{}, err
	}
	if p.Name == "" {
		return domain.Place{}, fmt.Errorf("%w: %.4f,%.4f", domain.ErrPlaceNotFound, lat, lon)
	}
	return p, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, method string) (domain.Place, error) {
	start := time.Now()
	defer func() { c.metrics.GeocodeDuration.WithLabelValues(method).Observe(time.Since(start).Seconds()) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return domain.Place{}, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.Place{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return domain.Place{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues(method, "not_found").Inc()
		c.logger.Debug("no geocoding match", "method", method)
		return domain.Place{}, nil
	}

	f := mapboxResp.Features[0]
	p := domain.Place{
		Name:      f.Text,
		Address:   f.PlaceName,
		Relevance: f.Relevance,
	}
	if len(f.Center) == 2 {
		p.Lon = f.Center[0]
		p.Lat = f.Center[1]
	}
	c.metrics.GeocodeRequests.WithLabelValues(method, "success").Inc()
	return p, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

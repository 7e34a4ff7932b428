// Package geocode resolves place names to validated coordinates through an
// external geocoding service, with a persistent cache and courtesy rate limiting.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-tracker/internal/domain"
)

const userAgent = "incident-tracker/1.0"

// Client implements domain.Geocoder against a Nominatim-compatible search
// endpoint.
type Client struct {
	baseURL    string
	country    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a geocoding client. country is an ISO 3166-1 alpha-2 code
// used to scope every query to the operating region.
func NewClient(baseURL, country string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		country: country,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Geocode resolves a free-text query to coordinate candidates. Candidates
// without parseable numeric coordinates are dropped, so an empty slice means
// "no match".
func (c *Client) Geocode(ctx context.Context, query string) ([]domain.GeoCandidate, error) {
	params := url.Values{
		"q":            {query},
		"format":       {"jsonv2"},
		"limit":        {"1"},
		"countrycodes": {c.country},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoder error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	candidates := make([]domain.GeoCandidate, 0, len(places))
	for _, p := range places {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lon, errLon := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLon != nil {
			c.logger.Warn("geocoder returned unparseable coordinates",
				"query", query,
				"lat", p.Lat,
				"lon", p.Lon,
			)
			continue
		}
		candidates = append(candidates, domain.GeoCandidate{Lat: lat, Lon: lon})
	}
	return candidates, nil
}

// Nominatim search response entry. Coordinates arrive as strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Package osrm is a minimal client for the OSRM trip service.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/model"
)

const (
	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "http://router.project-osrm.org"
	defaultProfile = "driving"
)

// ErrTrip marks a trip request the service could not satisfy.
var ErrTrip = eris.New("osrm: trip request failed")

// tripParams pins the start to the first coordinate, keeps the trip open
// and asks for the full-resolution geometry.
const tripParams = "source=first&roundtrip=false&geometries=polyline6&overview=full&steps=false"

// Client computes optimized trips.
type Client interface {
	Trip(ctx context.Context, coords []model.Coordinate) (*TripResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default server URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithProfile overrides the routing profile (driving, car, truck...).
func WithProfile(profile string) Option {
	return func(c *httpClient) {
		if profile != "" {
			c.profile = profile
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	baseURL string
	profile string
	http    *http.Client
}

// NewClient creates an OSRM client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		profile: defaultProfile,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TripURL builds the request URL for coords, in order.
func TripURL(baseURL, profile string, coords []model.Coordinate) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
	}
	return fmt.Sprintf("%s/trip/v1/%s/%s?%s", baseURL, profile, strings.Join(parts, ";"), tripParams)
}

func (c *httpClient) Trip(ctx context.Context, coords []model.Coordinate) (*TripResponse, error) {
	if len(coords) < 2 {
		return nil, eris.Errorf("osrm: trip needs at least 2 coordinates, got %d", len(coords))
	}
	for i, co := range coords {
		if !co.Valid() {
			return nil, eris.Errorf("osrm: invalid coordinate at position %d (%v, %v)", i, co.Lat, co.Lon)
		}
	}

	url := TripURL(c.baseURL, c.profile, coords)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: create request")
	}
	req.Header.Set("Accept", "application/json")

	zap.L().Debug("osrm: trip request", zap.Int("coordinates", len(coords)), zap.String("profile", c.profile))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: read response")
	}

	var out TripResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, eris.Wrapf(ErrTrip, "status %d: %s", resp.StatusCode, truncate(string(body), 200))
		}
		return nil, eris.Wrap(err, "osrm: unmarshal response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || out.Code != "Ok" {
		return nil, eris.Wrapf(ErrTrip, "status %d, code %q: %s", resp.StatusCode, out.Code, out.Message)
	}
	if len(out.Trips) == 0 {
		return nil, eris.Wrap(ErrTrip, "response has no trips")
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

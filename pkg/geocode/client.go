// Package geocode resolves (country, postal code) pairs to approximate
// coordinates using the GeoNames postal-code dumps.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/greenhaul/route-planner/internal/fetcher"
	"github.com/greenhaul/route-planner/internal/model"
)

// DefaultBaseURL serves one <CC>.zip dump per country.
const DefaultBaseURL = "https://download.geonames.org/export/zip"

// Client looks up postal-code coordinates.
type Client interface {
	// Lookup returns the centre of postalCode in country. A code that is not
	// known yields Matched=false and a nil error.
	Lookup(ctx context.Context, country, postalCode string) (*Result, error)
	// Locations returns every postal code known for country, sorted by code.
	Locations(ctx context.Context, country string) ([]model.PostalLocation, error)
}

// Result holds the lookup output for one postal code.
type Result struct {
	Latitude  float64
	Longitude float64
	PlaceName string
	Source    string // "geonames" or "cache"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client for dataset downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Client:       hc,
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
	}
}

// WithTimeout sets the download timeout when no HTTP client is supplied.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		g.timeout = d
	}
}

// WithFetcher sets the downloader used for dataset archives.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(g *geocoder) {
		g.fetcher = f
	}
}

// WithBaseURL overrides the dump location.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithDataDir sets where downloaded dumps are kept between runs.
func WithDataDir(dir string) Option {
	return func(g *geocoder) {
		g.dataDir = dir
	}
}

// WithCache enables a persistent lookup cache.
func WithCache(c Cache) Option {
	return func(g *geocoder) {
		g.cache = c
	}
}

type geocoder struct {
	fetcher fetcher.Fetcher
	timeout time.Duration
	baseURL string
	dataDir string
	cache   Cache

	mu       sync.Mutex
	datasets map[string]*dataset
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		baseURL:  DefaultBaseURL,
		dataDir:  ".cache/geonames",
		timeout:  60 * time.Second,
		datasets: make(map[string]*dataset),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.fetcher == nil {
		g.fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout:      g.timeout,
			RateLimiters: fetcher.DefaultRateLimiters(),
		})
	}
	return g
}

package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/greenhaul/route-planner/internal/config"
	"github.com/greenhaul/route-planner/internal/match"
	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/internal/refdb"
	"github.com/greenhaul/route-planner/internal/resolve"
	"github.com/greenhaul/route-planner/pkg/geocode"
	"github.com/greenhaul/route-planner/pkg/osrm"
)

func newGeocoder(c *config.Config, cache geocode.Cache) geocode.Client {
	opts := []geocode.Option{
		geocode.WithBaseURL(c.Geocode.BaseURL),
		geocode.WithDataDir(c.Geocode.DataDir),
		geocode.WithTimeout(time.Duration(c.Geocode.TimeoutSecs) * time.Second),
	}
	if cache != nil {
		opts = append(opts, geocode.WithCache(cache))
	}
	return geocode.NewClient(opts...)
}

func newOptimizer(c *config.Config) osrm.Client {
	return osrm.NewClient(
		osrm.WithBaseURL(c.OSRM.BaseURL),
		osrm.WithProfile(c.OSRM.Profile),
		osrm.WithTimeout(time.Duration(c.OSRM.TimeoutSecs)*time.Second),
	)
}

// loadResolver reads the reference database at path and builds the
// address resolver over it.
func loadResolver(ctx context.Context, c *config.Config, path string) (*resolve.AddressResolver, error) {
	delim := []rune(c.Input.DBDelimiter)
	if len(delim) != 1 {
		return nil, eris.Errorf("input.db_delimiter must be a single character, got %q", c.Input.DBDelimiter)
	}
	records, err := refdb.LoadFile(ctx, path, refdb.Options{
		Delimiter: delim[0],
		Encoding:  c.Input.DBEncoding,
	})
	if err != nil {
		return nil, err
	}
	norm := match.NewNormalizer(c.Match.CommonTerms)
	return resolve.NewAddressResolver(records, norm, c.Match.Threshold), nil
}

func newPipeline(c *config.Config, resolver *resolve.AddressResolver, geo resolve.Geocoder) *resolve.Pipeline {
	return resolve.NewPipeline(resolver, geo, c.Depot.Name, depotOf(c),
		resolve.WithPacing(time.Duration(c.Geocode.PacingMs)*time.Millisecond),
		resolve.WithConcurrency(c.Geocode.Concurrency),
	)
}

func depotOf(c *config.Config) model.Coordinate {
	return model.Coordinate{Lat: c.Depot.Latitude, Lon: c.Depot.Longitude}
}

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

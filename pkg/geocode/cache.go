package geocode

import (
	"context"

	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/model"
)

// Cache persists resolved postal locations across runs.
type Cache interface {
	// GetCachedPostal returns nil, nil on a miss.
	GetCachedPostal(ctx context.Context, country, postalCode string) (*model.PostalLocation, error)
	SetCachedPostal(ctx context.Context, loc model.PostalLocation) error
}

// checkCache returns a cached result, or nil on a miss or cache failure.
func (g *geocoder) checkCache(ctx context.Context, country, code string) *Result {
	if g.cache == nil {
		return nil
	}
	loc, err := g.cache.GetCachedPostal(ctx, country, code)
	if err != nil {
		zap.L().Warn("geocode: cache read failed", zap.String("country", country), zap.String("postal_code", code), zap.Error(err))
		return nil
	}
	if loc == nil {
		return nil
	}
	zap.L().Debug("geocode cache hit", zap.String("country", country), zap.String("postal_code", code))
	return &Result{
		Latitude:  loc.Lat,
		Longitude: loc.Lon,
		PlaceName: loc.PlaceName,
		Source:    "cache",
		Matched:   true,
	}
}

// storeCache records a match. Failures are logged, not returned.
func (g *geocoder) storeCache(ctx context.Context, country, code string, r *Result) {
	if g.cache == nil || !r.Matched {
		return
	}
	err := g.cache.SetCachedPostal(ctx, model.PostalLocation{
		Country:    country,
		PostalCode: code,
		PlaceName:  r.PlaceName,
		Lat:        r.Latitude,
		Lon:        r.Longitude,
	})
	if err != nil {
		zap.L().Warn("geocode: cache write failed", zap.String("country", country), zap.String("postal_code", code), zap.Error(err))
	}
}

// Package store persists planning runs and the postal-code lookup cache.
package store

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/greenhaul/route-planner/internal/model"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for route planning.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, orderSheet, departure string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, stops []model.RunStop, path *geom.LineString) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error)

	// Postal cache. GetCachedPostal returns nil, nil on a miss.
	GetCachedPostal(ctx context.Context, country, postalCode string) (*model.PostalLocation, error)
	SetCachedPostal(ctx context.Context, loc model.PostalLocation) error
	ImportPostal(ctx context.Context, locs []model.PostalLocation) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}

const defaultListLimit = 100

func listLimit(f model.RunFilter) int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func errorText(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	return cause.Error()
}

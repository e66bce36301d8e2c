package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/greenhaul/route-planner/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func samplePath() *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, []float64{10.972, 43.918, 10.503, 43.843, 11.246, 43.779})
}

func sampleStops() []model.RunStop {
	return []model.RunStop{
		{Rank: 1, Customer: "Rossi Giardini", Country: "IT", PostalCode: "55100", Lat: 43.843, Lon: 10.503, DistanceKm: 52.1, Hours: 0.87},
		{Rank: 2, Customer: "Bianchi Vivai", Country: "IT", PostalCode: "50100", Lat: 43.779, Lon: 11.246, DistanceKm: 78.4, Hours: 1.31},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "Costi.xlsx", "2026-10-19")
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusPlanning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "Costi.xlsx", got.OrderSheet)
		assert.Equal(t, "2026-10-19", got.Departure)
		assert.Equal(t, model.RunStatusPlanning, got.Status)
		assert.Nil(t, got.Summary)
		assert.Nil(t, got.Path)
		assert.Empty(t, got.Stops)
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "Costi.xlsx", "")
		require.NoError(t, err)

		summary := &model.RunSummary{
			Customers:  3,
			Stops:      2,
			TotalKm:    130.5,
			TotalHours: 2.18,
			Unmatched:  []string{"Verdi GmbH"},
		}
		require.NoError(t, s.CompleteRun(ctx, run.ID, summary, sampleStops(), samplePath()))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Summary)
		assert.Equal(t, 3, got.Summary.Customers)
		assert.InDelta(t, 130.5, got.Summary.TotalKm, 1e-9)
		assert.Equal(t, []string{"Verdi GmbH"}, got.Summary.Unmatched)

		require.Len(t, got.Stops, 2)
		assert.Equal(t, 1, got.Stops[0].Rank)
		assert.Equal(t, "Rossi Giardini", got.Stops[0].Customer)
		assert.Equal(t, "50100", got.Stops[1].PostalCode)
		assert.InDelta(t, 1.31, got.Stops[1].Hours, 1e-9)

		require.NotNil(t, got.Path)
		assert.Equal(t, 3, got.Path.NumCoords())
		assert.InDeltaSlice(t, samplePath().FlatCoords(), got.Path.FlatCoords(), 1e-12)
	})

	t.Run("CompleteRunReplacesStops", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "Costi.xlsx", "")
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, run.ID, &model.RunSummary{Stops: 2}, sampleStops(), nil))
		require.NoError(t, s.CompleteRun(ctx, run.ID, &model.RunSummary{Stops: 1}, sampleStops()[:1], nil))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Len(t, got.Stops, 1)
		assert.Nil(t, got.Path)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "Costi.xlsx", "")
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, run.ID, errors.New("osrm: trip request failed")))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "osrm: trip request failed", got.Error)
	})

	t.Run("UnknownRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetRun(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.FailRun(ctx, "missing", nil), ErrNotFound)
		assert.ErrorIs(t, s.CompleteRun(ctx, "missing", &model.RunSummary{}, nil, nil), ErrNotFound)
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, "a.xlsx", "")
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, "b.xlsx", "")
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, a.ID, errors.New("boom")))

		all, err := s.ListRuns(ctx, model.RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		failed, err := s.ListRuns(ctx, model.RunFilter{Status: model.RunStatusFailed})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, a.ID, failed[0].ID)

		limited, err := s.ListRuns(ctx, model.RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("PostalCache", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		loc, err := s.GetCachedPostal(ctx, "IT", "50100")
		require.NoError(t, err)
		assert.Nil(t, loc)

		require.NoError(t, s.SetCachedPostal(ctx, model.PostalLocation{Country: "IT", PostalCode: "50100", PlaceName: "Firenze", Lat: 43.7, Lon: 11.2}))
		require.NoError(t, s.SetCachedPostal(ctx, model.PostalLocation{Country: "IT", PostalCode: "50100", PlaceName: "Firenze", Lat: 43.77, Lon: 11.24}))

		loc, err = s.GetCachedPostal(ctx, "IT", "50100")
		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, "Firenze", loc.PlaceName)
		assert.InDelta(t, 43.77, loc.Lat, 1e-9)
		assert.InDelta(t, 11.24, loc.Lon, 1e-9)
	})

	t.Run("ImportPostal", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.ImportPostal(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		n, err = s.ImportPostal(ctx, []model.PostalLocation{
			{Country: "DE", PostalCode: "80331", PlaceName: "München", Lat: 48.1, Lon: 11.2},
			{Country: "DE", PostalCode: "10115", PlaceName: "Berlin", Lat: 52.5, Lon: 13.4},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		loc, err := s.GetCachedPostal(ctx, "DE", "10115")
		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, "Berlin", loc.PlaceName)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported driver "mysql"`)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck
	assert.IsType(t, &SQLiteStore{}, s)
}

func TestPathRoundTrip(t *testing.T) {
	b, err := encodePath(samplePath())
	require.NoError(t, err)
	require.NotEmpty(t, b)
	assert.Equal(t, byte(1), b[0], "little-endian EWKB")

	ls, err := decodePath(b)
	require.NoError(t, err)
	assert.Equal(t, pathSRID, ls.SRID())
	assert.Equal(t, samplePath().FlatCoords(), ls.FlatCoords())
}

func TestPathEmpty(t *testing.T) {
	b, err := encodePath(nil)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = encodePath(geom.NewLineString(geom.XY))
	require.NoError(t, err)
	assert.Nil(t, b)

	ls, err := decodePath(nil)
	require.NoError(t, err)
	assert.Nil(t, ls)

	_, err = decodePath([]byte{0x01, 0x02})
	require.Error(t, err)
}

package resolve

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/pkg/geocode"
)

var testDepot = model.Coordinate{Lat: 43.91835625149449, Lon: 10.972482955970866}

type fakeGeocoder struct {
	mu      sync.Mutex
	results map[string]*geocode.Result
	errs    map[string]error
	calls   []string
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		results: map[string]*geocode.Result{
			"IT|55100": {Latitude: 43.84, Longitude: 10.50, PlaceName: "Lucca", Source: "geonames", Matched: true},
			"IT|50100": {Latitude: 43.77, Longitude: 11.25, PlaceName: "Firenze", Source: "geonames", Matched: true},
		},
		errs: map[string]error{},
	}
}

func (f *fakeGeocoder) Lookup(_ context.Context, country, postalCode string) (*geocode.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := country + "|" + postalCode
	f.calls = append(f.calls, key)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	if r, ok := f.results[key]; ok {
		return r, nil
	}
	return &geocode.Result{Source: "geonames"}, nil
}

func (f *fakeGeocoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestPipeline(geo Geocoder, opts ...Option) *Pipeline {
	opts = append([]Option{WithPacing(0)}, opts...)
	return NewPipeline(newTestResolver(sampleRecords()), geo, "Depot", testDepot, opts...)
}

func TestPipeline_EndToEnd(t *testing.T) {
	geo := newFakeGeocoder()
	p := newTestPipeline(geo)

	res, err := p.Run(context.Background(), []model.CustomerQuery{
		{Name: "Rossi Giardini Srl", Row: 1},
		{Name: "Verdi GmbH", Row: 2},
		{Name: "", Row: 3},
	})
	require.NoError(t, err)

	require.Len(t, res.Customers, 2)
	rossi, ok := res.Customer("Rossi Giardini Srl")
	require.True(t, ok)
	require.NotNil(t, rossi.Address)
	assert.Equal(t, "55100", rossi.Address.PostalCode)
	require.NotNil(t, rossi.Coordinate)
	assert.InDelta(t, 43.84, rossi.Coordinate.Lat, 1e-9)

	verdi, ok := res.Customer("Verdi GmbH")
	require.True(t, ok)
	assert.False(t, verdi.Resolved())
	assert.Nil(t, verdi.Coordinate)

	assert.Equal(t, []string{"Verdi GmbH"}, res.Unmatched())
	assert.Empty(t, res.Ungeocoded())
	assert.Equal(t, []string{"Verdi GmbH"}, res.Excluded())

	assert.Equal(t, 2, res.Coordinates.Len())
	assert.Equal(t, testDepot, res.Coordinates.At(0))
	assert.Equal(t, []string{"Rossi Giardini Srl"}, res.Coordinates.Provenance)
	assert.Equal(t, 1, geo.callCount())
}

func TestPipeline_DepotFirstWhenNothingResolves(t *testing.T) {
	p := newTestPipeline(newFakeGeocoder())
	res, err := p.Run(context.Background(), []model.CustomerQuery{{Name: "Verdi"}, {Name: "Neri"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Coordinates.Len())
	assert.Equal(t, testDepot, res.Coordinates.At(0))
	assert.Zero(t, res.Coordinates.Customers())
}

func TestPipeline_OverrideBypassesDatabase(t *testing.T) {
	geo := newFakeGeocoder()
	p := newTestPipeline(geo)

	res, err := p.Run(context.Background(), []model.CustomerQuery{
		{Name: "Rossi Giardini", Override: "IT-50100"},
	})
	require.NoError(t, err)
	c := res.Customers[0]
	assert.Equal(t, model.ProvenanceManual, c.Provenance)
	assert.Equal(t, "IT", c.Address.Country)
	assert.Equal(t, "50100", c.Address.PostalCode)
	require.NotNil(t, c.Coordinate)
	assert.InDelta(t, 43.77, c.Coordinate.Lat, 1e-9)
	assert.Equal(t, []string{"IT|50100"}, geo.calls)
}

func TestPipeline_SkipsBlankAndDuplicateNames(t *testing.T) {
	geo := newFakeGeocoder()
	p := newTestPipeline(geo)

	res, err := p.Run(context.Background(), []model.CustomerQuery{
		{Name: "  ", Row: 1},
		{Name: "Bianchi", Row: 2},
		{Name: "Rossi Giardini", Row: 3},
		{Name: " Bianchi ", Row: 4, Override: "IT-55100"},
	})
	require.NoError(t, err)
	require.Len(t, res.Customers, 2)
	assert.Equal(t, "Bianchi", res.Customers[0].Name)
	assert.Equal(t, 2, res.Customers[0].Row)
	assert.Equal(t, model.ProvenanceMatched, res.Customers[0].Provenance)
	assert.Equal(t, "Rossi Giardini", res.Customers[1].Name)
	assert.Equal(t, []string{"Bianchi", "Rossi Giardini"}, res.Coordinates.Provenance)
	assert.Equal(t, 2, geo.callCount())
}

func TestPipeline_MissesAreNotFatal(t *testing.T) {
	geo := newFakeGeocoder()
	p := newTestPipeline(geo)

	res, err := p.Run(context.Background(), []model.CustomerQuery{
		{Name: "Gialli", Override: "DE-99999"}, // no entry
		{Name: "Neri", Override: "XX-123"},     // unknown country
		{Name: "Rossi Giardini"},               // ok
	})
	require.NoError(t, err)
	assert.Empty(t, res.Unmatched())
	assert.Equal(t, []string{"Gialli", "Neri"}, res.Ungeocoded())
	assert.Equal(t, []string{"Rossi Giardini"}, res.Coordinates.Provenance)
}

func TestPipeline_LookupErrorIsFatal(t *testing.T) {
	geo := newFakeGeocoder()
	geo.errs["IT|55100"] = errors.New("geocode: download IT: dial tcp: connection refused")
	p := newTestPipeline(geo)

	res, err := p.Run(context.Background(), []model.CustomerQuery{
		{Name: "Bianchi"},
		{Name: "Rossi Giardini"},
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "resolve: locate Rossi Giardini (IT-55100)")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPipeline_LookupErrorIsFatalWithWorkers(t *testing.T) {
	geo := newFakeGeocoder()
	geo.errs["IT|50100"] = assert.AnError
	p := newTestPipeline(geo, WithConcurrency(3))

	_, err := p.Run(context.Background(), []model.CustomerQuery{
		{Name: "Rossi Giardini"},
		{Name: "Bianchi"},
		{Name: "Sud", Override: "IT-55100"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPipeline_RejectsInvalidCoordinates(t *testing.T) {
	geo := newFakeGeocoder()
	geo.results["IT|55100"] = &geocode.Result{Latitude: math.NaN(), Longitude: 10.5, Matched: true}
	geo.results["IT|50100"] = &geocode.Result{Latitude: 91, Longitude: 10.5, Matched: true}
	p := newTestPipeline(geo)

	res, err := p.Run(context.Background(), []model.CustomerQuery{{Name: "Rossi Giardini"}, {Name: "Bianchi"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Coordinates.Len())
	assert.Equal(t, []string{"Rossi Giardini", "Bianchi"}, res.Ungeocoded())
}

func TestPipeline_SkipsLookupWithoutPostalCode(t *testing.T) {
	geo := newFakeGeocoder()
	records := []model.ReferenceRecord{{Code: "1", Acronym: "NERI", Country: "IT"}}
	p := NewPipeline(newTestResolver(records), geo, "Depot", testDepot, WithPacing(0))

	res, err := p.Run(context.Background(), []model.CustomerQuery{{Name: "Neri"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Neri"}, res.Ungeocoded())
	assert.Zero(t, geo.callCount())
}

func TestPipeline_ConcurrencyKeepsOrder(t *testing.T) {
	geo := newFakeGeocoder()
	p := newTestPipeline(geo, WithConcurrency(4))

	queries := []model.CustomerQuery{
		{Name: "Rossi Giardini"},
		{Name: "Verdi"},
		{Name: "Bianchi"},
		{Name: "Nord", Override: "IT-50100"},
		{Name: "Sud", Override: "IT-55100"},
	}
	res, err := p.Run(context.Background(), queries)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Customers))
	for _, c := range res.Customers {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Rossi Giardini", "Verdi", "Bianchi", "Nord", "Sud"}, names)
	assert.Equal(t, []string{"Rossi Giardini", "Bianchi", "Nord", "Sud"}, res.Coordinates.Provenance)
}

func TestPipeline_PacingSpacesLookups(t *testing.T) {
	geo := newFakeGeocoder()
	p := newTestPipeline(geo, WithLimiter(rate.NewLimiter(rate.Every(50*time.Millisecond), 1)))

	start := time.Now()
	_, err := p.Run(context.Background(), []model.CustomerQuery{
		{Name: "A", Override: "IT-50100"},
		{Name: "B", Override: "IT-55100"},
		{Name: "C", Override: "IT-50100"},
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, 3, geo.callCount())
}

func TestPipeline_CancelledContext(t *testing.T) {
	p := newTestPipeline(newFakeGeocoder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []model.CustomerQuery{{Name: "Rossi Giardini"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDistinct(t *testing.T) {
	got := Distinct([]model.CustomerQuery{
		{Name: "a", Row: 1}, {Name: " ", Row: 2}, {Name: " a", Row: 3}, {Name: "b", Row: 4},
	})
	require.Len(t, got, 2)
	assert.Equal(t, model.CustomerQuery{Name: "a", Row: 1}, got[0])
	assert.Equal(t, model.CustomerQuery{Name: "b", Row: 4}, got[1])
}

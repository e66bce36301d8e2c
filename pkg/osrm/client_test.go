package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/greenhaul/route-planner/internal/model"
)

var (
	depot = model.Coordinate{Lat: 43.91835625149449, Lon: 10.972482955970866}
	lucca = model.Coordinate{Lat: 43.84, Lon: 10.5}
	pisa  = model.Coordinate{Lat: 43.72, Lon: 10.4}
)

func okTrip(t *testing.T) TripResponse {
	t.Helper()
	path := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{
		{depot.Lon, depot.Lat}, {pisa.Lon, pisa.Lat}, {lucca.Lon, lucca.Lat},
	})
	return TripResponse{
		Code: "Ok",
		Waypoints: []Waypoint{
			{WaypointIndex: 0, Location: [2]float64{depot.Lon, depot.Lat}},
			{WaypointIndex: 2, Location: [2]float64{lucca.Lon, lucca.Lat}},
			{WaypointIndex: 1, Location: [2]float64{pisa.Lon, pisa.Lat}},
		},
		Trips: []Trip{{
			Distance: 95000,
			Duration: 5400,
			Geometry: EncodePolyline6(path),
			Legs:     []Leg{{Distance: 70000, Duration: 3600}, {Distance: 25000, Duration: 1800}},
		}},
	}
}

func TestTrip_Success(t *testing.T) {
	want := okTrip(t)
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithProfile("truck"))
	resp, err := c.Trip(context.Background(), []model.Coordinate{depot, lucca, pisa})
	require.NoError(t, err)

	assert.Equal(t, "/trip/v1/truck/10.972482955970866,43.91835625149449;10.5,43.84;10.4,43.72", gotPath)
	assert.Equal(t, tripParams, gotQuery)
	assert.Equal(t, want.Waypoints, resp.Waypoints)
	require.Len(t, resp.Trips, 1)
	assert.Equal(t, []float64{70, 25}, resp.Trips[0].LegKilometers())

	path, err := resp.Trips[0].Path()
	require.NoError(t, err)
	assert.Equal(t, 3, path.NumCoords())
	assert.InDelta(t, depot.Lon, path.Coord(0).X(), 1e-6)
	assert.InDelta(t, depot.Lat, path.Coord(0).Y(), 1e-6)
}

func TestTrip_ServiceCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoTrips","message":"No trip visiting all destinations possible."}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Trip(context.Background(), []model.Coordinate{depot, lucca})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTrip))
	assert.Contains(t, err.Error(), "NoTrips")
}

func TestTrip_NotOkWithSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"InvalidInput","trips":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Trip(context.Background(), []model.Coordinate{depot, lucca})
	assert.ErrorIs(t, err, ErrTrip)
}

func TestTrip_NoTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok","waypoints":[],"trips":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Trip(context.Background(), []model.Coordinate{depot, lucca})
	assert.ErrorIs(t, err, ErrTrip)
}

func TestTrip_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("<html>bad gateway</html>", 20)))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Trip(context.Background(), []model.Coordinate{depot, lucca})
	require.ErrorIs(t, err, ErrTrip)
	assert.Contains(t, err.Error(), "status 502")
	assert.Contains(t, err.Error(), "...")
}

func TestTrip_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Trip(context.Background(), []model.Coordinate{depot, lucca})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "osrm: unmarshal response")
}

func TestTrip_RejectsBadInput(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	c := NewClient(WithBaseURL(srv.URL))

	_, err := c.Trip(context.Background(), []model.Coordinate{depot})
	assert.Error(t, err)

	_, err = c.Trip(context.Background(), []model.Coordinate{depot, {Lat: math.NaN(), Lon: 10}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 1")

	_, err = c.Trip(context.Background(), []model.Coordinate{depot, {Lat: 10, Lon: math.Inf(1)}})
	assert.Error(t, err)

	assert.Equal(t, int32(0), hits.Load())
}

func TestTrip_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := c.Trip(context.Background(), []model.Coordinate{depot, lucca})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "osrm: send request")
}

func TestTrip_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"Ok"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(WithBaseURL(srv.URL)).Trip(ctx, []model.Coordinate{depot, lucca})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithHTTPClient(t *testing.T) {
	want := okTrip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	resp, err := c.Trip(context.Background(), []model.Coordinate{depot, lucca, pisa})
	require.NoError(t, err)
	assert.Len(t, resp.Waypoints, 3)
}

func TestTripURL(t *testing.T) {
	got := TripURL("http://osrm.local", "driving", []model.Coordinate{{Lat: 1.5, Lon: -2.25}, {Lat: 3, Lon: 4}})
	assert.Equal(t, "http://osrm.local/trip/v1/driving/-2.25,1.5;4,3?"+tripParams, got)
}

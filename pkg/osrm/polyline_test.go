package osrm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestPolyline6_RoundTrip(t *testing.T) {
	in := geom.NewLineString(geom.XY).MustSetCoords([]geom.Coord{
		{10.972483, 43.918356},
		{10.502712, 43.842901},
		{-0.141234, 51.501009},
	})

	enc := EncodePolyline6(in)
	require.NotEmpty(t, enc)

	out, err := DecodePolyline6(enc)
	require.NoError(t, err)
	require.Equal(t, in.NumCoords(), out.NumCoords())
	for i := 0; i < in.NumCoords(); i++ {
		assert.InDelta(t, in.Coord(i).X(), out.Coord(i).X(), 1e-6)
		assert.InDelta(t, in.Coord(i).Y(), out.Coord(i).Y(), 1e-6)
	}
}

func TestDecodePolyline6_LatLonOrder(t *testing.T) {
	// Google's reference polyline at precision 5 is (38.5,-120.2) ... ; at
	// precision 6 the same string decodes to a tenth of those values.
	out, err := DecodePolyline6("_p~iF~ps|U")
	require.NoError(t, err)
	require.Equal(t, 1, out.NumCoords())
	assert.InDelta(t, -12.02, out.Coord(0).X(), 1e-9)
	assert.InDelta(t, 3.85, out.Coord(0).Y(), 1e-9)
}

func TestDecodePolyline6_Empty(t *testing.T) {
	out, err := DecodePolyline6("")
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumCoords())
}

func TestDecodePolyline6_Invalid(t *testing.T) {
	_, err := DecodePolyline6("\x01\x02")
	assert.Error(t, err)
}

func TestTripPath_InvalidGeometry(t *testing.T) {
	_, err := Trip{Geometry: "\x01"}.Path()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "osrm: decode trip geometry")
}

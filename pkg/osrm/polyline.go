package osrm

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-polyline"
)

var polyline6 = polyline.Codec{Dim: 2, Scale: 1e6}

// DecodePolyline6 decodes a six-digit precision polyline into an XY line
// string (longitude, latitude).
func DecodePolyline6(s string) (*geom.LineString, error) {
	coords, rest, err := polyline6.DecodeCoords([]byte(s))
	if err != nil {
		return nil, eris.Wrap(err, "osrm: decode polyline")
	}
	if len(rest) != 0 {
		return nil, eris.Errorf("osrm: %d trailing bytes in polyline", len(rest))
	}

	flat := make([]geom.Coord, len(coords))
	for i, c := range coords {
		flat[i] = geom.Coord{c[1], c[0]}
	}
	ls, err := geom.NewLineString(geom.XY).SetCoords(flat)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: build line string")
	}
	return ls, nil
}

// EncodePolyline6 is the inverse of DecodePolyline6.
func EncodePolyline6(ls *geom.LineString) string {
	coords := make([][]float64, ls.NumCoords())
	for i := range coords {
		c := ls.Coord(i)
		coords[i] = []float64{c.Y(), c.X()}
	}
	return string(polyline6.EncodeCoords(nil, coords))
}

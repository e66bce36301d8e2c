package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

const pathSRID = 4326

// encodePath serializes a route as little-endian EWKB. A nil path encodes to nil.
func encodePath(path *geom.LineString) ([]byte, error) {
	if path == nil || path.NumCoords() == 0 {
		return nil, nil
	}
	ls := geom.NewLineStringFlat(path.Layout(), path.FlatCoords())
	ls.SetSRID(pathSRID)

	data, err := ewkb.Marshal(ls, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode path")
	}
	return data, nil
}

func decodePath(b []byte) (*geom.LineString, error) {
	if len(b) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode path")
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("store: path is %T, want LineString", g)
	}
	return ls, nil
}

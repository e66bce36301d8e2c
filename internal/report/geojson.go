package report

import (
	"io"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/greenhaul/route-planner/internal/route"
)

// RouteGeoJSON renders the route line and one point per stop (the depot
// first) as a FeatureCollection.
func RouteGeoJSON(d Document) ([]byte, error) {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	if p := d.Plan; p != nil {
		addPlanFeatures(fc, p)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "report: encode geojson")
	}
	return data, nil
}

func addPlanFeatures(fc *geojson.FeatureCollection, p *route.Plan) {
	if p.Path != nil && p.Path.NumCoords() > 0 {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       "route",
			Geometry: p.Path,
			Properties: map[string]interface{}{
				"kind":        "route",
				"total_km":    round1(p.TotalKm),
				"total_hours": p.TotalHours,
			},
		})
	}

	fc.Features = append(fc.Features, &geojson.Feature{
		ID:       "depot",
		Geometry: geom.NewPointFlat(geom.XY, []float64{p.Depot.Lon, p.Depot.Lat}),
		Properties: map[string]interface{}{
			"kind": "depot",
			"name": p.DepotName,
			"rank": 0,
		},
	})
	for _, l := range p.Legs {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       "stop-" + strconv.Itoa(l.Rank),
			Geometry: geom.NewPointFlat(geom.XY, []float64{l.Coordinate.Lon, l.Coordinate.Lat}),
			Properties: map[string]interface{}{
				"kind":        "stop",
				"name":        l.Customer,
				"rank":        l.Rank,
				"distance_km": round1(l.DistanceKm),
				"hours":       l.Hours,
			},
		})
	}
}

// WriteGeoJSON writes RouteGeoJSON(d) to w.
func WriteGeoJSON(w io.Writer, d Document) error {
	data, err := RouteGeoJSON(d)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "report: write geojson")
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

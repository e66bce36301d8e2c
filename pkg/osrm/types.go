package osrm

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// TripResponse is the body of a /trip reply.
type TripResponse struct {
	Code      string     `json:"code"`
	Message   string     `json:"message,omitempty"`
	Waypoints []Waypoint `json:"waypoints"`
	Trips     []Trip     `json:"trips"`
}

// Waypoint describes one input coordinate. Waypoints are listed in input
// order; WaypointIndex is the position of the coordinate within its trip.
type Waypoint struct {
	WaypointIndex int        `json:"waypoint_index"`
	TripsIndex    int        `json:"trips_index"`
	Location      [2]float64 `json:"location"` // lon, lat snapped to the road network
	Name          string     `json:"name,omitempty"`
	Distance      float64    `json:"distance,omitempty"`
}

// Trip is one computed round of visits.
type Trip struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Weight   float64 `json:"weight,omitempty"`
	Geometry string  `json:"geometry"` // polyline6
	Legs     []Leg   `json:"legs"`
}

// Leg is the route between two consecutive stops of a trip.
type Leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Summary  string  `json:"summary,omitempty"`
}

// Path decodes the trip geometry.
func (t Trip) Path() (*geom.LineString, error) {
	ls, err := DecodePolyline6(t.Geometry)
	if err != nil {
		return nil, eris.Wrap(err, "osrm: decode trip geometry")
	}
	return ls, nil
}

// LegKilometers returns the leg distances in kilometers.
func (t Trip) LegKilometers() []float64 {
	out := make([]float64, len(t.Legs))
	for i, l := range t.Legs {
		out[i] = l.Distance / 1000
	}
	return out
}

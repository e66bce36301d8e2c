package model

import "math"

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are finite and within range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// PostalLocation is the approximate centre of a postal code.
type PostalLocation struct {
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	PlaceName  string  `json:"place_name,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Coordinate returns the location as a Coordinate.
func (p PostalLocation) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// CoordinateList is the ordered input of a trip request. Index 0 is the
// depot; Provenance[i-1] names the customer at index i.
type CoordinateList struct {
	Depot      Coordinate
	DepotName  string
	points     []Coordinate
	Provenance []string
}

// NewCoordinateList starts a list with the depot at index 0.
func NewCoordinateList(depotName string, depot Coordinate) *CoordinateList {
	return &CoordinateList{
		Depot:     depot,
		DepotName: depotName,
		points:    []Coordinate{depot},
	}
}

// Append adds a customer coordinate after the existing entries.
func (l *CoordinateList) Append(name string, c Coordinate) {
	l.points = append(l.points, c)
	l.Provenance = append(l.Provenance, name)
}

// Points returns a copy of all coordinates, depot first.
func (l *CoordinateList) Points() []Coordinate {
	out := make([]Coordinate, len(l.points))
	copy(out, l.points)
	return out
}

// Len is the number of coordinates including the depot.
func (l *CoordinateList) Len() int { return len(l.points) }

// Customers is the number of customer entries (Len minus the depot).
func (l *CoordinateList) Customers() int { return len(l.Provenance) }

// At returns the coordinate at index i.
func (l *CoordinateList) At(i int) Coordinate { return l.points[i] }

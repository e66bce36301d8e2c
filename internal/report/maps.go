package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const mapsBaseURL = "https://www.google.com/maps/dir/"

// MapsURL is a Google Maps directions link through every stop in visiting
// order. It is empty when there are no stops.
func MapsURL(d Document) string {
	legs := d.legs()
	if len(legs) == 0 {
		return ""
	}
	parts := make([]string, len(legs))
	for i, l := range legs {
		parts[i] = strconv.FormatFloat(l.Coordinate.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Coordinate.Lon, 'f', -1, 64)
	}
	return mapsBaseURL + strings.Join(parts, "/")
}

// WriteMapsURL writes MapsURL(d) to w.
func WriteMapsURL(w io.Writer, d Document) error {
	if _, err := io.WriteString(w, MapsURL(d)); err != nil {
		return eris.Wrap(err, "report: write maps link")
	}
	return nil
}

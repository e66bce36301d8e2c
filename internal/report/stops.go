package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
)

// stopColumns is the header of the stops CSV.
var stopColumns = []string{
	"Fermata",
	"Cliente",
	"Nazione",
	"CAP",
	"Codice",
	"Latitudine",
	"Longitudine",
	"Distanza (km)",
	"Tempo (h)",
}

// WriteStopsCSV writes one row per stop in visiting order.
func WriteStopsCSV(w io.Writer, d Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(stopColumns); err != nil {
		return eris.Wrap(err, "report: write stops header")
	}
	for _, l := range d.legs() {
		if err := cw.Write(buildStopRow(d, l.Rank)); err != nil {
			return eris.Wrap(err, "report: write stop row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush stops")
	}
	return nil
}

func buildStopRow(d Document, rank int) []string {
	l := d.Plan.Legs[rank-1]
	var country, postal, code string
	if c, ok := d.customer(l.Customer); ok && c.Address != nil {
		country, postal, code = c.Address.Country, c.Address.PostalCode, c.Address.Code
	}
	return []string{
		strconv.Itoa(l.Rank),                              // Fermata
		l.Customer,                                        // Cliente
		country,                                           // Nazione
		postal,                                            // CAP
		code,                                              // Codice
		strconv.FormatFloat(l.Coordinate.Lat, 'f', 6, 64), // Latitudine
		strconv.FormatFloat(l.Coordinate.Lon, 'f', 6, 64), // Longitudine
		strconv.FormatFloat(l.DistanceKm, 'f', 1, 64),     // Distanza (km)
		strconv.FormatFloat(l.Hours, 'f', 2, 64),          // Tempo (h)
	}
}

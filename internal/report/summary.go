package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// Summary is the run board shown at the depot.
type Summary struct {
	ID        string         `json:"id"`
	Departure string         `json:"departure"`
	Image     string         `json:"image"`
	Customers []SummaryEntry `json:"customers"`
}

// SummaryEntry is one stop of the board.
type SummaryEntry struct {
	Name          string  `json:"name"`
	HoursFromPrev float64 `json:"hours_from_prev"`
}

// BuildSummary lists the stops in visiting order with the hours from the
// previous stop.
func BuildSummary(d Document) Summary {
	s := Summary{
		ID:        d.RunID,
		Departure: d.Departure,
		Image:     d.SummaryImage,
		Customers: []SummaryEntry{},
	}
	for _, l := range d.legs() {
		s.Customers = append(s.Customers, SummaryEntry{Name: l.Customer, HoursFromPrev: l.Hours})
	}
	return s
}

// WriteSummary writes the summary as indented JSON.
func WriteSummary(w io.Writer, d Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BuildSummary(d)); err != nil {
		return eris.Wrap(err, "report: write summary")
	}
	return nil
}

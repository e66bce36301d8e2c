// Package report renders the documents of a planned run.
package report

import (
	"github.com/greenhaul/route-planner/internal/model"
	"github.com/greenhaul/route-planner/internal/route"
)

// Output file names.
const (
	LoadingListFile = "lista_di_carico.txt"
	SummaryFile     = "tabellone.json"
	MapsLinkFile    = "google.txt"
	GeoJSONFile     = "percorso.geojson"
	StopsFile       = "tappe.csv"
)

// Document is everything the writers need about one run.
type Document struct {
	RunID        string
	Departure    string
	TruckLabel   string
	SummaryImage string
	// Customers in order-sheet order, including unresolved ones.
	Customers []model.ResolvedCustomer
	Plan      *route.Plan
}

func (d Document) customer(name string) (model.ResolvedCustomer, bool) {
	for _, c := range d.Customers {
		if c.Name == name {
			return c, true
		}
	}
	return model.ResolvedCustomer{}, false
}

// Excluded lists the customers missing from the visiting order, in sheet
// order.
func (d Document) Excluded() []model.ResolvedCustomer {
	planned := make(map[string]bool)
	if d.Plan != nil {
		for _, l := range d.Plan.Legs {
			planned[l.Customer] = true
		}
	}
	var out []model.ResolvedCustomer
	for _, c := range d.Customers {
		if !planned[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

func (d Document) legs() []route.Leg {
	if d.Plan == nil {
		return nil
	}
	return d.Plan.Legs
}

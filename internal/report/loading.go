package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/greenhaul/route-planner/internal/model"
)

// placeholderPrefix stands in for COUNTRY-CAP when a customer has no address.
const placeholderPrefix = "X-1234"

// LoadingList renders the truck loading instructions: the last stop is
// loaded first, so stops are listed in reverse visiting order. Customers
// outside the order follow in a separate section for manual placement.
func LoadingList(d Document) string {
	var b strings.Builder
	b.WriteString(d.TruckLabel + "\n\n")
	b.WriteString("Cabina:\n")

	legs := d.legs()
	for i := len(legs) - 1; i >= 0; i-- {
		c, _ := d.customer(legs[i].Customer)
		c.Name = legs[i].Customer
		b.WriteString(loadingLine(c))
	}

	if excluded := d.Excluded(); len(excluded) > 0 {
		b.WriteString("\nDa posizionare manualmente:\n")
		for _, c := range excluded {
			b.WriteString(loadingLine(c))
		}
	}
	return b.String()
}

func loadingLine(c model.ResolvedCustomer) string {
	if c.Address == nil || c.Address.Country == "" || c.Address.PostalCode == "" {
		return fmt.Sprintf("%s    %s      ordine:\n", placeholderPrefix, c.Name)
	}
	return fmt.Sprintf("%s-%s      %s      ordine:\n", c.Address.Country, c.Address.PostalCode, c.Name)
}

// WriteLoadingList writes LoadingList(d) to w.
func WriteLoadingList(w io.Writer, d Document) error {
	if _, err := io.WriteString(w, LoadingList(d)); err != nil {
		return eris.Wrap(err, "report: write loading list")
	}
	return nil
}

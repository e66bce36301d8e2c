package resolve

import "strings"

// OverrideStatus classifies the manual address cell of an order-sheet row.
type OverrideStatus int

const (
	// OverrideAbsent means the cell is empty.
	OverrideAbsent OverrideStatus = iota
	// OverridePresent means the cell holds a usable COUNTRY-CAP pair.
	OverridePresent
	// OverrideMalformed means the cell has content that is not COUNTRY-CAP.
	OverrideMalformed
)

func (s OverrideStatus) String() string {
	switch s {
	case OverridePresent:
		return "present"
	case OverrideMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Override is a parsed manual address.
type Override struct {
	Status     OverrideStatus
	Country    string
	PostalCode string
	Raw        string
}

// ParseOverride splits raw on its first '-' into country and postal code.
// Both parts are trimmed and the country is upper-cased; an empty part makes
// the override malformed.
func ParseOverride(raw string) Override {
	o := Override{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		o.Status = OverrideAbsent
		return o
	}

	country, postal, ok := strings.Cut(trimmed, "-")
	country = strings.TrimSpace(country)
	postal = strings.TrimSpace(postal)
	if !ok || country == "" || postal == "" {
		o.Status = OverrideMalformed
		return o
	}

	o.Status = OverridePresent
	o.Country = strings.ToUpper(country)
	o.PostalCode = postal
	return o
}

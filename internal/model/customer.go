package model

import "strings"

// CustomerQuery is one customer name read from the order sheet.
type CustomerQuery struct {
	Name     string `json:"name"`
	Override string `json:"override,omitempty"` // raw Indirizzo cell, e.g. "IT-50100"
	Row      int    `json:"row"`                // 1-based sheet row, header excluded
}

// ReferenceRecord is one row of the customer reference database.
type ReferenceRecord struct {
	CountryCode string `json:"country_code"` // Naz
	Code        string `json:"code"`         // Codice
	Acronym     string `json:"acronym"`      // Acronimo
	LegalName1  string `json:"legal_name_1"` // Ragione Sociale 1
	LegalName2  string `json:"legal_name_2"` // Ragione Sociale 2
	PostalCode  string `json:"postal_code"`  // CAP
	Locality    string `json:"locality"`     // Localita'
	Country     string `json:"country"`      // Nazione
	Street      string `json:"street"`       // Indirizzo
}

// ReferenceCode joins country code and customer code as "Naz/Codice".
func (r ReferenceRecord) ReferenceCode() string {
	return r.CountryCode + "/" + r.Code
}

// LegalName joins both legal-name fields with a single space, skipping blanks.
func (r ReferenceRecord) LegalName() string {
	a := strings.TrimSpace(r.LegalName1)
	b := strings.TrimSpace(r.LegalName2)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// Provenance records how a customer's address was obtained.
type Provenance string

const (
	ProvenanceMatched    Provenance = "matched"
	ProvenanceManual     Provenance = "manual"
	ProvenanceUnresolved Provenance = "unresolved"
)

// Address is the structured postal address of a resolved customer.
type Address struct {
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	Locality   string `json:"locality,omitempty"`
	Street     string `json:"street,omitempty"`     // "COUNTRY-CAP street"
	LegalName  string `json:"legal_name,omitempty"` // name1 + name2
	Code       string `json:"code,omitempty"`       // Naz/Codice
}

// ResolvedCustomer is the outcome of resolving one CustomerQuery.
type ResolvedCustomer struct {
	Name         string      `json:"name"`
	Row          int         `json:"row"`
	Provenance   Provenance  `json:"provenance"`
	Address      *Address    `json:"address,omitempty"`
	Coordinate   *Coordinate `json:"coordinate,omitempty"`
	Score        float64     `json:"score"`
	MatchedField string      `json:"matched_field,omitempty"`
}

// Resolved reports whether an address was found.
func (c ResolvedCustomer) Resolved() bool {
	return c.Provenance != ProvenanceUnresolved && c.Address != nil
}

// Geocoded reports whether the customer has a usable coordinate.
func (c ResolvedCustomer) Geocoded() bool {
	return c.Coordinate != nil && c.Coordinate.Valid()
}

// Package match normalizes free-text customer names and scores their
// similarity.
package match

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultCommonTerms is the ordered vocabulary of trade boilerplate removed
// from names. Order matters: "garten" is removed before "gartencenter" can
// match, exactly as the reference workflow does.
var DefaultCommonTerms = []string{
	"baumschule", "galabau", "garten", "gartencenter", "baumschulen",
	"gartenbau", "landschaftsbau", "gmbh", "ag", "rosen", "boerse",
	"blumenboerse", "blumen", "gbr", "kg", "gartenarchitektur", "gartendesign",
}

// Normalizer strips case noise, surrounding whitespace and common terms.
// Terms are removed as literal substrings, not whole words, so "ag" also
// disappears from "Hagen".
type Normalizer struct {
	terms []string
}

// NewNormalizer returns a Normalizer for the given ordered vocabulary. A nil
// slice selects DefaultCommonTerms.
func NewNormalizer(terms []string) *Normalizer {
	if terms == nil {
		terms = DefaultCommonTerms
	}
	lower := cases.Lower(language.Und)
	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(lower.String(norm.NFC.String(t)))
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return &Normalizer{terms: cleaned}
}

// Terms returns the vocabulary in removal order.
func (n *Normalizer) Terms() []string {
	out := make([]string, len(n.terms))
	copy(out, n.terms)
	return out
}

// Normalize returns the comparison form of s. Normalize(Normalize(s)) ==
// Normalize(s).
func (n *Normalizer) Normalize(s string) string {
	// cases.Caser keeps state; one per call keeps Normalizer safe for
	// concurrent use.
	lower := cases.Lower(language.Und)
	out := strings.TrimSpace(lower.String(norm.NFC.String(s)))
	for {
		next := out
		for _, t := range n.terms {
			next = strings.ReplaceAll(next, t, "")
		}
		next = strings.TrimSpace(next)
		if next == out {
			return out
		}
		out = next
	}
}

// Similarity normalizes both sides and returns their Ratio.
func (n *Normalizer) Similarity(a, b string) float64 {
	return Ratio(n.Normalize(a), n.Normalize(b))
}

package match

import (
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// indel weights a substitution as one deletion plus one insertion.
var indel = levenshtein.NewParams().InsCost(1).DelCost(1).SubCost(2)

// Ratio returns 1 - d/(len(a)+len(b)) where d is the insert/delete edit
// distance between a and b, counted in runes. Two empty strings score 1.
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	if a == b {
		return 1
	}
	d := levenshtein.Distance(a, b, indel)
	return 1 - float64(d)/float64(total)
}

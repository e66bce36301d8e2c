package match

import (
	"sort"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"github.com/xrash/smetrics"
)

// Candidate is a near-miss offered to the operator when a name stays
// unresolved.
type Candidate struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// Suggest ranks values by Jaro-Winkler similarity to query on their
// normalized, unaccented forms and returns at most limit candidates scoring
// at least minScore. It is advisory only and never drives acceptance.
func (n *Normalizer) Suggest(query string, values []string, limit int, minScore float64) []Candidate {
	q := fold(n.Normalize(query))
	if q == "" || limit <= 0 {
		return nil
	}

	seen := make(map[string]bool, len(values))
	var out []Candidate
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		s := smetrics.JaroWinkler(q, fold(n.Normalize(v)), 0.7, 4)
		if s >= minScore {
			out = append(out, Candidate{Value: v, Score: s})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func fold(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}

// Package resolve turns order-sheet customer names into addresses and
// coordinates.
package resolve

import (
	"strings"

	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/match"
	"github.com/greenhaul/route-planner/internal/model"
)

// DefaultThreshold is the minimum similarity a candidate must exceed.
const DefaultThreshold = 0.79

// Matched-field labels, in comparison priority order.
const (
	FieldAcronym    = "acronym"
	FieldLegalName1 = "legal_name_1"
	FieldLegalName2 = "legal_name_2"
	FieldOverride   = "override"
)

var searchFields = [3]string{FieldAcronym, FieldLegalName1, FieldLegalName2}

// AddressResolver finds the reference record that best matches a customer
// name. It is safe for concurrent use.
type AddressResolver struct {
	norm      *match.Normalizer
	threshold float64
	records   []model.ReferenceRecord
	// normalized acronym, legal name 1, legal name 2 per record
	fields [][3]string
}

// NewAddressResolver precomputes the normalized search fields of records.
func NewAddressResolver(records []model.ReferenceRecord, norm *match.Normalizer, threshold float64) *AddressResolver {
	if norm == nil {
		norm = match.NewNormalizer(nil)
	}
	fields := make([][3]string, len(records))
	for i, r := range records {
		fields[i] = [3]string{
			norm.Normalize(r.Acronym),
			norm.Normalize(r.LegalName1),
			norm.Normalize(r.LegalName2),
		}
	}
	return &AddressResolver{
		norm:      norm,
		threshold: threshold,
		records:   records,
		fields:    fields,
	}
}

// Records is the number of reference records.
func (r *AddressResolver) Records() int { return len(r.records) }

// Resolve returns the address of q. A well-formed override wins over any
// database match. Otherwise every record is scanned; a field is accepted when
// its score exceeds both the threshold and the best score accepted so far,
// and the remaining fields of that record are skipped. Ties keep the earlier
// record.
func (r *AddressResolver) Resolve(q model.CustomerQuery) model.ResolvedCustomer {
	name := strings.TrimSpace(q.Name)
	out := model.ResolvedCustomer{Name: name, Row: q.Row, Provenance: model.ProvenanceUnresolved}

	ov := ParseOverride(q.Override)
	switch ov.Status {
	case OverridePresent:
		zap.L().Info("resolve: manual address",
			zap.String("customer", name),
			zap.String("country", ov.Country),
			zap.String("postal_code", ov.PostalCode),
		)
		out.Provenance = model.ProvenanceManual
		out.MatchedField = FieldOverride
		out.Score = 1
		out.Address = &model.Address{Country: ov.Country, PostalCode: ov.PostalCode}
		return out
	case OverrideMalformed:
		zap.L().Warn("resolve: ignoring malformed manual address, expected COUNTRY-CAP",
			zap.String("customer", name),
			zap.String("value", ov.Raw),
		)
	}

	query := r.norm.Normalize(name)
	if query == "" {
		zap.L().Warn("resolve: name is empty after normalization, needs manual address",
			zap.String("customer", name),
		)
		return out
	}

	best := -1
	bestField := ""
	maxScore := 0.0
	for i, f := range r.fields {
		for k, candidate := range f {
			if candidate == "" {
				continue
			}
			score := match.Ratio(query, candidate)
			if score > r.threshold && score > maxScore {
				maxScore = score
				best = i
				bestField = searchFields[k]
				break
			}
		}
	}

	if best < 0 {
		fields := []zap.Field{zap.String("customer", name)}
		if s := r.Suggest(name, 3); len(s) > 0 {
			fields = append(fields, zap.Any("closest", s))
		}
		zap.L().Warn("resolve: address not found, needs manual address", fields...)
		return out
	}

	rec := r.records[best]
	out.Provenance = model.ProvenanceMatched
	out.Score = maxScore
	out.MatchedField = bestField
	out.Address = addressFromRecord(rec)
	zap.L().Debug("resolve: address found",
		zap.String("customer", name),
		zap.String("code", out.Address.Code),
		zap.String("field", bestField),
		zap.Float64("score", maxScore),
	)
	return out
}

// Suggest returns the closest reference names to name, for operator hints.
func (r *AddressResolver) Suggest(name string, limit int) []match.Candidate {
	values := make([]string, 0, len(r.records)*3)
	for _, rec := range r.records {
		values = append(values, rec.Acronym, rec.LegalName1, rec.LegalName2)
	}
	return r.norm.Suggest(name, values, limit, 0.6)
}

func addressFromRecord(rec model.ReferenceRecord) *model.Address {
	country := strings.TrimSpace(rec.Country)
	postal := strings.TrimSpace(rec.PostalCode)
	return &model.Address{
		Country:    country,
		PostalCode: postal,
		Locality:   strings.TrimSpace(rec.Locality),
		Street:     strings.TrimSpace(country + "-" + postal + " " + strings.TrimSpace(rec.Street)),
		LegalName:  rec.LegalName(),
		Code:       rec.ReferenceCode(),
	}
}

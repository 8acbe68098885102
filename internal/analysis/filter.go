package analysis

import (
	"errors"

	"ipucli/pkg/contracts/domain"
)

// ErrInvalidRange means a numeric filter has its minimum above its maximum.
var ErrInvalidRange = errors.New("filter range minimum exceeds maximum")

// Filter returns the records matching every criterion. Predicates combine
// with AND. A nil categorical slice accepts everything; an empty non-nil
// slice is an explicit empty selection and matches nothing. A record with a
// missing numeric value fails any bounded range on that value.
func Filter(records []domain.Record, c domain.FilterCriteria) ([]domain.Record, error) {
	if err := validateRange(c.AvaluoMin, c.AvaluoMax); err != nil {
		return nil, err
	}
	if err := validateRange(c.AreaMin, c.AreaMax); err != nil {
		return nil, err
	}

	zonas := toSet(c.Zonas)
	estratos := toSet(c.Estratos)
	destinaciones := toSet(c.Destinaciones)

	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if !inSet(zonas, c.Zonas, rec.Zona) {
			continue
		}
		if !inSet(estratos, c.Estratos, rec.EstratoCat) {
			continue
		}
		if !inSet(destinaciones, c.Destinaciones, rec.Destinacion) {
			continue
		}
		if !inRange(rec.Avaluo2024, c.AvaluoMin, c.AvaluoMax) {
			continue
		}
		if !inRange(rec.AreaConst, c.AreaMin, c.AreaMax) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func validateRange(min, max *float64) error {
	if min != nil && max != nil && *min > *max {
		return ErrInvalidRange
	}
	return nil
}

func toSet(values []string) map[string]struct{} {
	if values == nil {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// inSet applies the nil-versus-empty convention: a nil selection accepts any
// value, a non-nil one accepts only its members.
func inSet(set map[string]struct{}, selection []string, value string) bool {
	if selection == nil {
		return true
	}
	_, ok := set[value]
	return ok
}

// inRange checks v against optional bounds. With any bound present a missing
// value is excluded.
func inRange(v float64, min, max *float64) bool {
	if min == nil && max == nil {
		return true
	}
	if domain.IsMissing(v) {
		return false
	}
	if min != nil && v < *min {
		return false
	}
	if max != nil && v > *max {
		return false
	}
	return true
}

package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ipucli/pkg/contracts/domain"
)

// Aggregation names the supported group-by measures.
type Aggregation string

const (
	AggCount Aggregation = "count"
	AggSum   Aggregation = "sum"
	AggMean  Aggregation = "mean"
)

// Sentinel errors for aggregation requests.
var (
	// ErrInvalidMeasure means the measure column is unknown or not numeric.
	ErrInvalidMeasure = errors.New("measure column is not numeric")
	// ErrInvalidGroupKey means a grouping column is unknown or not categorical.
	ErrInvalidGroupKey = errors.New("group key column is not categorical")
)

// Categorical group-by columns, addressed by their derived-table names.
var categoricalColumns = map[string]func(domain.Record) string{
	"zona":              func(r domain.Record) string { return r.Zona },
	"estrato_cat":       func(r domain.Record) string { return r.EstratoCat },
	"rango_avaluo_2024": func(r domain.Record) string { return r.RangoAvaluo },
	"rango_area_const":  func(r domain.Record) string { return r.RangoArea },
	"situacion_tarifa":  func(r domain.Record) string { return r.SituacionTarifa },
	"situacion_ipu":     func(r domain.Record) string { return r.SituacionIPU },
	"DESTINACION":       func(r domain.Record) string { return r.Destinacion },
}

// Numeric measure columns, addressed by their source-sheet names.
var numericColumns = map[string]func(domain.Record) float64{
	"avaluo2024":             func(r domain.Record) float64 { return r.Avaluo2024 },
	"area_const":             func(r domain.Record) float64 { return r.AreaConst },
	"tarifa":                 func(r domain.Record) float64 { return r.Tarifa },
	"TARIFA PROPUESTA":       func(r domain.Record) float64 { return r.TarifaPropuesta },
	"VLR_IPU_2025":           func(r domain.Record) float64 { return r.VlrIPU2025 },
	"IPU LEY 44":             func(r domain.Record) float64 { return r.IPULey44 },
	"cambio_tarifa":          func(r domain.Record) float64 { return r.CambioTarifa },
	"DIFERENCIA EN EL VALOR": func(r domain.Record) float64 { return r.Diferencia },
}

// GroupRow is one output row of a group-by aggregation. Valid counts the rows
// whose measure value was present; a mean row with Valid == 0 had nothing to
// average, which distinguishes it from a group whose mean is truly zero.
type GroupRow struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
	Valid int      `json:"valid"`
	Value float64  `json:"value"`
}

// GroupBy aggregates records grouped by one or two categorical columns.
// For sum and mean, records with a missing measure value are skipped; a group
// whose every value is missing reports Value zero and Valid zero. Output rows
// are sorted by count descending, then by keys for determinism.
func GroupBy(records []domain.Record, keys []string, agg Aggregation, measure string) ([]GroupRow, error) {
	if len(keys) == 0 || len(keys) > 2 {
		return nil, fmt.Errorf("%w: expected 1 or 2 group keys, got %d", ErrInvalidGroupKey, len(keys))
	}

	keyFns := make([]func(domain.Record) string, 0, len(keys))
	for _, k := range keys {
		fn, ok := categoricalColumns[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidGroupKey, k)
		}
		keyFns = append(keyFns, fn)
	}

	var measureFn func(domain.Record) float64
	if agg != AggCount {
		fn, ok := numericColumns[measure]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMeasure, measure)
		}
		measureFn = fn
	}

	type accumulator struct {
		keys  []string
		count int
		sum   float64
		n     int
	}
	groups := make(map[string]*accumulator)

	for _, rec := range records {
		keyVals := make([]string, len(keyFns))
		for i, fn := range keyFns {
			keyVals[i] = fn(rec)
		}
		id := strings.Join(keyVals, "\x1f")

		acc, ok := groups[id]
		if !ok {
			acc = &accumulator{keys: keyVals}
			groups[id] = acc
		}
		acc.count++

		if measureFn != nil {
			v := measureFn(rec)
			if !domain.IsMissing(v) {
				acc.sum += v
				acc.n++
			}
		}
	}

	rows := make([]GroupRow, 0, len(groups))
	for _, acc := range groups {
		row := GroupRow{Keys: acc.keys, Count: acc.count, Valid: acc.n}
		switch agg {
		case AggSum:
			row.Value = acc.sum
		case AggMean:
			if acc.n > 0 {
				row.Value = acc.sum / float64(acc.n)
			}
		case AggCount:
			row.Valid = acc.count
			row.Value = float64(acc.count)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return strings.Join(rows[i].Keys, "\x1f") < strings.Join(rows[j].Keys, "\x1f")
	})
	return rows, nil
}

// SumColumn totals a numeric column, skipping missing values.
func SumColumn(records []domain.Record, column string) (float64, error) {
	fn, ok := numericColumns[column]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidMeasure, column)
	}
	var total float64
	for _, rec := range records {
		if v := fn(rec); !domain.IsMissing(v) {
			total += v
		}
	}
	return total, nil
}

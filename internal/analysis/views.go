package analysis

import (
	"sort"

	"ipucli/pkg/contracts/domain"
)

// ZonaRecaudo breaks the revenue totals down by zone.
type ZonaRecaudo struct {
	Zona             string  `json:"zona"`
	Count            int     `json:"count"`
	RecaudoActual    float64 `json:"recaudo_actual"`
	RecaudoPropuesto float64 `json:"recaudo_propuesto"`
}

// SummaryView is the headline metrics tab: record count, current and proposed
// revenue, and the per-zone breakdown.
type SummaryView struct {
	Total            int           `json:"total"`
	RecaudoActual    float64       `json:"recaudo_actual"`
	RecaudoPropuesto float64       `json:"recaudo_propuesto"`
	Delta            float64       `json:"delta"`
	PorZona          []ZonaRecaudo `json:"por_zona"`
}

// BandCount is one bar of a categorical distribution.
type BandCount struct {
	Band  string `json:"band"`
	Count int    `json:"count"`
}

// StratumPoint is one marker of the stratum scatter plot. Area is nil when
// the record has no construction area; such points appear on the valuation
// axis only.
type StratumPoint struct {
	Estrato string   `json:"estrato"`
	Zona    string   `json:"zona"`
	Avaluo  float64  `json:"avaluo"`
	Area    *float64 `json:"area,omitempty"`
}

// TariffGroupRow summarizes tariffs for one zone and destination pair.
type TariffGroupRow struct {
	Zona                string  `json:"zona"`
	Destinacion         string  `json:"destinacion"`
	Count               int     `json:"count"`
	TarifaPromActual    float64 `json:"tarifa_prom_actual"`
	TarifaPromPropuesta float64 `json:"tarifa_prom_propuesta"`
}

// TariffView is the tariff tab: the situation distribution plus the
// zone-destination summary table.
type TariffView struct {
	Situaciones []BandCount      `json:"situaciones"`
	Resumen     []TariffGroupRow `json:"resumen"`
}

// FilterOptions lists the observed values and ranges available to the
// dashboard filter widgets.
type FilterOptions struct {
	Zonas         []string `json:"zonas"`
	Estratos      []string `json:"estratos"`
	Destinaciones []string `json:"destinaciones"`

	AvaluoMin float64 `json:"avaluo_min"`
	AvaluoMax float64 `json:"avaluo_max"`
	AreaMin   float64 `json:"area_min"`
	AreaMax   float64 `json:"area_max"`
}

// BuildSummary computes the headline metrics over the given subset.
func BuildSummary(records []domain.Record) SummaryView {
	actual, _ := SumColumn(records, "VLR_IPU_2025")
	propuesto, _ := SumColumn(records, "IPU LEY 44")

	view := SummaryView{
		Total:            len(records),
		RecaudoActual:    actual,
		RecaudoPropuesto: propuesto,
		Delta:            propuesto - actual,
	}

	byZona := make(map[string]*ZonaRecaudo)
	for _, rec := range records {
		zr, ok := byZona[rec.Zona]
		if !ok {
			zr = &ZonaRecaudo{Zona: rec.Zona}
			byZona[rec.Zona] = zr
		}
		zr.Count++
		if !domain.IsMissing(rec.VlrIPU2025) {
			zr.RecaudoActual += rec.VlrIPU2025
		}
		if !domain.IsMissing(rec.IPULey44) {
			zr.RecaudoPropuesto += rec.IPULey44
		}
	}
	for _, zr := range byZona {
		view.PorZona = append(view.PorZona, *zr)
	}
	sort.Slice(view.PorZona, func(i, j int) bool {
		if view.PorZona[i].Count != view.PorZona[j].Count {
			return view.PorZona[i].Count > view.PorZona[j].Count
		}
		return view.PorZona[i].Zona < view.PorZona[j].Zona
	})
	return view
}

// BuildValuationBands returns the valuation band distribution, most populous
// band first. Records outside every band carry an empty label and are dropped.
func BuildValuationBands(records []domain.Record) []BandCount {
	return distribution(records, "rango_avaluo_2024")
}

// BuildAreaBands returns the construction area band distribution.
func BuildAreaBands(records []domain.Record) []BandCount {
	return distribution(records, "rango_area_const")
}

// distribution counts a categorical column, dropping the empty label.
func distribution(records []domain.Record, column string) []BandCount {
	rows, err := GroupBy(records, []string{column}, AggCount, "")
	if err != nil {
		return nil
	}
	out := make([]BandCount, 0, len(rows))
	for _, row := range rows {
		if row.Keys[0] == "" {
			continue
		}
		out = append(out, BandCount{Band: row.Keys[0], Count: row.Count})
	}
	return out
}

// BuildStrataPoints produces the scatter points for the stratum tab. Records
// with no 2024 valuation are omitted.
func BuildStrataPoints(records []domain.Record) []StratumPoint {
	points := make([]StratumPoint, 0, len(records))
	for _, rec := range records {
		if domain.IsMissing(rec.Avaluo2024) {
			continue
		}
		p := StratumPoint{
			Estrato: rec.EstratoCat,
			Zona:    rec.Zona,
			Avaluo:  rec.Avaluo2024,
		}
		if !domain.IsMissing(rec.AreaConst) {
			area := rec.AreaConst
			p.Area = &area
		}
		points = append(points, p)
	}
	return points
}

// BuildTariffView computes the tariff situation distribution and the
// zone-destination summary table with mean current and proposed rates.
func BuildTariffView(records []domain.Record) TariffView {
	view := TariffView{
		Situaciones: distribution(records, "situacion_tarifa"),
	}

	counts, err := GroupBy(records, []string{"zona", "DESTINACION"}, AggCount, "")
	if err != nil {
		return view
	}
	meanActual, _ := GroupBy(records, []string{"zona", "DESTINACION"}, AggMean, "tarifa")
	meanPropuesta, _ := GroupBy(records, []string{"zona", "DESTINACION"}, AggMean, "TARIFA PROPUESTA")

	actualByKey := indexByKeys(meanActual)
	propuestaByKey := indexByKeys(meanPropuesta)

	for _, row := range counts {
		key := row.Keys[0] + "\x1f" + row.Keys[1]
		view.Resumen = append(view.Resumen, TariffGroupRow{
			Zona:                row.Keys[0],
			Destinacion:         row.Keys[1],
			Count:               row.Count,
			TarifaPromActual:    actualByKey[key],
			TarifaPromPropuesta: propuestaByKey[key],
		})
	}
	return view
}

func indexByKeys(rows []GroupRow) map[string]float64 {
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.Keys[0]+"\x1f"+row.Keys[1]] = row.Value
	}
	return out
}

// BuildFilterOptions discovers the selectable values and slider ranges from
// the full dataset.
func BuildFilterOptions(ds *domain.Dataset) FilterOptions {
	opts := FilterOptions{}

	zonas := make(map[string]struct{})
	estratos := make(map[string]struct{})
	destinaciones := make(map[string]struct{})

	first := true
	firstArea := true
	for _, rec := range ds.Records {
		zonas[rec.Zona] = struct{}{}
		estratos[rec.EstratoCat] = struct{}{}
		if rec.Destinacion != "" {
			destinaciones[rec.Destinacion] = struct{}{}
		}

		if !domain.IsMissing(rec.Avaluo2024) {
			if first || rec.Avaluo2024 < opts.AvaluoMin {
				opts.AvaluoMin = rec.Avaluo2024
			}
			if first || rec.Avaluo2024 > opts.AvaluoMax {
				opts.AvaluoMax = rec.Avaluo2024
			}
			first = false
		}
		if !domain.IsMissing(rec.AreaConst) {
			if firstArea || rec.AreaConst < opts.AreaMin {
				opts.AreaMin = rec.AreaConst
			}
			if firstArea || rec.AreaConst > opts.AreaMax {
				opts.AreaMax = rec.AreaConst
			}
			firstArea = false
		}
	}

	opts.Zonas = sortedKeys(zonas)
	opts.Estratos = sortedKeys(estratos)
	opts.Destinaciones = sortedKeys(destinaciones)
	return opts
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

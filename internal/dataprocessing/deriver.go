package dataprocessing

import (
	"strconv"
	"time"

	"ipucli/pkg/contracts/domain"
)

// BuildDataset derives every classification column for the parsed records and
// assembles the immutable dataset served to the dashboard.
func BuildDataset(source string, parsed *ParseResult) domain.Dataset {
	ds := domain.Dataset{
		Source:        source,
		LoadedAt:      time.Now().UTC(),
		HasDiferencia: parsed.HasDiferencia,
	}

	avaluos := make([]float64, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		avaluos = append(avaluos, rec.Avaluo2024)
	}
	ds.AvaluoEdges = ComputeBandEdges(avaluos)
	if ds.AvaluoEdges != nil {
		ds.AvaluoLabels = CurrencyBandLabels(ds.AvaluoEdges)
	} else {
		// No row carries a 2024 valuation, so a single fallback band
		// covers everything.
		ds.AvaluoLabels = []string{domain.BandSinAvaluo}
	}

	ds.Records = make([]domain.Record, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		ds.Records = append(ds.Records, deriveRecord(rec, &ds))
	}
	return ds
}

// deriveRecord computes the derived columns for one property record.
func deriveRecord(rec domain.PropertyRecord, ds *domain.Dataset) domain.Record {
	out := domain.Record{PropertyRecord: rec}

	out.Zona = zonaFor(rec.Clase)
	out.EstratoCat = estratoCategory(rec.Estrato)
	out.RangoAvaluo = avaluoBand(rec.Avaluo2024, ds)
	out.RangoArea = areaBand(rec.AreaConst)

	out.CambioTarifa = rec.TarifaPropuesta - rec.Tarifa
	out.SituacionTarifa = tarifaSituation(out.CambioTarifa)
	out.SituacionIPU = ipuSituation(rec.Diferencia, ds.HasDiferencia)

	return out
}

// zonaFor maps the cadastral clase code to a zone label.
func zonaFor(clase int) string {
	switch clase {
	case 1:
		return domain.ZonaUrbano
	case 2:
		return domain.ZonaRural
	default:
		return domain.ZonaSinClase
	}
}

// estratoCategory renders the stratum as a category. Zero means no data.
func estratoCategory(estrato int) string {
	if estrato == 0 {
		return domain.EstratoSinDato
	}
	return strconv.Itoa(estrato)
}

// avaluoBand assigns the valuation band label, or empty when the value falls
// outside every band.
func avaluoBand(avaluo float64, ds *domain.Dataset) string {
	if ds.AvaluoEdges == nil {
		return domain.BandSinAvaluo
	}
	idx := BinIndex(avaluo, ds.AvaluoEdges)
	if idx < 0 || idx >= len(ds.AvaluoLabels) {
		return ""
	}
	return ds.AvaluoLabels[idx]
}

// areaBand assigns the fixed construction-area band label.
func areaBand(area float64) string {
	idx := BinIndex(area, AreaEdges)
	if idx < 0 || idx >= len(AreaLabels) {
		return ""
	}
	return AreaLabels[idx]
}

// tarifaSituation classifies the per-mille rate change by sign.
func tarifaSituation(cambio float64) string {
	switch {
	case domain.IsMissing(cambio):
		return domain.TarifaSinDato
	case cambio < 0:
		return domain.TarifaBaja
	case cambio > 0:
		return domain.TarifaSube
	default:
		return domain.TarifaMisma
	}
}

// ipuSituation classifies the tax amount change. Without the DIFERENCIA
// column every record reports no data.
func ipuSituation(diferencia float64, hasDiferencia bool) string {
	if !hasDiferencia || domain.IsMissing(diferencia) {
		return domain.IPUSinDato
	}
	switch {
	case diferencia < 0:
		return domain.IPUBaja
	case diferencia > 0:
		return domain.IPUSube
	default:
		return domain.IPUIgual
	}
}

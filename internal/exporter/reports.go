package exporter

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"ipucli/internal/analysis"
	"ipucli/pkg/contracts/domain"
)

// Report file names under the reports directory.
const (
	DerivedTableFile   = "matriz_derivada.csv"
	SummaryFile        = "resumen_recaudo.csv"
	ValuationBandsFile = "rangos_avaluo.csv"
	AreaBandsFile      = "rangos_area.csv"
	TariffSummaryFile  = "resumen_tarifas.csv"
)

// derivedHeaders mirrors the source sheet columns plus every derived column.
var derivedHeaders = []string{
	"row", "clase", "zona", "ESTRATO", "estrato_cat", "DESTINACION",
	"avaluo2024", "rango_avaluo_2024", "area_const", "rango_area_const",
	"tarifa", "TARIFA PROPUESTA", "cambio_tarifa", "situacion_tarifa",
	"VLR_IPU_2025", "IPU LEY 44", "DIFERENCIA EN EL VALOR", "situacion_ipu",
}

// ExportAll writes the derived table and every view summary concurrently.
func ExportAll(ctx context.Context, writer *CSVWriter, ds *domain.Dataset) error {
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error { return ExportDerivedTable(writer, ds) })
	g.Go(func() error { return ExportSummary(writer, analysis.BuildSummary(ds.Records)) })
	g.Go(func() error {
		return exportDistribution(writer, ValuationBandsFile, "rango_avaluo_2024",
			analysis.BuildValuationBands(ds.Records))
	})
	g.Go(func() error {
		return exportDistribution(writer, AreaBandsFile, "rango_area_const",
			analysis.BuildAreaBands(ds.Records))
	})
	g.Go(func() error { return ExportTariffSummary(writer, analysis.BuildTariffView(ds.Records)) })

	return g.Wait()
}

// ExportDerivedTable writes every record with its derived columns.
func ExportDerivedTable(writer *CSVWriter, ds *domain.Dataset) error {
	records := make([][]string, 0, len(ds.Records))
	for _, rec := range ds.Records {
		records = append(records, []string{
			strconv.Itoa(rec.Row),
			strconv.Itoa(rec.Clase),
			rec.Zona,
			strconv.Itoa(rec.Estrato),
			rec.EstratoCat,
			rec.Destinacion,
			formatNumber(rec.Avaluo2024),
			rec.RangoAvaluo,
			formatNumber(rec.AreaConst),
			rec.RangoArea,
			formatNumber(rec.Tarifa),
			formatNumber(rec.TarifaPropuesta),
			formatNumber(rec.CambioTarifa),
			rec.SituacionTarifa,
			formatNumber(rec.VlrIPU2025),
			formatNumber(rec.IPULey44),
			formatNumber(rec.Diferencia),
			rec.SituacionIPU,
		})
	}
	return writer.WriteSimpleCSV(DerivedTableFile, derivedHeaders, records)
}

// ExportSummary writes the headline metrics and the per-zone breakdown.
func ExportSummary(writer *CSVWriter, view analysis.SummaryView) error {
	headers := []string{"zona", "predios", "recaudo_actual", "recaudo_propuesto"}

	records := [][]string{{
		"TOTAL",
		strconv.Itoa(view.Total),
		formatNumber(view.RecaudoActual),
		formatNumber(view.RecaudoPropuesto),
	}}
	for _, zr := range view.PorZona {
		records = append(records, []string{
			zr.Zona,
			strconv.Itoa(zr.Count),
			formatNumber(zr.RecaudoActual),
			formatNumber(zr.RecaudoPropuesto),
		})
	}
	return writer.WriteSimpleCSV(SummaryFile, headers, records)
}

// ExportTariffSummary writes the zone-destination tariff table.
func ExportTariffSummary(writer *CSVWriter, view analysis.TariffView) error {
	headers := []string{"zona", "DESTINACION", "predios", "tarifa_prom_actual", "tarifa_prom_propuesta"}

	records := make([][]string, 0, len(view.Resumen))
	for _, row := range view.Resumen {
		records = append(records, []string{
			row.Zona,
			row.Destinacion,
			strconv.Itoa(row.Count),
			formatNumber(row.TarifaPromActual),
			formatNumber(row.TarifaPromPropuesta),
		})
	}
	return writer.WriteSimpleCSV(TariffSummaryFile, headers, records)
}

// exportDistribution writes one band distribution.
func exportDistribution(writer *CSVWriter, file, column string, bands []analysis.BandCount) error {
	records := make([][]string, 0, len(bands))
	for _, b := range bands {
		records = append(records, []string{b.Band, strconv.Itoa(b.Count)})
	}
	return writer.WriteSimpleCSV(file, []string{column, "predios"}, records)
}

// formatNumber renders a float for CSV; missing values become empty cells.
func formatNumber(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package exporter

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipucli/pkg/contracts/domain"
)

func testDataset() *domain.Dataset {
	mk := func(row, clase, estrato int, zona, estratoCat, destinacion string, vlr, ley44 float64) domain.Record {
		return domain.Record{
			PropertyRecord: domain.PropertyRecord{
				Row:         row,
				Clase:       clase,
				Estrato:     estrato,
				Destinacion: destinacion,
				Avaluo2024:  10_000_000,
				AreaConst:   50,
				Tarifa:      5,
				VlrIPU2025:  vlr,
				IPULey44:    ley44,
				Diferencia:  math.NaN(),
			},
			Zona:            zona,
			EstratoCat:      estratoCat,
			RangoAvaluo:     "$0 - $20",
			RangoArea:       "35 - 70 m²",
			SituacionTarifa: domain.TarifaBaja,
			SituacionIPU:    domain.IPUSinDato,
		}
	}
	return &domain.Dataset{
		Source: "matrix.xlsx",
		Records: []domain.Record{
			mk(2, 1, 1, domain.ZonaUrbano, "1", "HABITACIONAL", 100, 120),
			mk(3, 2, 0, domain.ZonaRural, domain.EstratoSinDato, "AGROPECUARIO", 200, 180),
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := strings.TrimPrefix(string(data), "\xef\xbb\xbf")
	rows, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportDerivedTable(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, nil)

	require.NoError(t, ExportDerivedTable(writer, testDataset()))

	rows := readCSV(t, filepath.Join(dir, DerivedTableFile))
	require.Len(t, rows, 3)
	assert.Equal(t, derivedHeaders, rows[0])

	first := rows[1]
	assert.Equal(t, "2", first[0])
	assert.Equal(t, domain.ZonaUrbano, first[2])
	assert.Equal(t, "10000000", first[6])
	// Missing DIFERENCIA becomes an empty cell.
	assert.Equal(t, "", first[16])
	assert.Equal(t, domain.IPUSinDato, first[17])
}

func TestExportAll(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, nil)

	require.NoError(t, ExportAll(context.Background(), writer, testDataset()))

	for _, file := range []string{
		DerivedTableFile, SummaryFile, ValuationBandsFile, AreaBandsFile, TariffSummaryFile,
	} {
		_, err := os.Stat(filepath.Join(dir, file))
		assert.NoError(t, err, file)
	}

	summary := readCSV(t, filepath.Join(dir, SummaryFile))
	require.GreaterOrEqual(t, len(summary), 2)
	assert.Equal(t, []string{"TOTAL", "2", "300", "300"}, summary[1])
}

func TestCSVWriterBOM(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, nil)

	require.NoError(t, writer.WriteSimpleCSV("out.csv", []string{"a"}, [][]string{{"1"}}))

	data, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xef\xbb\xbf"))
}

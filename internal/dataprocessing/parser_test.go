package dataprocessing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ipucli/pkg/contracts/domain"
)

// writeWorkbook writes rows into a MATRIZ sheet in a temp xlsx file.
func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "matrix.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

var matrixHeader = []interface{}{
	"NO", "clase", "ESTRATO", "DESTINACION", "avaluo2024", "area_const",
	"tarifa", "TARIFA PROPUESTA", "VLR_IPU_2025", "IPU LEY 44",
}

func TestParseFile(t *testing.T) {
	parser := NewMatrixParser(nil)

	t.Run("parses valid rows", func(t *testing.T) {
		path := writeWorkbook(t, MatrixSheet, [][]interface{}{
			matrixHeader,
			{"", 1, 3, "HABITACIONAL", 25000000, 48.5, 5.5, 6.0, 137500, 150000},
			{"", 2, 0, "AGROPECUARIO", 80000000, 0, 7.0, 6.5, 560000, 520000},
		})

		result, err := parser.ParseFile(context.Background(), path)
		require.NoError(t, err)
		require.Len(t, result.Records, 2)

		first := result.Records[0]
		assert.Equal(t, 2, first.Row)
		assert.Equal(t, 1, first.Clase)
		assert.Equal(t, 3, first.Estrato)
		assert.Equal(t, "HABITACIONAL", first.Destinacion)
		assert.Equal(t, 25000000.0, first.Avaluo2024)
		assert.Equal(t, 48.5, first.AreaConst)
		assert.Equal(t, 5.5, first.Tarifa)
		assert.Equal(t, 6.0, first.TarifaPropuesta)
		assert.False(t, result.HasDiferencia)
	})

	t.Run("excludes only rows marked exactly NO", func(t *testing.T) {
		path := writeWorkbook(t, MatrixSheet, [][]interface{}{
			matrixHeader,
			{"NO", 1, 3, "HABITACIONAL", 25000000, 48.5, 5.5, 6.0, 137500, 150000},
			{"no", 1, 3, "RESIDENCIAL", 30000000, 52.0, 5.5, 6.0, 165000, 180000},
			{"", 2, 2, "COMERCIAL", 40000000, 90, 8.0, 8.0, 320000, 320000},
		})

		result, err := parser.ParseFile(context.Background(), path)
		require.NoError(t, err)

		// The lowercase marker is not an exclusion; that row stays.
		require.Len(t, result.Records, 2)
		assert.Equal(t, "RESIDENCIAL", result.Records[0].Destinacion)
		assert.Equal(t, "COMERCIAL", result.Records[1].Destinacion)
		assert.Equal(t, 1, result.RowsSkipped)
	})

	t.Run("missing cells become NaN and zero", func(t *testing.T) {
		path := writeWorkbook(t, MatrixSheet, [][]interface{}{
			matrixHeader,
			{"", "", "", "SIN DESTINO", "", "", "", "", "", ""},
		})

		result, err := parser.ParseFile(context.Background(), path)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)

		rec := result.Records[0]
		assert.Equal(t, 0, rec.Clase)
		assert.Equal(t, 0, rec.Estrato)
		assert.True(t, domain.IsMissing(rec.Avaluo2024))
		assert.True(t, domain.IsMissing(rec.AreaConst))
		assert.True(t, domain.IsMissing(rec.Tarifa))
		assert.True(t, domain.IsMissing(rec.Diferencia))
	})

	t.Run("tolerates currency formatting", func(t *testing.T) {
		path := writeWorkbook(t, MatrixSheet, [][]interface{}{
			matrixHeader,
			{"", 1, 1, "HABITACIONAL", "$25,000,000", "48.5", "5.5", "6.0", "$137,500", "$150,000"},
		})

		result, err := parser.ParseFile(context.Background(), path)
		require.NoError(t, err)

		assert.Equal(t, 25000000.0, result.Records[0].Avaluo2024)
		assert.Equal(t, 150000.0, result.Records[0].IPULey44)
	})

	t.Run("detects optional DIFERENCIA column", func(t *testing.T) {
		header := append(append([]interface{}{}, matrixHeader...), "DIFERENCIA EN EL VALOR")
		path := writeWorkbook(t, MatrixSheet, [][]interface{}{
			header,
			{"", 1, 1, "HABITACIONAL", 25000000, 48.5, 5.5, 6.0, 137500, 150000, -12500},
		})

		result, err := parser.ParseFile(context.Background(), path)
		require.NoError(t, err)

		assert.True(t, result.HasDiferencia)
		assert.Equal(t, -12500.0, result.Records[0].Diferencia)
	})

	t.Run("trims header whitespace", func(t *testing.T) {
		header := []interface{}{
			" NO ", " clase", "ESTRATO ", "DESTINACION", "avaluo2024 ", " area_const",
			"tarifa", " TARIFA PROPUESTA ", "VLR_IPU_2025", "IPU LEY 44",
		}
		path := writeWorkbook(t, MatrixSheet, [][]interface{}{
			header,
			{"", 1, 1, "HABITACIONAL", 25000000, 48.5, 5.5, 6.0, 137500, 150000},
		})

		result, err := parser.ParseFile(context.Background(), path)
		require.NoError(t, err)
		require.Len(t, result.Records, 1)
	})
}

func TestParseFileErrors(t *testing.T) {
	parser := NewMatrixParser(nil)

	t.Run("missing file", func(t *testing.T) {
		_, err := parser.ParseFile(context.Background(), filepath.Join(t.TempDir(), "absent.xlsx"))
		assert.ErrorIs(t, err, ErrSourceNotFound)
	})

	t.Run("missing MATRIZ sheet", func(t *testing.T) {
		path := writeWorkbook(t, "OTRA", [][]interface{}{matrixHeader})

		_, err := parser.ParseFile(context.Background(), path)
		assert.ErrorIs(t, err, ErrSheetMissing)
	})

	t.Run("missing required column", func(t *testing.T) {
		header := []interface{}{
			"NO", "clase", "ESTRATO", "DESTINACION", "avaluo2024", "area_const",
			"tarifa", "TARIFA PROPUESTA", "VLR_IPU_2025",
		}
		path := writeWorkbook(t, MatrixSheet, [][]interface{}{
			header,
			{"", 1, 1, "HABITACIONAL", 25000000, 48.5, 5.5, 6.0, 137500},
		})

		_, err := parser.ParseFile(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "IPU LEY 44")
	})
}

package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "ipucli/internal/errors"
	"ipucli/pkg/contracts/domain"
)

// MatrixSheet is the only sheet the parser reads.
const MatrixSheet = "MATRIZ"

// Sentinel errors surfaced to the transport layer.
var (
	// ErrSourceNotFound means the spreadsheet file does not exist on disk.
	ErrSourceNotFound = errors.New("matrix source file not found")
	// ErrSheetMissing means the workbook has no MATRIZ sheet.
	ErrSheetMissing = errors.New("sheet MATRIZ not found in workbook")
)

// Expected column headers, matched after trimming surrounding whitespace.
const (
	colNo              = "NO"
	colClase           = "clase"
	colEstrato         = "ESTRATO"
	colDestinacion     = "DESTINACION"
	colAvaluo2024      = "avaluo2024"
	colAreaConst       = "area_const"
	colTarifa          = "tarifa"
	colTarifaPropuesta = "TARIFA PROPUESTA"
	colVlrIPU2025      = "VLR_IPU_2025"
	colIPULey44        = "IPU LEY 44"
	colDiferencia      = "DIFERENCIA EN EL VALOR"
)

// requiredColumns must all be present in the header row.
var requiredColumns = []string{
	colClase, colEstrato, colDestinacion,
	colAvaluo2024, colAreaConst,
	colTarifa, colTarifaPropuesta,
	colVlrIPU2025, colIPULey44,
}

// ParseResult is the raw parse output before derivation.
type ParseResult struct {
	Records       []domain.PropertyRecord
	HasDiferencia bool
	RowsSkipped   int
}

// MatrixParser reads predial records from the MATRIZ sheet of an xlsx workbook.
type MatrixParser struct {
	logger *slog.Logger
}

// NewMatrixParser creates a parser with the given logger
func NewMatrixParser(logger *slog.Logger) *MatrixParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatrixParser{logger: logger}
}

// ParseFile opens the workbook at path and parses the MATRIZ sheet.
// Returns ErrSourceNotFound when the file does not exist.
func (p *MatrixParser) ParseFile(ctx context.Context, path string) (*ParseResult, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, apperrors.NewStorageError("failed to stat matrix file", err).
			WithContext("path", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err).
			WithContext("path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			p.logger.WarnContext(ctx, "failed to close workbook", "path", path, "error", cerr)
		}
	}()

	if idx, _ := f.GetSheetIndex(MatrixSheet); idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSheetMissing, path)
	}

	rows, err := f.GetRows(MatrixSheet)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read MATRIZ sheet", err).
			WithContext("path", path)
	}

	result, err := p.parseRows(ctx, rows)
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "matrix parsed",
		"path", path,
		"records", len(result.Records),
		"skipped", result.RowsSkipped,
		"has_diferencia", result.HasDiferencia,
	)
	return result, nil
}

// parseRows converts the raw sheet rows into property records. The first row
// is the header; each later row becomes one record unless its NO cell excludes
// it.
func (p *MatrixParser) parseRows(ctx context.Context, rows [][]string) (*ParseResult, error) {
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("MATRIZ sheet is empty", nil)
	}

	columnMap := make(map[string]int)
	for i, header := range rows[0] {
		columnMap[strings.TrimSpace(header)] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := columnMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("MATRIZ header is missing columns: %s", strings.Join(missing, ", ")), nil)
	}

	_, hasNo := columnMap[colNo]
	_, hasDiferencia := columnMap[colDiferencia]

	getString := func(row []string, col string) string {
		idx, ok := columnMap[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	// parseFloat tolerates currency formatting; missing or unparseable
	// cells become NaN.
	parseFloat := func(row []string, col string) float64 {
		s := getString(row, col)
		if s == "" {
			return math.NaN()
		}
		s = strings.ReplaceAll(s, "$", "")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, "%", "")
		s = strings.TrimSpace(s)
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return v
	}

	// parseInt treats missing or unparseable cells as zero, the "no data"
	// code for clase and estrato.
	parseInt := func(row []string, col string) int {
		s := getString(row, col)
		if s == "" {
			return 0
		}
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
		return 0
	}

	result := &ParseResult{HasDiferencia: hasDiferencia}

	for i, row := range rows[1:] {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		sheetRow := i + 2

		if len(row) == 0 {
			result.RowsSkipped++
			continue
		}

		// Only the exact marker "NO" excludes a row; any other content
		// in the column, lowercase variants included, is kept as data.
		if hasNo && getString(row, colNo) == "NO" {
			result.RowsSkipped++
			continue
		}

		rec := domain.PropertyRecord{
			Row:             sheetRow,
			Clase:           parseInt(row, colClase),
			Estrato:         parseInt(row, colEstrato),
			Destinacion:     getString(row, colDestinacion),
			Avaluo2024:      parseFloat(row, colAvaluo2024),
			AreaConst:       parseFloat(row, colAreaConst),
			Tarifa:          parseFloat(row, colTarifa),
			TarifaPropuesta: parseFloat(row, colTarifaPropuesta),
			VlrIPU2025:      parseFloat(row, colVlrIPU2025),
			IPULey44:        parseFloat(row, colIPULey44),
			Diferencia:      math.NaN(),
		}
		if hasDiferencia {
			rec.Diferencia = parseFloat(row, colDiferencia)
		}

		result.Records = append(result.Records, rec)
	}

	return result, nil
}

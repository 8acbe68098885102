// Command processor runs the analysis pipeline offline: it loads the matrix
// spreadsheet, derives the classification columns and writes the derived
// table and every view summary as CSV reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ipucli/internal/config"
	"ipucli/internal/dataprocessing"
	"ipucli/internal/exporter"
	"ipucli/internal/infrastructure"
)

func main() {
	in := flag.String("in", "", "matrix .xlsx file (defaults to the configured matrix path)")
	out := flag.String("out", "", "output directory for CSV reports (defaults to the configured reports dir)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall processing timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	source := cfg.Paths.MatrixFile
	if *in != "" {
		source = *in
	}
	reportsDir := cfg.Paths.ReportsDir
	if *out != "" {
		reportsDir = *out
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, logger, source, reportsDir); err != nil {
		logger.Error("processing failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, source, reportsDir string) error {
	start := time.Now()

	parser := dataprocessing.NewMatrixParser(logger)
	parsed, err := parser.ParseFile(ctx, source)
	if err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}

	ds := dataprocessing.BuildDataset(source, parsed)

	writer := exporter.NewCSVWriter(reportsDir, logger)
	if err := exporter.ExportAll(ctx, writer, &ds); err != nil {
		return fmt.Errorf("export reports: %w", err)
	}

	logger.Info("reports written",
		slog.String("source", source),
		slog.String("reports_dir", reportsDir),
		slog.Int("records", len(ds.Records)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

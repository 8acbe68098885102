package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ipucli/internal/analysis"
	"ipucli/internal/dataprocessing"
	"ipucli/internal/infrastructure"
	"ipucli/pkg/contracts/domain"
)

// DatasetService loads the matrix spreadsheet, derives the analysis table and
// memoizes the result per source path. All view methods operate on the cached
// dataset, so repeated dashboard requests never re-read the file.
type DatasetService struct {
	parser  *dataprocessing.MatrixParser
	logger  *slog.Logger
	metrics *infrastructure.Metrics

	mu    sync.Mutex
	cache map[string]*domain.Dataset
}

// NewDatasetService creates the service with its parser and logger.
func NewDatasetService(logger *slog.Logger, metrics *infrastructure.Metrics) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "dataset_service"))

	return &DatasetService{
		parser:  dataprocessing.NewMatrixParser(logger),
		logger:  logger,
		metrics: metrics,
		cache:   make(map[string]*domain.Dataset),
	}
}

// Load returns the derived dataset for the given source path, parsing and
// deriving on first use and serving the memoized table afterwards.
func (s *DatasetService) Load(ctx context.Context, source string) (*domain.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ds, ok := s.cache[source]; ok {
		s.metrics.RecordDatasetLoad(ctx, source, 0, true, nil)
		return ds, nil
	}
	return s.loadLocked(ctx, source)
}

// Reload discards any cached dataset for the source and parses it again.
func (s *DatasetService) Reload(ctx context.Context, source string) (*domain.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, source)
	return s.loadLocked(ctx, source)
}

// loadLocked parses and derives under the service mutex.
func (s *DatasetService) loadLocked(ctx context.Context, source string) (*domain.Dataset, error) {
	start := time.Now()

	parsed, err := s.parser.ParseFile(ctx, source)
	if err != nil {
		s.metrics.RecordDatasetLoad(ctx, source, time.Since(start), false, err)
		s.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("source", source),
			slog.String("error", err.Error()))
		return nil, err
	}

	ds := dataprocessing.BuildDataset(source, parsed)
	s.cache[source] = &ds

	s.metrics.RecordDatasetLoad(ctx, source, time.Since(start), false, nil)
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", source),
		slog.Int("records", len(ds.Records)),
		slog.Int("bands", len(ds.AvaluoLabels)),
		slog.Duration("duration", time.Since(start)))
	return &ds, nil
}

// filtered loads the dataset and applies the criteria.
func (s *DatasetService) filtered(ctx context.Context, source string, c domain.FilterCriteria) ([]domain.Record, error) {
	ds, err := s.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return analysis.Filter(ds.Records, c)
}

// Summary computes the headline metrics view over the filtered subset.
func (s *DatasetService) Summary(ctx context.Context, source string, c domain.FilterCriteria) (*analysis.SummaryView, error) {
	records, err := s.filtered(ctx, source, c)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFilterQuery(ctx, "summary")
	view := analysis.BuildSummary(records)
	return &view, nil
}

// ValuationBands computes the valuation band distribution over the filtered
// subset.
func (s *DatasetService) ValuationBands(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.BandCount, error) {
	records, err := s.filtered(ctx, source, c)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFilterQuery(ctx, "valuation_bands")
	return analysis.BuildValuationBands(records), nil
}

// AreaBands computes the construction area band distribution.
func (s *DatasetService) AreaBands(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.BandCount, error) {
	records, err := s.filtered(ctx, source, c)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFilterQuery(ctx, "area_bands")
	return analysis.BuildAreaBands(records), nil
}

// Strata computes the stratum scatter points.
func (s *DatasetService) Strata(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.StratumPoint, error) {
	records, err := s.filtered(ctx, source, c)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFilterQuery(ctx, "strata")
	return analysis.BuildStrataPoints(records), nil
}

// Tariffs computes the tariff situation view.
func (s *DatasetService) Tariffs(ctx context.Context, source string, c domain.FilterCriteria) (*analysis.TariffView, error) {
	records, err := s.filtered(ctx, source, c)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFilterQuery(ctx, "tariffs")
	view := analysis.BuildTariffView(records)
	return &view, nil
}

// FilterOptions discovers the selectable filter values from the full dataset.
func (s *DatasetService) FilterOptions(ctx context.Context, source string) (*analysis.FilterOptions, error) {
	ds, err := s.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	opts := analysis.BuildFilterOptions(ds)
	return &opts, nil
}

// Aggregate runs an ad-hoc group-by over the filtered subset.
func (s *DatasetService) Aggregate(ctx context.Context, source string, c domain.FilterCriteria,
	keys []string, agg analysis.Aggregation, measure string) ([]analysis.GroupRow, error) {

	records, err := s.filtered(ctx, source, c)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFilterQuery(ctx, "aggregate")
	return analysis.GroupBy(records, keys, agg, measure)
}

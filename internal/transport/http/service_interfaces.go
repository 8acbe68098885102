package http

import (
	"context"

	"ipucli/internal/analysis"
	"ipucli/internal/services"
	"ipucli/pkg/contracts/domain"
)

// DashboardService is the view-computation interface the dashboard handler
// depends on. Implemented by services.DatasetService.
type DashboardService interface {
	Load(ctx context.Context, source string) (*domain.Dataset, error)
	Reload(ctx context.Context, source string) (*domain.Dataset, error)
	Summary(ctx context.Context, source string, c domain.FilterCriteria) (*analysis.SummaryView, error)
	ValuationBands(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.BandCount, error)
	AreaBands(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.BandCount, error)
	Strata(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.StratumPoint, error)
	Tariffs(ctx context.Context, source string, c domain.FilterCriteria) (*analysis.TariffView, error)
	FilterOptions(ctx context.Context, source string) (*analysis.FilterOptions, error)
	Aggregate(ctx context.Context, source string, c domain.FilterCriteria,
		keys []string, agg analysis.Aggregation, measure string) ([]analysis.GroupRow, error)
}

// HealthChecker is the health-service interface used by the health handler.
type HealthChecker interface {
	Health(ctx context.Context) services.HealthStatus
	Ready(ctx context.Context) bool
	Alive(ctx context.Context) bool
	Version() services.VersionInfo
}

// ReloadNotifier pushes dataset-reload events to connected clients.
type ReloadNotifier interface {
	BroadcastReload(ctx context.Context, source string, records int)
}

package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipucli/internal/analysis"
	"ipucli/internal/dataprocessing"
	apperrors "ipucli/internal/errors"
	"ipucli/pkg/contracts/domain"
)

// stubService returns canned views and records the criteria it was called
// with.
type stubService struct {
	lastCriteria domain.FilterCriteria
	err          error
	reloaded     bool
}

func (s *stubService) Load(ctx context.Context, source string) (*domain.Dataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Dataset{Source: source}, nil
}

func (s *stubService) Reload(ctx context.Context, source string) (*domain.Dataset, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.reloaded = true
	return &domain.Dataset{
		Source:   source,
		LoadedAt: time.Now(),
		Records:  make([]domain.Record, 7),
	}, nil
}

func (s *stubService) Summary(ctx context.Context, source string, c domain.FilterCriteria) (*analysis.SummaryView, error) {
	s.lastCriteria = c
	if s.err != nil {
		return nil, s.err
	}
	return &analysis.SummaryView{Total: 42, RecaudoActual: 100, RecaudoPropuesto: 130, Delta: 30}, nil
}

func (s *stubService) ValuationBands(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.BandCount, error) {
	s.lastCriteria = c
	if s.err != nil {
		return nil, s.err
	}
	return []analysis.BandCount{{Band: "$0 - $10", Count: 5}}, nil
}

func (s *stubService) AreaBands(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.BandCount, error) {
	s.lastCriteria = c
	if s.err != nil {
		return nil, s.err
	}
	return []analysis.BandCount{{Band: "0 - 35 m²", Count: 3}}, nil
}

func (s *stubService) Strata(ctx context.Context, source string, c domain.FilterCriteria) ([]analysis.StratumPoint, error) {
	s.lastCriteria = c
	if s.err != nil {
		return nil, s.err
	}
	return []analysis.StratumPoint{{Estrato: "1", Zona: domain.ZonaUrbano, Avaluo: 10}}, nil
}

func (s *stubService) Tariffs(ctx context.Context, source string, c domain.FilterCriteria) (*analysis.TariffView, error) {
	s.lastCriteria = c
	if s.err != nil {
		return nil, s.err
	}
	return &analysis.TariffView{}, nil
}

func (s *stubService) FilterOptions(ctx context.Context, source string) (*analysis.FilterOptions, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &analysis.FilterOptions{Zonas: []string{domain.ZonaUrbano}}, nil
}

func (s *stubService) Aggregate(ctx context.Context, source string, c domain.FilterCriteria,
	keys []string, agg analysis.Aggregation, measure string) ([]analysis.GroupRow, error) {
	s.lastCriteria = c
	if s.err != nil {
		return nil, s.err
	}
	return []analysis.GroupRow{{Keys: keys, Count: 1, Value: 9}}, nil
}

type stubNotifier struct {
	calls int
}

func (n *stubNotifier) BroadcastReload(ctx context.Context, source string, records int) {
	n.calls++
}

func newTestHandler(svc DashboardService, notifier ReloadNotifier) *DashboardHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDashboardHandler(svc, notifier, "matrix.xlsx", logger,
		apperrors.NewErrorHandler(logger, false))
}

func doRequest(t *testing.T, h *DashboardHandler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestDashboardHandlerSummary(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(svc, nil)

	rec := doRequest(t, h, http.MethodGet, "/summary")

	require.Equal(t, http.StatusOK, rec.Code)

	var view analysis.SummaryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 42, view.Total)
	assert.Equal(t, 30.0, view.Delta)
}

func TestDashboardHandlerCriteriaDecoding(t *testing.T) {
	t.Run("absent parameters mean nil selections", func(t *testing.T) {
		svc := &stubService{}
		doRequest(t, newTestHandler(svc, nil), http.MethodGet, "/summary")

		assert.Nil(t, svc.lastCriteria.Zonas)
		assert.Nil(t, svc.lastCriteria.AvaluoMin)
	})

	t.Run("comma separated values", func(t *testing.T) {
		svc := &stubService{}
		doRequest(t, newTestHandler(svc, nil), http.MethodGet,
			"/summary?zonas=URBANO,RURAL&estratos=1,2")

		assert.Equal(t, []string{"URBANO", "RURAL"}, svc.lastCriteria.Zonas)
		assert.Equal(t, []string{"1", "2"}, svc.lastCriteria.Estratos)
	})

	t.Run("empty parameter is an explicit empty selection", func(t *testing.T) {
		svc := &stubService{}
		doRequest(t, newTestHandler(svc, nil), http.MethodGet, "/summary?zonas=")

		require.NotNil(t, svc.lastCriteria.Zonas)
		assert.Empty(t, svc.lastCriteria.Zonas)
	})

	t.Run("range bounds", func(t *testing.T) {
		svc := &stubService{}
		doRequest(t, newTestHandler(svc, nil), http.MethodGet,
			"/summary?avaluo_min=1000&area_max=120")

		require.NotNil(t, svc.lastCriteria.AvaluoMin)
		assert.Equal(t, 1000.0, *svc.lastCriteria.AvaluoMin)
		require.NotNil(t, svc.lastCriteria.AreaMax)
		assert.Equal(t, 120.0, *svc.lastCriteria.AreaMax)
	})

	t.Run("non numeric bound is a 400", func(t *testing.T) {
		rec := doRequest(t, newTestHandler(&stubService{}, nil), http.MethodGet,
			"/summary?avaluo_min=abc")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})

	t.Run("negative bound fails validation", func(t *testing.T) {
		rec := doRequest(t, newTestHandler(&stubService{}, nil), http.MethodGet,
			"/summary?avaluo_min=-5")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDashboardHandlerViews(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(svc, nil)

	for _, target := range []string{
		"/valuation-bands", "/area-bands", "/strata", "/tariffs", "/filter-options",
	} {
		rec := doRequest(t, h, http.MethodGet, target)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json", target)
	}
}

func TestDashboardHandlerAggregate(t *testing.T) {
	svc := &stubService{}
	rec := doRequest(t, newTestHandler(svc, nil), http.MethodGet,
		"/aggregate?by=zona&agg=sum&measure=VLR_IPU_2025")

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Rows []analysis.GroupRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)
	assert.Equal(t, []string{"zona"}, body.Rows[0].Keys)
}

func TestDashboardHandlerReload(t *testing.T) {
	svc := &stubService{}
	notifier := &stubNotifier{}
	rec := doRequest(t, newTestHandler(svc, notifier), http.MethodPost, "/reload")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.reloaded)
	assert.Equal(t, 1, notifier.calls)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "reloaded", body["status"])
	assert.Equal(t, float64(7), body["records"])
}

func TestDashboardHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"source not found", dataprocessing.ErrSourceNotFound, http.StatusNotFound, apperrors.TypeSourceNotFound},
		{"sheet missing", dataprocessing.ErrSheetMissing, http.StatusUnprocessableEntity, apperrors.TypeSheetMissing},
		{"invalid range", analysis.ErrInvalidRange, http.StatusBadRequest, apperrors.TypeInvalidRange},
		{"invalid measure", analysis.ErrInvalidMeasure, http.StatusBadRequest, apperrors.TypeInvalidMeasure},
		{"invalid group key", analysis.ErrInvalidGroupKey, http.StatusBadRequest, apperrors.TypeInvalidMeasure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newTestHandler(&stubService{err: tt.err}, nil),
				http.MethodGet, "/summary")

			assert.Equal(t, tt.wantStatus, rec.Code)

			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem["type"])
		})
	}
}

package http

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"ipucli/internal/analysis"
	"ipucli/internal/dataprocessing"
	apperrors "ipucli/internal/errors"
	"ipucli/pkg/contracts/domain"
)

// DashboardHandler serves the dashboard view endpoints over the configured
// matrix source.
type DashboardHandler struct {
	service      DashboardService
	notifier     ReloadNotifier
	source       string
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
	validate     *validator.Validate
}

// NewDashboardHandler creates a dashboard handler bound to one source file.
func NewDashboardHandler(service DashboardService, notifier ReloadNotifier, source string,
	logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *DashboardHandler {

	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		service:      service,
		notifier:     notifier,
		source:       source,
		logger:       logger.With(slog.String("handler", "dashboard")),
		errorHandler: errorHandler,
		validate:     validator.New(),
	}
}

// Routes returns the dashboard API router.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/summary", h.handleSummary)
	r.Get("/valuation-bands", h.handleValuationBands)
	r.Get("/area-bands", h.handleAreaBands)
	r.Get("/strata", h.handleStrata)
	r.Get("/tariffs", h.handleTariffs)
	r.Get("/filter-options", h.handleFilterOptions)
	r.Get("/aggregate", h.handleAggregate)
	r.Post("/reload", h.handleReload)

	return r
}

// criteriaFromQuery decodes filter criteria from query parameters. An absent
// categorical parameter means "all values"; a present but empty one is an
// explicit empty selection.
func criteriaFromQuery(r *http.Request) (domain.FilterCriteria, error) {
	q := r.URL.Query()
	c := domain.FilterCriteria{
		Zonas:         listParam(q, "zonas"),
		Estratos:      listParam(q, "estratos"),
		Destinaciones: listParam(q, "destinaciones"),
	}

	var err error
	if c.AvaluoMin, err = floatParam(q, "avaluo_min"); err != nil {
		return c, err
	}
	if c.AvaluoMax, err = floatParam(q, "avaluo_max"); err != nil {
		return c, err
	}
	if c.AreaMin, err = floatParam(q, "area_min"); err != nil {
		return c, err
	}
	if c.AreaMax, err = floatParam(q, "area_max"); err != nil {
		return c, err
	}
	return c, nil
}

func listParam(q map[string][]string, name string) []string {
	values, present := q[name]
	if !present {
		return nil
	}
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func floatParam(q map[string][]string, name string) (*float64, error) {
	values, present := q[name]
	if !present || len(values) == 0 || values[0] == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return nil, apperrors.NewValidationError("parameter " + name + " must be a number")
	}
	return &v, nil
}

// decodeCriteria parses and validates the filter criteria, responding with a
// problem document on failure.
func (h *DashboardHandler) decodeCriteria(w http.ResponseWriter, r *http.Request) (domain.FilterCriteria, bool) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return c, false
	}
	if err := h.validate.Struct(c); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError(err.Error()))
		return c, false
	}
	return c, true
}

func (h *DashboardHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeCriteria(w, r)
	if !ok {
		return
	}

	view, err := h.service.Summary(r.Context(), h.source, c)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

func (h *DashboardHandler) handleValuationBands(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeCriteria(w, r)
	if !ok {
		return
	}

	bands, err := h.service.ValuationBands(r.Context(), h.source, c)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"bands": bands})
}

func (h *DashboardHandler) handleAreaBands(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeCriteria(w, r)
	if !ok {
		return
	}

	bands, err := h.service.AreaBands(r.Context(), h.source, c)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"bands": bands})
}

func (h *DashboardHandler) handleStrata(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeCriteria(w, r)
	if !ok {
		return
	}

	points, err := h.service.Strata(r.Context(), h.source, c)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"points": points})
}

func (h *DashboardHandler) handleTariffs(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeCriteria(w, r)
	if !ok {
		return
	}

	view, err := h.service.Tariffs(r.Context(), h.source, c)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

func (h *DashboardHandler) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.FilterOptions(r.Context(), h.source)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, opts)
}

func (h *DashboardHandler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.decodeCriteria(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	keys := listParam(q, "by")
	agg := analysis.Aggregation(q.Get("agg"))
	if agg == "" {
		agg = analysis.AggCount
	}
	measure := q.Get("measure")

	rows, err := h.service.Aggregate(r.Context(), h.source, c, keys, agg, measure)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"rows": rows})
}

func (h *DashboardHandler) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Reload(r.Context(), h.source)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if h.notifier != nil {
		h.notifier.BroadcastReload(r.Context(), ds.Source, len(ds.Records))
	}

	h.logger.InfoContext(r.Context(), "dataset reloaded",
		slog.String("source", ds.Source),
		slog.Int("records", len(ds.Records)))

	render.JSON(w, r, map[string]interface{}{
		"status":    "reloaded",
		"source":    ds.Source,
		"records":   len(ds.Records),
		"loaded_at": ds.LoadedAt,
	})
}

// handleServiceError maps service sentinels to their problem documents before
// falling back to the generic error handler.
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case stderrors.Is(err, dataprocessing.ErrSourceNotFound):
		h.errorHandler.HandleProblem(w, r, apperrors.NewProblemDetails(
			http.StatusNotFound,
			apperrors.TypeSourceNotFound,
			"Source Not Found",
			"The matrix spreadsheet does not exist: "+h.source,
			r.URL.Path,
		))
	case stderrors.Is(err, dataprocessing.ErrSheetMissing):
		h.errorHandler.HandleProblem(w, r, apperrors.NewProblemDetails(
			http.StatusUnprocessableEntity,
			apperrors.TypeSheetMissing,
			"Sheet Missing",
			"The workbook has no MATRIZ sheet",
			r.URL.Path,
		))
	case stderrors.Is(err, analysis.ErrInvalidRange):
		h.errorHandler.HandleProblem(w, r, apperrors.NewProblemDetails(
			http.StatusBadRequest,
			apperrors.TypeInvalidRange,
			"Invalid Filter Range",
			err.Error(),
			r.URL.Path,
		))
	case stderrors.Is(err, analysis.ErrInvalidMeasure), stderrors.Is(err, analysis.ErrInvalidGroupKey):
		h.errorHandler.HandleProblem(w, r, apperrors.NewProblemDetails(
			http.StatusBadRequest,
			apperrors.TypeInvalidMeasure,
			"Invalid Aggregation",
			err.Error(),
			r.URL.Path,
		))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

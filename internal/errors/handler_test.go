package errors

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestErrorHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestHandleErrorAppErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"not found", NewNotFoundError("dataset"), http.StatusNotFound, TypeNotFound},
		{"validation", NewValidationError("bad criteria"), http.StatusBadRequest, TypeValidation},
		{"parsing", NewParsingError("corrupt workbook", nil), http.StatusUnprocessableEntity, TypeSheetMissing},
		{"storage", NewStorageError("disk failure", nil), http.StatusInternalServerError, TypeInternal},
	}

	h := newTestErrorHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/test", nil)

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, problem["type"])
			assert.Equal(t, "/api/test", problem["instance"])
		})
	}
}

func TestHandleErrorContextTimeout(t *testing.T) {
	h := newTestErrorHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/slow", nil)

	h.HandleError(rec, req, context.DeadlineExceeded)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, TypeTimeout, decodeProblem(t, rec)["type"])
}

func TestHandleErrorUnknown(t *testing.T) {
	h := newTestErrorHandler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)

	h.HandleError(rec, req, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, problem["type"])
	// Internal details never leak into the response.
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestProblemExtensions(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeInvalidRange,
		"Invalid Filter Range", "min exceeds max", "/api/dashboard/summary").
		WithExtension("avaluo_min", 100).
		WithExtension("avaluo_max", 50)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(100), decoded["avaluo_min"])
	assert.Equal(t, float64(50), decoded["avaluo_max"])
	assert.Equal(t, TypeInvalidRange, decoded["type"])
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := assert.AnError
	err := NewParsingError("wrapper", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "PARSING")
	assert.Contains(t, err.Error(), "wrapper")
}

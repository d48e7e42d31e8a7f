package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/api/runs/x", nil)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"api error", ErrRunNotFound, http.StatusNotFound, TypeRunNotFound},
		{"run in progress", ErrRunInProgress, http.StatusConflict, TypeRunRunning},
		{"app network error", NewNetworkError("historian down", nil), http.StatusBadGateway, TypeUpstream},
		{"app validation error", NewAppValidationError("bad date"), http.StatusBadRequest, TypeValidation},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problem := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/runs/x", problem.Instance)
		})
	}
}

func TestErrorHandler_HandleError(t *testing.T) {
	h := NewErrorHandler(nil, false)
	req := httptest.NewRequest(http.MethodGet, "/api/reports/latest", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, req, ErrReportNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, "REPORT_NOT_FOUND", body["error_code"])
	assert.Contains(t, body, "trace_id")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "", "").
		WithExtension("field", "date")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "date", body["field"])
	assert.NotContains(t, body, "detail")
	assert.EqualValues(t, 400, body["status"])
}

func TestErrorHandler_RouterFallbacks(t *testing.T) {
	h := NewErrorHandler(nil, false)

	tests := []struct {
		name       string
		serve      func(http.ResponseWriter, *http.Request)
		wantStatus int
		wantType   string
	}{
		{"not found", h.NotFound, http.StatusNotFound, TypeNotFound},
		{"method not allowed", h.MethodNotAllowed, http.StatusMethodNotAllowed, TypeMethod},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			RenderAPIError(w, r, ErrRateLimitExceeded)
		}, http.StatusTooManyRequests, TypeRateLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.serve(w, httptest.NewRequest(http.MethodPut, "/api/runs", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/runs", body["instance"])
		})
	}
}

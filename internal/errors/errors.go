package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render sets the response status for go-chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Errors returned by the runs API
var (
	ErrRunNotFound       = New(http.StatusNotFound, "RUN_NOT_FOUND", "run not found")
	ErrReportNotFound    = New(http.StatusNotFound, "REPORT_NOT_FOUND", "no report has been produced yet")
	ErrRunInProgress     = New(http.StatusConflict, "RUN_IN_PROGRESS", "a run is already in progress")
	ErrRunFinished       = New(http.StatusConflict, "RUN_FINISHED", "run has already finished")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
)

// InvalidRequestWithError reports an undecodable request body
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// NewValidationErrors reports the fields a request failed validation on
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", errs)
}

// FromAppError maps an AppError category onto an HTTP error. Historian failures
// surface as 502 since the fault is upstream.
func FromAppError(err *AppError) *APIError {
	switch err.Type {
	case ErrTypeValidation:
		return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", err.Message, err.Context)
	case ErrTypeNotFound:
		return New(http.StatusNotFound, "NOT_FOUND", err.Message)
	case ErrTypeNetwork, ErrTypeAuth:
		return New(http.StatusBadGateway, "UPSTREAM_FAILED", err.Error())
	default:
		return New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", err.Error())
	}
}

// RenderAPIError writes apiErr as problem details without logging it
func RenderAPIError(w http.ResponseWriter, r *http.Request, apiErr *APIError) {
	respond(w, r, apiProblem(apiErr, r))
}

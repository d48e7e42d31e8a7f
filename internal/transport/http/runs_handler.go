package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	apperrors "tankevents/internal/errors"
	"tankevents/internal/infrastructure"
	"tankevents/internal/operations"
	"tankevents/internal/services"
	"tankevents/pkg/contracts/domain"
)

// RunService is the part of services.RunService the HTTP layer drives
type RunService interface {
	StartRun(ctx context.Context, req services.RunRequest) (string, error)
	GetRun(id string) (*operations.OperationResponse, error)
	ListRuns() []*operations.OperationResponse
	CancelRun(id string) error
	LatestReport() (operations.ReportSummary, *domain.BatchReport, bool)
	Tanks() []domain.TankDefinition
}

// RunsHandler handles report run requests
type RunsHandler struct {
	service  RunService
	errors   *apperrors.ErrorHandler
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(service RunService, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *RunsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RunsHandler{
		service:  service,
		errors:   errorHandler,
		validate: validator.New(),
		logger:   logger.With(slog.String("handler", "runs")),
	}
}

// Routes returns a chi router for the /api/runs endpoints
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.StartRun)
	r.Get("/", h.ListRuns)
	r.Get("/{id}", h.GetRun)
	r.Delete("/{id}", h.CancelRun)
	r.Post("/{id}/cancel", h.CancelRun)
	return r
}

// RunAccepted is the response to a started run
type RunAccepted struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	PollURL string `json:"poll_url"`
}

// StartRun handles POST /api/runs
func (h *RunsHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx, span := infrastructure.StartSpan(r.Context(), "runs_handler.start_run",
		attribute.String("request_id", middleware.GetReqID(r.Context())))
	defer span.End()

	var req services.RunRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			h.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
			return
		}
	}
	if err := h.validate.Struct(req); err != nil {
		h.errors.HandleError(w, r, validationErrors(err))
		return
	}

	id, err := h.service.StartRun(ctx, req)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		h.errors.HandleError(w, r, runError(err))
		return
	}
	span.SetAttributes(attribute.String("operation.id", id))

	h.logger.InfoContext(ctx, "Run accepted",
		slog.String("operation_id", id),
		slog.String("date", req.Date),
		slog.String("input", req.Input))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, RunAccepted{
		ID:      id,
		Status:  string(operations.OperationStatusRunning),
		PollURL: "/api/runs/" + id,
	})
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, runError(err))
		return
	}
	render.JSON(w, r, run)
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.service.ListRuns()
	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"total": len(runs),
	})
}

// CancelRun handles DELETE /api/runs/{id} and POST /api/runs/{id}/cancel
func (h *RunsHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.CancelRun(id); err != nil {
		h.errors.HandleError(w, r, runError(err))
		return
	}
	h.logger.InfoContext(r.Context(), "Run cancellation requested", slog.String("operation_id", id))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"id": id, "status": "cancelling"})
}

// LatestReport handles GET /api/reports/latest
func (h *RunsHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	summary, report, ok := h.service.LatestReport()
	if !ok {
		h.errors.HandleError(w, r, apperrors.ErrReportNotFound)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"summary": summary,
		"records": report.Records,
		"density": report.Density,
	})
}

// ListTanks handles GET /api/tanks
func (h *RunsHandler) ListTanks(w http.ResponseWriter, r *http.Request) {
	tanks := h.service.Tanks()
	render.JSON(w, r, map[string]interface{}{
		"tanks": tanks,
		"total": len(tanks),
	})
}

// runError maps operation errors onto API errors
func runError(err error) error {
	switch {
	case errors.Is(err, operations.ErrOperationNotFound):
		return apperrors.ErrRunNotFound
	case errors.Is(err, operations.ErrOperationInProgress):
		return apperrors.ErrRunInProgress
	case operations.GetErrorType(err) == operations.ErrorTypeInvalidState:
		return apperrors.ErrRunFinished
	}
	return err
}

func validationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.InvalidRequestWithError(err)
	}
	out := make([]apperrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: "failed on the '" + fe.Tag() + "' rule",
		})
	}
	return apperrors.NewValidationErrors(out)
}

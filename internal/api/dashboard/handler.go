package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/futig/dashboard-backend/internal/entity"
	"github.com/futig/dashboard-backend/internal/pkg/logger"
	"github.com/futig/dashboard-backend/internal/pkg/response"
	pkghttp "github.com/futig/dashboard-backend/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const defaultReportDays = 7

type Handler struct {
	metrics  MetricsUsecase
	sessions SessionsUsecase
	populate PopulateManager
	reports  ReportsUsecase
	email    EmailService
	auth     AuthConnector
	tokenTTL time.Duration
}

func NewHandler(
	metrics MetricsUsecase,
	sessions SessionsUsecase,
	populateManager PopulateManager,
	reports ReportsUsecase,
	email EmailService,
	auth AuthConnector,
	tokenTTL time.Duration,
) *Handler {
	return &Handler{
		metrics:  metrics,
		sessions: sessions,
		populate: populateManager,
		reports:  reports,
		email:    email,
		auth:     auth,
		tokenTTL: tokenTTL,
	}
}

// Login handles POST /login - proxy credentials to the upstream service
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Login")

	var req entity.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	resp, err := h.auth.Login(ctx, req.Email, req.Password, h.tokenTTL)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, resp)
}

// Snapshot handles GET /dashboard/snapshot - full dashboard view model
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Snapshot")

	snap, err := h.metrics.Snapshot(ctx)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, snap)
}

// Refresh handles POST /dashboard/refresh - force a full snapshot reload
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Refresh")

	snap, err := h.metrics.Refresh(ctx)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, snap)
}

// Users handles GET /dashboard/users - the user directory, optionally
// sorted by recent_session or center_name
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Users")

	users, err := h.metrics.Users(ctx, r.URL.Query().Get("sort_by"))
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, users)
}

// UpstreamHealth handles GET /dashboard/upstream-health - reachability
// probe against the upstream service
func (h *Handler) UpstreamHealth(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UpstreamHealth")

	if err := h.auth.Health(ctx); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, map[string]string{"upstream": "healthy"})
}

// UserSessions handles GET /dashboard/users/{id}/sessions - session
// history for one user, optionally exported as CSV
func (h *Handler) UserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("user_id", userID),
		zap.String("action", "UserSessions"),
	)

	details, err := h.sessions.UserSessions(ctx, userID)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		csv, err := h.sessions.ExportCSV(details)
		if err != nil {
			h.handleError(ctx, w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="sessions-`+userID+`.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(csv))
		return
	}

	response.Success(w, toSessionDTOs(details))
}

// UpdateIgnore handles POST /dashboard/users/{id}/ignore
func (h *Handler) UpdateIgnore(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("user_id", userID),
		zap.String("action", "UpdateIgnore"),
	)

	var req entity.UpdateIgnoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.metrics.SetIgnoreStatus(ctx, userID, req.Ignore); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, map[string]bool{"ignore": req.Ignore})
}

// UpdateNotes handles POST /dashboard/users/{id}/notes
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("user_id", userID),
		zap.String("action", "UpdateNotes"),
	)

	var req entity.UpdateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.metrics.SetNotes(ctx, userID, req.Notes); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, map[string]string{"notes": req.Notes})
}

// UpdateExtensionVersion handles POST /dashboard/users/{id}/extension-version
func (h *Handler) UpdateExtensionVersion(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("user_id", userID),
		zap.String("action", "UpdateExtensionVersion"),
	)

	var req entity.UpdateExtensionVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Version == "" {
		response.Error(w, http.StatusBadRequest, "version is required")
		return
	}

	if err := h.metrics.SetExtensionVersion(ctx, userID, req.Version); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, map[string]string{"version": req.Version})
}

// TestPopulate handles POST /dashboard/populate/test - dry run, no
// upstream writes and no job
func (h *Handler) TestPopulate(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "TestPopulate")

	var req entity.TestPopulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	detail := h.findSession(ctx, w, req.UserID, req.SessionID, req.WorkflowID)
	if detail == nil {
		return
	}

	result, err := h.populate.TestPopulate(ctx, req.UserID, detail, req.EditedQuestions)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, result)
}

// StartPopulate handles POST /dashboard/populate/start - save edited
// questions, trigger regeneration and begin polling
func (h *Handler) StartPopulate(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "StartPopulate")

	var req entity.StartPopulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	detail := h.findSession(ctx, w, req.UserID, req.SessionID, req.WorkflowID)
	if detail == nil {
		return
	}

	job, err := h.populate.StartJob(ctx, req.UserID, detail, req.EditedQuestions)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "populate job started",
		zap.String("job_id", job.ID),
		zap.String("session_id", job.SessionID),
		zap.String("workflow_id", job.WorkflowID),
	)

	response.Accepted(w, job)
}

// PopulateJob handles GET /dashboard/populate/{job_id} - current job state
func (h *Handler) PopulateJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("job_id", jobID),
		zap.String("action", "PopulateJob"),
	)

	job, err := h.populate.Job(jobID)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, job)
}

// CancelPopulateJob handles POST /dashboard/populate/{job_id}/cancel.
// Only local polling stops; the upstream workflow keeps running.
func (h *Handler) CancelPopulateJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("job_id", jobID),
		zap.String("action", "CancelPopulateJob"),
	)

	if err := h.populate.CancelJob(jobID); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.NoContent(w)
}

// ClinicalNotesReport handles GET /dashboard/reports/clinical-notes
func (h *Handler) ClinicalNotesReport(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ClinicalNotesReport")

	center := r.URL.Query().Get("center")
	format := entity.ReportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatPDF
	}

	days := defaultReportDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "days must be a number")
			return
		}
		days = parsed
	}

	payload, contentType, fileName, err := h.reports.ClinicalNotes(ctx, center, days, format)
	if err != nil {
		h.handleError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// SendOutreachEmail handles POST /dashboard/outreach/email
func (h *Handler) SendOutreachEmail(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "SendOutreachEmail")

	if !h.email.Enabled() {
		response.Error(w, http.StatusServiceUnavailable, "outreach email is not configured")
		return
	}

	var req entity.OutreachEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.email.SendOutreach(ctx, req); err != nil {
		h.handleError(ctx, w, err)
		return
	}

	response.Success(w, map[string]string{"status": "sent"})
}

// findSession resolves the composite session-workflow identity or
// writes the error response itself. A nil return means the response
// has been sent.
func (h *Handler) findSession(ctx context.Context, w http.ResponseWriter, userID, sessionID, workflowID string) *entity.SessionDetail {
	if userID == "" || sessionID == "" || workflowID == "" {
		response.Error(w, http.StatusBadRequest, "user_id, session_id and workflow_id are required")
		return nil
	}

	key := entity.SessionKey{SessionID: sessionID, WorkflowID: workflowID}
	detail, err := h.sessions.FindSession(ctx, userID, key)
	if err != nil {
		h.handleError(ctx, w, err)
		return nil
	}

	return detail
}

// handleError maps domain and transport errors to HTTP responses.
// Auth failures carry a recovery hint so the frontend can prompt for a
// fresh sign-in instead of retrying.
func (h *Handler) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	ctxzap.Error(ctx, "request failed", zap.Error(err))

	if pkghttp.IsAuthError(err) {
		response.ErrorWithRecovery(w, http.StatusUnauthorized,
			"upstream session expired", "Sign in again to continue.")
		return
	}

	switch {
	case errors.Is(err, entity.ErrSessionNotFound),
		errors.Is(err, entity.ErrJobNotFound),
		errors.Is(err, entity.ErrUserNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, entity.ErrNoQuestions),
		errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidParameter),
		errors.Is(err, entity.ErrEmptySubject),
		errors.Is(err, entity.ErrEmptyBody),
		errors.Is(err, entity.ErrUnknownTemplate):
		response.Error(w, http.StatusBadRequest, err.Error())
	default:
		response.ErrorWithRecovery(w, http.StatusBadGateway,
			"upstream request failed", "Retry, or refresh the dashboard.")
	}
}

package report

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/audit"
	"github.com/frahmantamala/expense-workflow/internal/review"
	"github.com/frahmantamala/expense-workflow/internal/transport"
	"github.com/frahmantamala/expense-workflow/pkg/logger"
)

type ServiceAPI interface {
	CreateReport(ctx context.Context, dto CreateReportDTO) (*Report, error)
	UpdateReport(ctx context.Context, reportID int64, dto UpdateReportDTO) (*Report, error)
	SubmitReport(ctx context.Context, reportID int64, dto SubmitReportDTO) (*SubmitResult, error)
	GetExceptionReview(ctx context.Context, reportID int64) (*review.ExceptionReview, error)
	DecideExceptionReview(ctx context.Context, reportID int64, dto DecideExceptionDTO) (*Report, error)
	ApproveReport(ctx context.Context, reportID int64, dto ApprovalDTO) (*Report, error)
	RejectReport(ctx context.Context, reportID int64, dto ApprovalDTO) (*Report, error)
	DeleteDraft(ctx context.Context, reportID, requesterID int64) error
	GetAuditLog(ctx context.Context, reportID int64) ([]*audit.Entry, error)
	GetReport(ctx context.Context, reportID int64) (*Detail, error)
	ListReports(ctx context.Context, q ListQuery) ([]*Summary, error)
	PendingApprovals(ctx context.Context, approverID int64) ([]*Summary, error)
	GetStats(ctx context.Context, submitterID int64) (*Stats, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

type PendingResponse struct {
	Reports []SummaryResponse `json:"reports"`
}

type AuditLogResponse struct {
	Entries []*audit.Entry `json:"entries"`
}

// CreateReport handles POST /reports
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var dto CreateReportDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	created, err := h.Service.CreateReport(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	detail, err := h.Service.GetReport(r.Context(), created.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, NewReportResponse(detail))
}

// ListReports handles GET /reports
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	submitterID, ok := h.QueryID(w, r, "submitter_id")
	if !ok {
		return
	}
	limit, ok := h.queryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := h.queryInt(w, r, "offset")
	if !ok {
		return
	}

	q := ListQuery{
		SubmitterID: submitterID,
		Status:      r.URL.Query().Get("status"),
		Query:       r.URL.Query().Get("q"),
		Sort:        r.URL.Query().Get("sort"),
		Limit:       limit,
		Offset:      offset,
	}
	summaries, err := h.Service.ListReports(r.Context(), q)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	f, _ := q.filter()
	h.WriteJSON(w, http.StatusOK, ListResponse{
		Reports: NewSummaryResponses(summaries),
		Limit:   f.Limit,
		Offset:  f.Offset,
	})
}

// PendingApprovals handles GET /reports/pending?approver_id=
func (h *Handler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	approverID, ok := h.QueryID(w, r, "approver_id")
	if !ok {
		return
	}
	if approverID == 0 {
		h.WriteError(w, http.StatusBadRequest, "approver_id is required")
		return
	}

	summaries, err := h.Service.PendingApprovals(r.Context(), approverID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PendingResponse{Reports: NewSummaryResponses(summaries)})
}

// GetStats handles GET /reports/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	submitterID, ok := h.QueryID(w, r, "submitter_id")
	if !ok {
		return
	}

	stats, err := h.Service.GetStats(r.Context(), submitterID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewStatsResponse(stats))
}

// GetReport handles GET /reports/{id}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.Service.GetReport(r.Context(), reportID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewReportResponse(detail))
}

// UpdateReport handles PUT /reports/{id}
func (h *Handler) UpdateReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto UpdateReportDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	if _, err := h.Service.UpdateReport(r.Context(), reportID, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	detail, err := h.Service.GetReport(r.Context(), reportID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewReportResponse(detail))
}

// DeleteReport handles DELETE /reports/{id}?requester_id=
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	requesterID, ok := h.QueryID(w, r, "requester_id")
	if !ok {
		return
	}

	if err := h.Service.DeleteDraft(r.Context(), reportID, requesterID); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitReport handles POST /reports/{id}/submit
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto SubmitReportDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	result, err := h.Service.SubmitReport(r.Context(), reportID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewTransitionResponse(result.Report, result.Warnings))
}

// GetExceptionReview handles GET /reports/{id}/exception-review
func (h *Handler) GetExceptionReview(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	rv, err := h.Service.GetExceptionReview(r.Context(), reportID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rv)
}

// DecideExceptionReview handles POST /reports/{id}/exception-review/decision
func (h *Handler) DecideExceptionReview(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto DecideExceptionDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	decided, err := h.Service.DecideExceptionReview(r.Context(), reportID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewTransitionResponse(decided, nil))
}

// ApproveReport handles POST /reports/{id}/approve
func (h *Handler) ApproveReport(w http.ResponseWriter, r *http.Request) {
	h.approval(w, r, h.Service.ApproveReport)
}

// RejectReport handles POST /reports/{id}/reject
func (h *Handler) RejectReport(w http.ResponseWriter, r *http.Request) {
	h.approval(w, r, h.Service.RejectReport)
}

func (h *Handler) approval(w http.ResponseWriter, r *http.Request, act func(context.Context, int64, ApprovalDTO) (*Report, error)) {
	reportID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}
	var dto ApprovalDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	decided, err := act(r.Context(), reportID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewTransitionResponse(decided, nil))
}

// GetAuditLog handles GET /reports/{id}/audit
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	reportID, ok := h.IDParam(w, r, "id")
	if !ok {
		return
	}

	entries, err := h.Service.GetAuditLog(r.Context(), reportID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, AuditLogResponse{Entries: entries})
}

func (h *Handler) queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		h.HandleServiceError(w, internal.NewValidationError("invalid "+name, internal.ErrCodeInvalidQuery))
		return 0, false
	}
	return n, true
}

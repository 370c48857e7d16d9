package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/core/common/validation"
	"github.com/frahmantamala/expense-workflow/internal/policy"
	"github.com/frahmantamala/expense-workflow/internal/review"
	"github.com/shopspring/decimal"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 500
	maxDestinationLength = 200
)

type ItemDTO struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

type CreateReportDTO struct {
	SubmitterID   int64     `json:"submitter_id"`
	Title         string    `json:"title"`
	Destination   string    `json:"destination"`
	DepartureDate string    `json:"departure_date,omitempty"`
	ReturnDate    string    `json:"return_date,omitempty"`
	Items         []ItemDTO `json:"items"`
}

// UpdateReportDTO replaces every editable field, including the full item list.
type UpdateReportDTO struct {
	SubmitterID   int64     `json:"submitter_id"`
	Title         string    `json:"title"`
	Destination   string    `json:"destination"`
	DepartureDate string    `json:"departure_date,omitempty"`
	ReturnDate    string    `json:"return_date,omitempty"`
	Items         []ItemDTO `json:"items"`
}

type WarningReasonDTO struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type SubmitReportDTO struct {
	SubmitterID int64              `json:"submitter_id"`
	Reasons     []WarningReasonDTO `json:"reasons"`
}

type DecideExceptionDTO struct {
	ReviewerID   int64                  `json:"reviewer_id"`
	ReviewerRole string                 `json:"reviewer_role"`
	Comment      string                 `json:"comment"`
	Decisions    []review.DecisionInput `json:"decisions"`
}

// ApprovalDTO is shared by approve and reject.
type ApprovalDTO struct {
	ApproverID int64  `json:"approver_id"`
	Comment    string `json:"comment"`
}

// draft is the validated, parsed form of a create or update payload.
type draft struct {
	title       string
	destination string
	departure   *time.Time
	ret         *time.Time
	items       []Item
}

func (dto CreateReportDTO) Validate(maxItemAmount decimal.Decimal) error {
	_, err := dto.draft(maxItemAmount)
	return err
}

func (dto CreateReportDTO) draft(maxItemAmount decimal.Decimal) (*draft, error) {
	if len(dto.Items) == 0 {
		return nil, internal.ErrNoItems
	}
	return parseDraft(dto.SubmitterID, dto.Title, dto.Destination, dto.DepartureDate, dto.ReturnDate, dto.Items, maxItemAmount)
}

func (dto UpdateReportDTO) Validate(maxItemAmount decimal.Decimal) error {
	_, err := dto.draft(maxItemAmount)
	return err
}

func (dto UpdateReportDTO) draft(maxItemAmount decimal.Decimal) (*draft, error) {
	return parseDraft(dto.SubmitterID, dto.Title, dto.Destination, dto.DepartureDate, dto.ReturnDate, dto.Items, maxItemAmount)
}

func parseDraft(submitterID int64, title, destination, departure, ret string, items []ItemDTO, maxItemAmount decimal.Decimal) (*draft, error) {
	v := validation.NewValidator()
	v.Field("submitter_id", submitterID).Required()
	v.Field("title", strings.TrimSpace(title)).Required().MaxLength(maxTitleLength, internal.ErrCodeValidationFailed)
	v.Field("destination", strings.TrimSpace(destination)).MaxLength(maxDestinationLength, internal.ErrCodeValidationFailed)
	v.Field("departure_date", strings.TrimSpace(departure)).Date(internal.ErrCodeInvalidDate)
	v.Field("return_date", strings.TrimSpace(ret)).Date(internal.ErrCodeInvalidDate)

	for i, it := range items {
		prefix := fmt.Sprintf("items[%d].", i)
		v.Field(prefix+"date", strings.TrimSpace(it.Date)).Required().Date(internal.ErrCodeInvalidDate)
		v.Field(prefix+"description", strings.TrimSpace(it.Description)).Required().MaxLength(maxDescriptionLength, internal.ErrCodeInvalidDescription)
		v.Field(prefix+"category", strings.TrimSpace(it.Category)).Required()
		amount := it.Amount
		v.Field(prefix+"amount", amount).Custom(func(interface{}) *internal.AppError {
			return validation.ValidateItemAmount(prefix+"amount", amount, maxItemAmount)
		})
	}

	if err := v.Validate(); err != nil {
		return nil, err
	}

	d := &draft{
		title:       strings.TrimSpace(title),
		destination: strings.TrimSpace(destination),
		items:       make([]Item, len(items)),
	}

	var perr *internal.AppError
	if d.departure, perr = validation.ParseDate("departure_date", departure); perr != nil {
		return nil, perr
	}
	if d.ret, perr = validation.ParseDate("return_date", ret); perr != nil {
		return nil, perr
	}
	if d.departure != nil && d.ret != nil && d.departure.After(*d.ret) {
		return nil, internal.NewValidationError("departure date must not be after return date", internal.ErrCodeInvalidTripDates)
	}

	for i, it := range items {
		date, perr := validation.ParseDate(fmt.Sprintf("items[%d].date", i), it.Date)
		if perr != nil {
			return nil, perr
		}
		d.items[i] = Item{
			Date:        *date,
			Description: strings.TrimSpace(it.Description),
			Amount:      it.Amount.Round(2),
			Category:    strings.TrimSpace(it.Category),
		}
	}

	if err := checkDuplicatePerDiemMeals(d.items); err != nil {
		return nil, err
	}
	return d, nil
}

// checkDuplicatePerDiemMeals allows at most one per-diem meal line with the same description on a date.
func checkDuplicatePerDiemMeals(items []Item) error {
	seen := make(map[string]bool)
	for _, it := range items {
		desc := strings.ToLower(it.Description)
		if !strings.Contains(desc, "per diem") {
			continue
		}
		key := policy.Day(it.Date).Format(validation.DateLayout) + "|" + desc
		if seen[key] {
			return internal.NewValidationError(
				fmt.Sprintf("duplicate per diem meal %q on %s", it.Description, it.Date.Format(validation.DateLayout)),
				internal.ErrCodeDuplicateMeal,
			)
		}
		seen[key] = true
	}
	return nil
}

func (dto SubmitReportDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("submitter_id", dto.SubmitterID).Required()
	for i, r := range dto.Reasons {
		v.Field(fmt.Sprintf("reasons[%d].code", i), strings.TrimSpace(r.Code)).Required()
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// reasons keys justifications by warning code. A later entry for the same code wins.
func (dto SubmitReportDTO) reasons() map[string]string {
	out := make(map[string]string, len(dto.Reasons))
	for _, r := range dto.Reasons {
		out[strings.TrimSpace(r.Code)] = r.Reason
	}
	return out
}

func (dto DecideExceptionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("reviewer_id", dto.ReviewerID).Required()
	v.Field("reviewer_role", dto.ReviewerRole).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto ApprovalDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("approver_id", dto.ApproverID).Required()
	v.Field("comment", dto.Comment).MaxLength(1000, internal.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ItemResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
}

type WarningResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ReportResponse struct {
	ID              int64             `json:"id"`
	Title           string            `json:"title"`
	Status          Status            `json:"status"`
	Destination     string            `json:"destination"`
	DepartureDate   *string           `json:"departure_date"`
	ReturnDate      *string           `json:"return_date"`
	TotalAmount     string            `json:"total_amount"`
	PerDiemDays     int               `json:"per_diem_days"`
	PerDiemRate     string            `json:"per_diem_rate"`
	PerDiemAmount   string            `json:"per_diem_amount"`
	SubmitterID     int64             `json:"submitter_id"`
	SubmitterName   string            `json:"submitter_name"`
	ApproverID      *int64            `json:"approver_id"`
	ApproverName    string            `json:"approver_name,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at"`
	ApprovalComment string            `json:"approval_comment,omitempty"`
	Version         int64             `json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Items           []ItemResponse    `json:"items"`
	Warnings        []WarningResponse `json:"warnings"`
	Flagged         bool              `json:"flagged"`
}

type SummaryResponse struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Status        Status     `json:"status"`
	Destination   string     `json:"destination"`
	TotalAmount   string     `json:"total_amount"`
	PerDiemAmount string     `json:"per_diem_amount"`
	ItemCount     int        `json:"item_count"`
	SubmitterID   int64      `json:"submitter_id"`
	SubmitterName string     `json:"submitter_name"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at"`
	Flagged       bool       `json:"flagged"`
}

type ListResponse struct {
	Reports []SummaryResponse `json:"reports"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

type TransitionResponse struct {
	ID       int64             `json:"id"`
	Status   Status            `json:"status"`
	Version  int64             `json:"version"`
	Warnings []WarningResponse `json:"warnings,omitempty"`
}

type AmountStat struct {
	Key    string `json:"key"`
	Count  int64  `json:"count"`
	Amount string `json:"amount"`
}

type StatsResponse struct {
	ReportCount   int64        `json:"report_count"`
	TotalAmount   string       `json:"total_amount"`
	ApprovedCount int64        `json:"approved_count"`
	RejectedCount int64        `json:"rejected_count"`
	PendingCount  int64        `json:"pending_count"`
	DraftCount    int64        `json:"draft_count"`
	ByStatus      []AmountStat `json:"by_status"`
	ByCategory    []AmountStat `json:"by_category"`
	ByMonth       []AmountStat `json:"by_month"`
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(validation.DateLayout)
	return &s
}

func warningResponses(warnings []policy.Warning) []WarningResponse {
	out := make([]WarningResponse, len(warnings))
	for i, w := range warnings {
		out[i] = WarningResponse{Code: w.Key(), Message: w.Message}
	}
	return out
}

func NewReportResponse(d *Detail) ReportResponse {
	r := d.Report
	items := make([]ItemResponse, len(r.Items))
	for i, it := range r.Items {
		items[i] = ItemResponse{
			ID:          it.ID,
			Date:        it.Date.Format(validation.DateLayout),
			Description: it.Description,
			Amount:      it.Amount.StringFixed(2),
			Category:    it.Category,
		}
	}
	return ReportResponse{
		ID:              r.ID,
		Title:           r.Title,
		Status:          r.Status,
		Destination:     r.Destination,
		DepartureDate:   dateString(r.DepartureDate),
		ReturnDate:      dateString(r.ReturnDate),
		TotalAmount:     r.TotalAmount.StringFixed(2),
		PerDiemDays:     r.PerDiemDays,
		PerDiemRate:     r.PerDiemRate.StringFixed(2),
		PerDiemAmount:   r.PerDiemAmount.StringFixed(2),
		SubmitterID:     r.SubmitterID,
		SubmitterName:   d.SubmitterName,
		ApproverID:      r.ApproverID,
		ApproverName:    d.ApproverName,
		ApprovedAt:      r.ApprovedAt,
		ApprovalComment: r.ApprovalComment,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Items:           items,
		Warnings:        warningResponses(d.Warnings),
		Flagged:         len(d.Warnings) > 0,
	}
}

func NewSummaryResponses(summaries []*Summary) []SummaryResponse {
	out := make([]SummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = SummaryResponse{
			ID:            s.Report.ID,
			Title:         s.Report.Title,
			Status:        s.Report.Status,
			Destination:   s.Report.Destination,
			TotalAmount:   s.Report.TotalAmount.StringFixed(2),
			PerDiemAmount: s.Report.PerDiemAmount.StringFixed(2),
			ItemCount:     len(s.Report.Items),
			SubmitterID:   s.Report.SubmitterID,
			SubmitterName: s.SubmitterName,
			CreatedAt:     s.Report.CreatedAt,
			ApprovedAt:    s.Report.ApprovedAt,
			Flagged:       s.Flagged,
		}
	}
	return out
}

func NewTransitionResponse(r *Report, warnings []policy.Warning) TransitionResponse {
	resp := TransitionResponse{ID: r.ID, Status: r.Status, Version: r.Version}
	if len(warnings) > 0 {
		resp.Warnings = warningResponses(warnings)
	}
	return resp
}

func amountStats(in []Bucket) []AmountStat {
	out := make([]AmountStat, len(in))
	for i, b := range in {
		out[i] = AmountStat{Key: b.Key, Count: b.Count, Amount: b.Amount.StringFixed(2)}
	}
	return out
}

func NewStatsResponse(s *Stats) StatsResponse {
	return StatsResponse{
		ReportCount:   s.ReportCount,
		TotalAmount:   s.TotalAmount.StringFixed(2),
		ApprovedCount: s.ApprovedCount,
		RejectedCount: s.RejectedCount,
		PendingCount:  s.PendingCount,
		DraftCount:    s.DraftCount,
		ByStatus:      amountStats(s.ByStatus),
		ByCategory:    amountStats(s.ByCategory),
		ByMonth:       amountStats(s.ByMonth),
	}
}

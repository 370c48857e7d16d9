package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/expense-workflow/internal"
	reportDatamodel "github.com/frahmantamala/expense-workflow/internal/core/datamodel/report"
	"github.com/frahmantamala/expense-workflow/internal/policy"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusManagerReview    Status = "MANAGER_REVIEW"
	StatusCFOReview        Status = "CFO_REVIEW"
	StatusCEOReview        Status = "CEO_REVIEW"
	StatusCFOSpecialReview Status = "CFO_SPECIAL_REVIEW"
	StatusCEOSpecialReview Status = "CEO_SPECIAL_REVIEW"
	StatusChangesRequested Status = "CHANGES_REQUESTED"
	StatusApproved         Status = "APPROVED"
	StatusRejected         Status = "REJECTED"
)

// Statuses is the closed set of persisted status tokens.
var Statuses = []Status{
	StatusDraft,
	StatusManagerReview,
	StatusCFOReview,
	StatusCEOReview,
	StatusCFOSpecialReview,
	StatusCEOSpecialReview,
	StatusChangesRequested,
	StatusApproved,
	StatusRejected,
}

// ParseStatus accepts the nine workflow tokens in any letter case and nothing else.
func ParseStatus(s string) (Status, error) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if st == candidate {
			return st, nil
		}
	}
	return "", internal.NewValidationError(fmt.Sprintf("unknown report status %q", s), internal.ErrCodeInvalidStatus)
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Editable statuses are the ones in which the submitter may change, submit or delete the report.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusChangesRequested
}

type Item struct {
	ID          int64
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    string
}

type Report struct {
	ID              int64
	Title           string
	Status          Status
	Destination     string
	DepartureDate   *time.Time
	ReturnDate      *time.Time
	TotalAmount     decimal.Decimal
	PerDiemDays     int
	PerDiemRate     decimal.Decimal
	PerDiemAmount   decimal.Decimal
	SubmitterID     int64
	ApproverID      *int64
	ApprovedAt      *time.Time
	ApprovalComment string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Items           []Item
}

func (r *Report) Trip() policy.Trip {
	return policy.Trip{
		Destination: r.Destination,
		Departure:   r.DepartureDate,
		Return:      r.ReturnDate,
	}
}

func (r *Report) PolicyItems() []policy.Item {
	items := make([]policy.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = policy.Item{
			ID:          it.ID,
			Date:        it.Date,
			Description: it.Description,
			Amount:      it.Amount,
			Category:    it.Category,
		}
	}
	return items
}

func (r *Report) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range r.Items {
		total = total.Add(it.Amount)
	}
	return total
}

// Recalculate refreshes the per-diem allowance from the trip and sets
// TotalAmount to the item sum plus that allowance.
func (r *Report) Recalculate(engine *policy.Engine) {
	pd := engine.PerDiem(r.Trip())
	r.PerDiemDays = pd.Days
	r.PerDiemRate = pd.Rate
	r.PerDiemAmount = pd.Amount
	r.TotalAmount = r.ItemsTotal().Add(pd.Amount).Round(2)
}

func (r *Report) setDecision(approverID int64, comment string, at time.Time) {
	r.ApproverID = &approverID
	r.ApprovedAt = &at
	r.ApprovalComment = strings.TrimSpace(comment)
}

func ToDataModel(r *Report) *reportDatamodel.Report {
	row := &reportDatamodel.Report{
		ID:            r.ID,
		Title:         r.Title,
		Status:        string(r.Status),
		Destination:   r.Destination,
		DepartureDate: r.DepartureDate,
		ReturnDate:    r.ReturnDate,
		TotalAmount:   r.TotalAmount,
		PerDiemDays:   r.PerDiemDays,
		PerDiemRate:   r.PerDiemRate,
		PerDiemAmount: r.PerDiemAmount,
		SubmitterID:   r.SubmitterID,
		ApproverID:    r.ApproverID,
		ApprovedAt:    r.ApprovedAt,
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Items:         ItemsToDataModel(r.ID, r.Items),
	}
	if r.ApprovalComment != "" {
		c := r.ApprovalComment
		row.ApprovalComment = &c
	}
	return row
}

func ItemsToDataModel(reportID int64, items []Item) []reportDatamodel.Item {
	rows := make([]reportDatamodel.Item, len(items))
	for i, it := range items {
		rows[i] = reportDatamodel.Item{
			ID:          it.ID,
			ReportID:    reportID,
			Position:    i,
			ItemDate:    it.Date,
			Description: it.Description,
			Amount:      it.Amount,
			Category:    it.Category,
		}
	}
	return rows
}

// FromDataModel rejects rows whose status is outside the workflow set.
func FromDataModel(row *reportDatamodel.Report) (*Report, error) {
	status := Status(row.Status)
	if _, err := ParseStatus(row.Status); err != nil || string(status) != row.Status {
		return nil, internal.NewInternalError(fmt.Sprintf("report %d has unrecognized status %q", row.ID, row.Status), err)
	}

	r := &Report{
		ID:            row.ID,
		Title:         row.Title,
		Status:        status,
		Destination:   row.Destination,
		DepartureDate: row.DepartureDate,
		ReturnDate:    row.ReturnDate,
		TotalAmount:   row.TotalAmount,
		PerDiemDays:   row.PerDiemDays,
		PerDiemRate:   row.PerDiemRate,
		PerDiemAmount: row.PerDiemAmount,
		SubmitterID:   row.SubmitterID,
		ApproverID:    row.ApproverID,
		ApprovedAt:    row.ApprovedAt,
		Version:       row.Version,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		Items:         make([]Item, len(row.Items)),
	}
	if row.ApprovalComment != nil {
		r.ApprovalComment = *row.ApprovalComment
	}
	for i, it := range row.Items {
		r.Items[i] = Item{
			ID:          it.ID,
			Date:        it.ItemDate,
			Description: it.Description,
			Amount:      it.Amount,
			Category:    it.Category,
		}
	}
	return r, nil
}

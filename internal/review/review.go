package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/expense-workflow/internal"
	reviewDatamodel "github.com/frahmantamala/expense-workflow/internal/core/datamodel/review"
	"github.com/frahmantamala/expense-workflow/internal/policy"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

type Decision string

const (
	DecisionNone    Decision = ""
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToUpper(strings.TrimSpace(s))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	}
	return DecisionNone, internal.NewValidationError(fmt.Sprintf("unknown decision %q, expected APPROVE or REJECT", s), internal.ErrCodeInvalidDecision)
}

// Item is one flagged warning awaiting a reviewer decision.
type Item struct {
	ID             int64    `json:"id"`
	Code           string   `json:"code"`
	Message        string   `json:"message"`
	EmployeeReason string   `json:"employee_reason"`
	Decision       Decision `json:"decision,omitempty"`
	ReviewerReason string   `json:"reviewer_reason,omitempty"`
}

type ExceptionReview struct {
	ID              int64      `json:"id"`
	ReportID        int64      `json:"report_id"`
	Status          Status     `json:"status"`
	ReviewerID      *int64     `json:"reviewer_id,omitempty"`
	ReviewerName    string     `json:"reviewer_name,omitempty"`
	ReviewerComment string     `json:"reviewer_comment,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	Items           []Item     `json:"items"`
}

// Open starts a pending review with one item per warning. reasons is keyed by the rendered
// warning code; a reason keyed by the bare rule code applies to every scope of that rule.
// Missing reasons are left empty.
func Open(reportID int64, warnings []policy.Warning, reasons map[string]string, now time.Time) *ExceptionReview {
	items := make([]Item, 0, len(warnings))
	for _, w := range warnings {
		reason, ok := reasons[w.Key()]
		if !ok {
			reason = reasons[string(w.Code.Base)]
		}
		items = append(items, Item{
			Code:           w.Key(),
			Message:        w.Message,
			EmployeeReason: strings.TrimSpace(reason),
		})
	}
	return &ExceptionReview{
		ReportID:  reportID,
		Status:    StatusPending,
		CreatedAt: now,
		Items:     items,
	}
}

// DecisionInput is the reviewer's verdict for one item code.
type DecisionInput struct {
	Code     string `json:"code"`
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Decide applies a complete set of decisions. It validates everything before mutating, so a
// failed call leaves the review untouched. Any REJECT makes the review REJECTED.
func (r *ExceptionReview) Decide(reviewerID int64, comment string, inputs []DecisionInput, now time.Time) (Status, error) {
	if r.Status != StatusPending {
		return r.Status, internal.NewInvalidStateError(fmt.Sprintf("exception review is %s, not PENDING", r.Status), internal.ErrCodeInvalidTransition)
	}

	index := make(map[string]int, len(r.Items))
	for i, it := range r.Items {
		index[it.Code] = i
	}

	type verdict struct {
		decision Decision
		reason   string
	}
	verdicts := make(map[string]verdict, len(inputs))

	for _, in := range inputs {
		code := strings.TrimSpace(in.Code)
		if _, ok := index[code]; !ok {
			return r.Status, internal.NewValidationError(fmt.Sprintf("decision for unknown warning code %q", code), internal.ErrCodeUnknownWarning)
		}
		if _, dup := verdicts[code]; dup {
			return r.Status, internal.NewValidationError(fmt.Sprintf("duplicate decision for warning code %q", code), internal.ErrCodeInvalidDecision)
		}
		d, err := ParseDecision(in.Decision)
		if err != nil {
			return r.Status, err
		}
		reason := strings.TrimSpace(in.Reason)
		if d == DecisionReject && reason == "" {
			return r.Status, internal.NewValidationError(fmt.Sprintf("a reason is required to reject %q", code), internal.ErrCodeMissingReason)
		}
		verdicts[code] = verdict{decision: d, reason: reason}
	}

	rejected := false
	for _, it := range r.Items {
		v, ok := verdicts[it.Code]
		if !ok {
			return r.Status, internal.NewValidationError(fmt.Sprintf("missing decision for warning code %q", it.Code), internal.ErrCodeMissingDecision)
		}
		if v.decision == DecisionReject {
			rejected = true
		}
	}

	comment = strings.TrimSpace(comment)
	if rejected && comment == "" {
		return r.Status, internal.NewValidationError("a reviewer comment is required when rejecting exceptions", internal.ErrCodeMissingComment)
	}

	for i := range r.Items {
		v := verdicts[r.Items[i].Code]
		r.Items[i].Decision = v.decision
		r.Items[i].ReviewerReason = v.reason
	}

	r.Status = StatusApproved
	if rejected {
		r.Status = StatusRejected
	}
	r.ReviewerID = &reviewerID
	r.ReviewerComment = comment
	r.DecidedAt = &now

	return r.Status, nil
}

type Repository interface {
	GetByReport(ctx context.Context, reportID int64) (*ExceptionReview, error)
	// Replace deletes any review of the report and stores r with fresh items.
	Replace(ctx context.Context, r *ExceptionReview) error
	SaveDecision(ctx context.Context, r *ExceptionReview) error
	DeleteByReport(ctx context.Context, reportID int64) error
}

func ToDataModel(r *ExceptionReview) *reviewDatamodel.ExceptionReview {
	row := &reviewDatamodel.ExceptionReview{
		ID:         r.ID,
		ReportID:   r.ReportID,
		Status:     string(r.Status),
		ReviewerID: r.ReviewerID,
		CreatedAt:  r.CreatedAt,
		DecidedAt:  r.DecidedAt,
		Items:      make([]reviewDatamodel.Item, len(r.Items)),
	}
	if r.ReviewerComment != "" {
		c := r.ReviewerComment
		row.ReviewerComment = &c
	}
	for i, it := range r.Items {
		row.Items[i] = ItemToDataModel(r.ID, i, it)
	}
	return row
}

func ItemToDataModel(reviewID int64, position int, it Item) reviewDatamodel.Item {
	row := reviewDatamodel.Item{
		ID:             it.ID,
		ReviewID:       reviewID,
		Position:       position,
		Code:           it.Code,
		Message:        it.Message,
		EmployeeReason: it.EmployeeReason,
	}
	if it.Decision != DecisionNone {
		d := string(it.Decision)
		row.Decision = &d
	}
	if it.ReviewerReason != "" {
		reason := it.ReviewerReason
		row.ReviewerReason = &reason
	}
	return row
}

func FromDataModel(row *reviewDatamodel.ExceptionReview) *ExceptionReview {
	r := &ExceptionReview{
		ID:         row.ID,
		ReportID:   row.ReportID,
		Status:     Status(row.Status),
		ReviewerID: row.ReviewerID,
		CreatedAt:  row.CreatedAt,
		DecidedAt:  row.DecidedAt,
		Items:      make([]Item, len(row.Items)),
	}
	if row.ReviewerComment != nil {
		r.ReviewerComment = *row.ReviewerComment
	}
	for i, it := range row.Items {
		item := Item{
			ID:             it.ID,
			Code:           it.Code,
			Message:        it.Message,
			EmployeeReason: it.EmployeeReason,
		}
		if it.Decision != nil {
			item.Decision = Decision(*it.Decision)
		}
		if it.ReviewerReason != nil {
			item.ReviewerReason = *it.ReviewerReason
		}
		r.Items[i] = item
	}
	return r
}

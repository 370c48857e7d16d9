package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	auditDatamodel "github.com/frahmantamala/expense-workflow/internal/core/datamodel/audit"
)

type Action string

const (
	ActionCreated            Action = "CREATED"
	ActionUpdated            Action = "UPDATED"
	ActionSubmitted          Action = "SUBMITTED"
	ActionSubmittedForReview Action = "SUBMITTED_FOR_REVIEW"
	ActionExceptionApproved  Action = "EXCEPTION_APPROVED"
	ActionExceptionRejected  Action = "EXCEPTION_REJECTED"
	ActionManagerApproved    Action = "MANAGER_APPROVED"
	ActionCFOApproved        Action = "CFO_APPROVED"
	ActionCEOApproved        Action = "CEO_APPROVED"
	ActionRejected           Action = "REJECTED"
)

// ApprovedBy builds the {ROLE}_APPROVED action for an approver role.
func ApprovedBy(role string) Action {
	return Action(strings.ToUpper(role) + "_APPROVED")
}

type Entry struct {
	ID         int64     `json:"id"`
	ReportID   int64     `json:"report_id"`
	Action     Action    `json:"action"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    int64     `json:"actor_id"`
	ActorName  string    `json:"actor_name"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository is append-only: there is no update or delete.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByReport(ctx context.Context, reportID int64) ([]*Entry, error)
}

type Recorder struct {
	now func() time.Time
}

func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Record appends one transition entry through repo, which is normally bound to the caller's transaction.
func (r *Recorder) Record(ctx context.Context, repo Repository, entry Entry) (*Entry, error) {
	if entry.ReportID <= 0 {
		return nil, fmt.Errorf("audit entry without report id")
	}
	if entry.Action == "" || entry.ToStatus == "" {
		return nil, fmt.Errorf("audit entry for report %d is missing action or target status", entry.ReportID)
	}
	entry.Comment = strings.TrimSpace(entry.Comment)
	entry.CreatedAt = r.now()

	if err := repo.Append(ctx, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func ToDataModel(e *Entry) *auditDatamodel.Entry {
	var comment *string
	if e.Comment != "" {
		c := e.Comment
		comment = &c
	}
	return &auditDatamodel.Entry{
		ID:         e.ID,
		ReportID:   e.ReportID,
		Action:     string(e.Action),
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		ActorID:    e.ActorID,
		ActorName:  e.ActorName,
		Comment:    comment,
		CreatedAt:  e.CreatedAt,
	}
}

func FromDataModel(e *auditDatamodel.Entry) *Entry {
	entry := &Entry{
		ID:         e.ID,
		ReportID:   e.ReportID,
		Action:     Action(e.Action),
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		ActorID:    e.ActorID,
		ActorName:  e.ActorName,
		CreatedAt:  e.CreatedAt,
	}
	if e.Comment != nil {
		entry.Comment = *e.Comment
	}
	return entry
}

package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/audit"
	"github.com/frahmantamala/expense-workflow/internal/core/events"
	"github.com/frahmantamala/expense-workflow/internal/policy"
	"github.com/frahmantamala/expense-workflow/internal/review"
	"github.com/frahmantamala/expense-workflow/internal/user"
)

// Repository persists the report aggregate. Update and ReplaceItems must run inside the
// transaction that loaded the report with GetForUpdate.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id int64) (*Report, error)
	// GetForUpdate loads the report and holds its row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Report, error)
	// Update writes scalar fields guarded by r.Version and increments it on success.
	Update(ctx context.Context, r *Report) error
	ReplaceItems(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]*Report, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, userID int64) (*user.User, error)
	GetNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Tx groups the repositories that take part in one unit of work.
type Tx interface {
	Reports() Repository
	Reviews() review.Repository
	Audit() audit.Repository
	Users() UserDirectory
}

type Store interface {
	Tx
	// WithTx runs fn in a transaction. Returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type StatsReader interface {
	StatusTotals(ctx context.Context, submitterID int64) ([]Bucket, error)
	CategoryTotals(ctx context.Context, submitterID int64) ([]Bucket, error)
	MonthlyTotals(ctx context.Context, submitterID int64) ([]Bucket, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	store     Store
	stats     StatsReader
	engine    *policy.Engine
	recorder  *audit.Recorder
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(store Store, stats StatsReader, engine *policy.Engine, publisher EventPublisher, logger *slog.Logger) *Service {
	now := func() time.Time { return time.Now().UTC() }
	return &Service{
		store:     store,
		stats:     stats,
		engine:    engine,
		recorder:  audit.NewRecorder(now),
		publisher: publisher,
		logger:    logger,
		now:       now,
	}
}

// WithClock replaces the time source used for timestamps and audit entries.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.recorder = audit.NewRecorder(now)
	return s
}

// SubmitResult carries the policy warnings that routed the report.
type SubmitResult struct {
	Report   *Report
	Warnings []policy.Warning
}

func (s *Service) CreateReport(ctx context.Context, dto CreateReportDTO) (*Report, error) {
	d, err := dto.draft(s.engine.Limits().MaxItemAmount)
	if err != nil {
		return nil, s.fail("report validation failed", err, "submitter_id", dto.SubmitterID)
	}

	var (
		created *Report
		entry   *audit.Entry
	)
	err = s.store.WithTx(ctx, func(tx Tx) error {
		submitter, err := tx.Users().GetByID(ctx, dto.SubmitterID)
		if err != nil {
			return err
		}

		now := s.now()
		r := &Report{
			Title:         d.title,
			Status:        StatusDraft,
			Destination:   d.destination,
			DepartureDate: d.departure,
			ReturnDate:    d.ret,
			SubmitterID:   submitter.ID,
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
			Items:         d.items,
		}
		r.Recalculate(s.engine)

		if err := tx.Reports().Create(ctx, r); err != nil {
			return err
		}

		entry, err = s.recorder.Record(ctx, tx.Audit(), audit.Entry{
			ReportID:  r.ID,
			Action:    audit.ActionCreated,
			ToStatus:  string(r.Status),
			ActorID:   submitter.ID,
			ActorName: submitter.Name,
		})
		created = r
		return err
	})
	if err != nil {
		return nil, s.fail("failed to create report", err, "submitter_id", dto.SubmitterID)
	}

	s.logger.Info("report created",
		"report_id", created.ID,
		"submitter_id", created.SubmitterID,
		"total_amount", created.TotalAmount.StringFixed(2),
		"items", len(created.Items))
	s.transitioned(ctx, entry)

	return created, nil
}

func (s *Service) UpdateReport(ctx context.Context, reportID int64, dto UpdateReportDTO) (*Report, error) {
	d, err := dto.draft(s.engine.Limits().MaxItemAmount)
	if err != nil {
		return nil, s.fail("report validation failed", err, "report_id", reportID)
	}

	var (
		updated *Report
		entry   *audit.Entry
	)
	err = s.store.WithTx(ctx, func(tx Tx) error {
		r, err := lockEditable(ctx, tx, reportID, dto.SubmitterID, "updated")
		if err != nil {
			return err
		}
		submitter, err := tx.Users().GetByID(ctx, r.SubmitterID)
		if err != nil {
			return err
		}

		r.Title = d.title
		r.Destination = d.destination
		r.DepartureDate = d.departure
		r.ReturnDate = d.ret
		r.Items = d.items
		r.UpdatedAt = s.now()
		r.Recalculate(s.engine)

		if err := tx.Reports().ReplaceItems(ctx, r); err != nil {
			return err
		}
		if err := tx.Reports().Update(ctx, r); err != nil {
			return err
		}

		entry, err = s.recorder.Record(ctx, tx.Audit(), audit.Entry{
			ReportID:   r.ID,
			Action:     audit.ActionUpdated,
			FromStatus: string(r.Status),
			ToStatus:   string(r.Status),
			ActorID:    submitter.ID,
			ActorName:  submitter.Name,
		})
		updated = r
		return err
	})
	if err != nil {
		return nil, s.fail("failed to update report", err, "report_id", reportID, "submitter_id", dto.SubmitterID)
	}

	s.logger.Info("report updated",
		"report_id", updated.ID,
		"status", updated.Status,
		"total_amount", updated.TotalAmount.StringFixed(2))
	s.transitioned(ctx, entry)

	return updated, nil
}

// SubmitReport runs the policy engine and routes the report either into the normal chain or
// into exception review. Reasons are keyed by warning code and may be omitted.
func (s *Service) SubmitReport(ctx context.Context, reportID int64, dto SubmitReportDTO) (*SubmitResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, s.fail("submit validation failed", err, "report_id", reportID)
	}

	var (
		result *SubmitResult
		entry  *audit.Entry
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		r, err := lockEditable(ctx, tx, reportID, dto.SubmitterID, "submitted")
		if err != nil {
			return err
		}
		if len(r.Items) == 0 {
			return internal.ErrNoItems
		}
		submitter, err := tx.Users().GetByID(ctx, r.SubmitterID)
		if err != nil {
			return err
		}

		r.Recalculate(s.engine)
		warnings := s.engine.Evaluate(r.Trip(), r.PolicyItems())

		outcome, action := OutcomeSubmitted, audit.ActionSubmitted
		if len(warnings) > 0 {
			outcome, action = OutcomeFlagged, audit.ActionSubmittedForReview
		}
		next, err := Next(r.Status, submitter.Role, outcome)
		if err != nil {
			return err
		}

		now := s.now()
		if len(warnings) == 0 {
			err = tx.Reviews().DeleteByReport(ctx, r.ID)
		} else {
			err = tx.Reviews().Replace(ctx, review.Open(r.ID, warnings, dto.reasons(), now))
		}
		if err != nil {
			return err
		}

		from := r.Status
		r.Status = next
		r.UpdatedAt = now
		if err := tx.Reports().Update(ctx, r); err != nil {
			return err
		}

		entry, err = s.recorder.Record(ctx, tx.Audit(), audit.Entry{
			ReportID:   r.ID,
			Action:     action,
			FromStatus: string(from),
			ToStatus:   string(next),
			ActorID:    submitter.ID,
			ActorName:  submitter.Name,
		})
		result = &SubmitResult{Report: r, Warnings: warnings}
		return err
	})
	if err != nil {
		return nil, s.fail("failed to submit report", err, "report_id", reportID, "submitter_id", dto.SubmitterID)
	}

	s.logger.Info("report submitted",
		"report_id", reportID,
		"from_status", entry.FromStatus,
		"to_status", entry.ToStatus,
		"warnings", len(result.Warnings))
	s.transitioned(ctx, entry)

	return result, nil
}

func (s *Service) GetExceptionReview(ctx context.Context, reportID int64) (*review.ExceptionReview, error) {
	if _, err := s.store.Reports().GetByID(ctx, reportID); err != nil {
		return nil, s.fail("failed to load report", err, "report_id", reportID)
	}

	rv, err := s.store.Reviews().GetByReport(ctx, reportID)
	if err != nil {
		return nil, s.fail("failed to load exception review", err, "report_id", reportID)
	}

	if rv.ReviewerID != nil {
		names, err := s.store.Users().GetNames(ctx, []int64{*rv.ReviewerID})
		if err != nil {
			return nil, s.fail("failed to resolve reviewer", err, "report_id", reportID)
		}
		rv.ReviewerName = names[*rv.ReviewerID]
	}
	return rv, nil
}

// DecideExceptionReview applies the reviewer's per-warning decisions. Any rejection sends the
// report back to the submitter; approving everything re-enters the normal chain.
func (s *Service) DecideExceptionReview(ctx context.Context, reportID int64, dto DecideExceptionDTO) (*Report, error) {
	if err := dto.Validate(); err != nil {
		return nil, s.fail("exception decision validation failed", err, "report_id", reportID)
	}
	role, err := user.ParseRole(dto.ReviewerRole)
	if err != nil {
		return nil, s.fail("exception decision validation failed", err, "report_id", reportID)
	}

	var (
		decided *Report
		entry   *audit.Entry
	)
	err = s.store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.Reports().GetForUpdate(ctx, reportID)
		if err != nil {
			return err
		}

		required, ok := ExceptionReviewerFor(r.Status)
		if !ok {
			return internal.NewInvalidStateError(
				fmt.Sprintf("report in status %s has no exception review to decide", r.Status),
				internal.ErrCodeInvalidTransition,
			)
		}
		if role != required {
			return internal.ErrReviewerRole
		}

		reviewer, err := tx.Users().GetByID(ctx, dto.ReviewerID)
		if err != nil {
			return err
		}
		if reviewer.Role != role {
			return internal.ErrReviewerRole
		}

		submitter, err := tx.Users().GetByID(ctx, r.SubmitterID)
		if err != nil {
			return err
		}
		rv, err := tx.Reviews().GetByReport(ctx, r.ID)
		if err != nil {
			return err
		}

		now := s.now()
		outcome, err := rv.Decide(reviewer.ID, dto.Comment, dto.Decisions, now)
		if err != nil {
			return err
		}

		workflowOutcome, action := OutcomeExceptionApproved, audit.ActionExceptionApproved
		if outcome == review.StatusRejected {
			workflowOutcome, action = OutcomeExceptionRejected, audit.ActionExceptionRejected
		}
		next, err := Next(r.Status, submitter.Role, workflowOutcome)
		if err != nil {
			return err
		}

		if outcome == review.StatusRejected {
			err = tx.Reviews().SaveDecision(ctx, rv)
		} else {
			err = tx.Reviews().DeleteByReport(ctx, r.ID)
		}
		if err != nil {
			return err
		}

		from := r.Status
		r.Status = next
		r.UpdatedAt = now
		if err := tx.Reports().Update(ctx, r); err != nil {
			return err
		}

		entry, err = s.recorder.Record(ctx, tx.Audit(), audit.Entry{
			ReportID:   r.ID,
			Action:     action,
			FromStatus: string(from),
			ToStatus:   string(next),
			ActorID:    reviewer.ID,
			ActorName:  reviewer.Name,
			Comment:    rv.ReviewerComment,
		})
		decided = r
		return err
	})
	if err != nil {
		return nil, s.fail("failed to decide exception review", err, "report_id", reportID, "reviewer_id", dto.ReviewerID)
	}

	s.logger.Info("exception review decided",
		"report_id", reportID,
		"action", entry.Action,
		"from_status", entry.FromStatus,
		"to_status", entry.ToStatus)
	s.transitioned(ctx, entry)

	return decided, nil
}

func (s *Service) ApproveReport(ctx context.Context, reportID int64, dto ApprovalDTO) (*Report, error) {
	return s.decide(ctx, reportID, dto, OutcomeApproved)
}

func (s *Service) RejectReport(ctx context.Context, reportID int64, dto ApprovalDTO) (*Report, error) {
	return s.decide(ctx, reportID, dto, OutcomeRejected)
}

func (s *Service) decide(ctx context.Context, reportID int64, dto ApprovalDTO, outcome Outcome) (*Report, error) {
	if err := dto.Validate(); err != nil {
		return nil, s.fail("approval validation failed", err, "report_id", reportID)
	}

	var (
		decided *Report
		entry   *audit.Entry
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		r, err := tx.Reports().GetForUpdate(ctx, reportID)
		if err != nil {
			return err
		}

		required, ok := ApproverFor(r.Status)
		if !ok {
			return invalidTransition(r.Status, outcome)
		}
		if dto.ApproverID == r.SubmitterID {
			return internal.ErrSelfApproval
		}
		approver, err := tx.Users().GetByID(ctx, dto.ApproverID)
		if err != nil {
			return err
		}
		if approver.Role != required {
			return internal.ErrApproverRole.WithDetails(map[string]string{
				"required_role": string(required),
				"actual_role":   string(approver.Role),
			})
		}

		submitter, err := tx.Users().GetByID(ctx, r.SubmitterID)
		if err != nil {
			return err
		}
		next, err := Next(r.Status, submitter.Role, outcome)
		if err != nil {
			return err
		}

		now := s.now()
		action := audit.ApprovedBy(string(approver.Role))
		if outcome == OutcomeRejected {
			action = audit.ActionRejected
		}
		if next.Terminal() {
			r.setDecision(approver.ID, dto.Comment, now)
		}

		from := r.Status
		r.Status = next
		r.UpdatedAt = now
		if err := tx.Reports().Update(ctx, r); err != nil {
			return err
		}

		entry, err = s.recorder.Record(ctx, tx.Audit(), audit.Entry{
			ReportID:   r.ID,
			Action:     action,
			FromStatus: string(from),
			ToStatus:   string(next),
			ActorID:    approver.ID,
			ActorName:  approver.Name,
			Comment:    dto.Comment,
		})
		decided = r
		return err
	})
	if err != nil {
		return nil, s.fail("failed to record approval decision", err, "report_id", reportID, "approver_id", dto.ApproverID, "outcome", outcome)
	}

	s.logger.Info("approval decision recorded",
		"report_id", reportID,
		"action", entry.Action,
		"from_status", entry.FromStatus,
		"to_status", entry.ToStatus)
	s.transitioned(ctx, entry)

	return decided, nil
}

// DeleteDraft removes an editable report together with any lingering exception review.
// Audit entries stay behind as history.
func (s *Service) DeleteDraft(ctx context.Context, reportID, requesterID int64) error {
	if requesterID <= 0 {
		return s.fail("delete validation failed", internal.NewValidationFieldError("requester_id", "requester_id is required", internal.ErrCodeValidationFailed), "report_id", reportID)
	}

	var status Status
	err := s.store.WithTx(ctx, func(tx Tx) error {
		r, err := lockEditable(ctx, tx, reportID, requesterID, "deleted")
		if err != nil {
			return err
		}
		status = r.Status
		if err := tx.Reviews().DeleteByReport(ctx, r.ID); err != nil {
			return err
		}
		return tx.Reports().Delete(ctx, r.ID)
	})
	if err != nil {
		return s.fail("failed to delete report", err, "report_id", reportID, "requester_id", requesterID)
	}

	s.logger.Info("report deleted", "report_id", reportID, "status", status)
	s.publish(ctx, events.NewReportDeletedEvent(reportID, string(status), requesterID, s.now()))
	return nil
}

func (s *Service) GetAuditLog(ctx context.Context, reportID int64) ([]*audit.Entry, error) {
	if _, err := s.store.Reports().GetByID(ctx, reportID); err != nil {
		return nil, s.fail("failed to load report", err, "report_id", reportID)
	}
	entries, err := s.store.Audit().ListByReport(ctx, reportID)
	if err != nil {
		return nil, s.fail("failed to load audit log", err, "report_id", reportID)
	}
	return entries, nil
}

// lockEditable loads the report for update and checks, in order, that it exists, that the
// caller submitted it and that it is still editable.
func lockEditable(ctx context.Context, tx Tx, reportID, submitterID int64, verb string) (*Report, error) {
	r, err := tx.Reports().GetForUpdate(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.SubmitterID != submitterID {
		return nil, internal.ErrNotSubmitter
	}
	if !r.Status.Editable() {
		return nil, internal.NewInvalidStateError(
			fmt.Sprintf("report in status %s cannot be %s", r.Status, verb),
			internal.ErrCodeInvalidTransition,
		)
	}
	return r, nil
}

// fail logs rule violations at warn and everything else at error, then returns err unchanged.
func (s *Service) fail(msg string, err error, kv ...any) error {
	args := append([]any{"error", err}, kv...)
	if appErr, ok := internal.IsAppError(err); ok && appErr.Type != internal.ErrorTypeInternal {
		s.logger.Warn(msg, args...)
	} else {
		s.logger.Error(msg, args...)
	}
	return err
}

func (s *Service) transitioned(ctx context.Context, entry *audit.Entry) {
	if entry == nil {
		return
	}
	s.publish(ctx, events.NewReportTransitionedEvent(
		entry.ReportID,
		string(entry.Action),
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorID,
		entry.Comment,
		entry.CreatedAt,
	))
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish workflow event",
			"error", err,
			"event_type", event.EventType(),
			"event_id", event.EventID())
	}
}

package report_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/audit"
	"github.com/frahmantamala/expense-workflow/internal/core/events"
	"github.com/frahmantamala/expense-workflow/internal/policy"
	"github.com/frahmantamala/expense-workflow/internal/report"
	"github.com/frahmantamala/expense-workflow/internal/review"
	"github.com/frahmantamala/expense-workflow/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var (
	clock = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	employee = &user.User{ID: 1, Name: "Erin Employee", Email: "erin@example.com", Role: user.RoleEmployee}
	manager  = &user.User{ID: 2, Name: "Max Manager", Email: "max@example.com", Role: user.RoleManager}
	cfo      = &user.User{ID: 3, Name: "Cora CFO", Email: "cora@example.com", Role: user.RoleCFO}
	ceo      = &user.User{ID: 4, Name: "Cyrus CEO", Email: "cyrus@example.com", Role: user.RoleCEO}
)

func itemDTO(date, category, description, amount string) report.ItemDTO {
	return report.ItemDTO{
		Date:        date,
		Category:    category,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
	}
}

func newTestService() (*report.Service, *memStore, *recordingPublisher, *fakeStats) {
	store := newMemStore(employee, manager, cfo, ceo)
	publisher := &recordingPublisher{}
	stats := &fakeStats{}
	svc := report.NewService(
		store,
		stats,
		policy.NewEngine(policy.DefaultLimits()),
		publisher,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	).WithClock(func() time.Time { return clock })
	return svc, store, publisher, stats
}

func appErrCode(err error) internal.ErrorCode {
	appErr, ok := internal.IsAppError(err)
	Expect(ok).To(BeTrue(), "expected an AppError, got %v", err)
	return appErr.Code
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		svc       *report.Service
		store     *memStore
		publisher *recordingPublisher
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc, store, publisher, _ = newTestService()
	})

	createDraft := func(submitter *user.User, items ...report.ItemDTO) *report.Report {
		r, err := svc.CreateReport(ctx, report.CreateReportDTO{
			SubmitterID:   submitter.ID,
			Title:         "Chicago offsite",
			Destination:   "Chicago, USA",
			DepartureDate: "2025-03-01",
			ReturnDate:    "2025-03-03",
			Items:         items,
		})
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	submit := func(r *report.Report, reasons ...report.WarningReasonDTO) *report.SubmitResult {
		res, err := svc.SubmitReport(ctx, r.ID, report.SubmitReportDTO{SubmitterID: r.SubmitterID, Reasons: reasons})
		Expect(err).NotTo(HaveOccurred())
		return res
	}

	Describe("CreateReport", func() {
		It("creates a draft whose total includes the per-diem allowance", func() {
			// Given a two-night domestic trip
			dto := report.CreateReportDTO{
				SubmitterID:   employee.ID,
				Title:         " Chicago offsite ",
				Destination:   "Chicago, USA",
				DepartureDate: "2025-03-01",
				ReturnDate:    "2025-03-03",
				Items: []report.ItemDTO{
					itemDTO("2025-03-01", "Transportation", "Taxi", "40.10"),
					itemDTO("2025-03-02", "Meals", "Lunch", "19.90"),
				},
			}

			// When
			r, err := svc.CreateReport(ctx, dto)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Status).To(Equal(report.StatusDraft))
			Expect(r.Title).To(Equal("Chicago offsite"))
			Expect(r.PerDiemDays).To(Equal(2))
			Expect(r.PerDiemAmount.StringFixed(2)).To(Equal("50.00"))
			Expect(r.TotalAmount.StringFixed(2)).To(Equal("110.00"))
			Expect(r.Items[0].ID).NotTo(BeZero())
			Expect(store.actions(r.ID)).To(Equal([]audit.Action{audit.ActionCreated}))
		})

		It("uses the raw item sum when the trip has no dates", func() {
			r, err := svc.CreateReport(ctx, report.CreateReportDTO{
				SubmitterID: employee.ID,
				Title:       "Supplies",
				Items:       []report.ItemDTO{itemDTO("2025-03-01", "Office", "Paper", "12.50")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.PerDiemAmount.IsZero()).To(BeTrue())
			Expect(r.TotalAmount.StringFixed(2)).To(Equal("12.50"))
		})

		It("fails with not found for an unknown submitter", func() {
			_, err := svc.CreateReport(ctx, report.CreateReportDTO{
				SubmitterID: 99,
				Title:       "Ghost",
				Items:       []report.ItemDTO{itemDTO("2025-03-01", "Office", "Paper", "1.00")},
			})
			Expect(internal.IsNotFound(err)).To(BeTrue())
			Expect(store.reports).To(BeEmpty())
		})

		DescribeTable("rejects invalid input",
			func(mutate func(*report.CreateReportDTO), code internal.ErrorCode) {
				dto := report.CreateReportDTO{
					SubmitterID: employee.ID,
					Title:       "Trip",
					Items:       []report.ItemDTO{itemDTO("2025-03-01", "Office", "Paper", "10.00")},
				}
				mutate(&dto)

				_, err := svc.CreateReport(ctx, dto)

				Expect(internal.IsInvalidArgument(err)).To(BeTrue())
				Expect(appErrCode(err)).To(Equal(code))
				Expect(store.reports).To(BeEmpty())
			},
			Entry("no items", func(d *report.CreateReportDTO) { d.Items = nil }, internal.ErrCodeNoItems),
			Entry("zero amount", func(d *report.CreateReportDTO) { d.Items[0].Amount = decimal.Zero }, internal.ErrCodeValidationFailed),
			Entry("amount over the ceiling", func(d *report.CreateReportDTO) {
				d.Items[0].Amount = decimal.RequireFromString("1000000.00")
			}, internal.ErrCodeValidationFailed),
			Entry("missing title", func(d *report.CreateReportDTO) { d.Title = "  " }, internal.ErrCodeValidationFailed),
			Entry("malformed item date", func(d *report.CreateReportDTO) { d.Items[0].Date = "03/01/2025" }, internal.ErrCodeValidationFailed),
			Entry("departure after return", func(d *report.CreateReportDTO) {
				d.DepartureDate, d.ReturnDate = "2025-03-05", "2025-03-01"
			}, internal.ErrCodeInvalidTripDates),
			Entry("duplicate per diem meal", func(d *report.CreateReportDTO) {
				d.Items = []report.ItemDTO{
					itemDTO("2025-03-01", "Meals", "Per Diem dinner", "20.00"),
					itemDTO("2025-03-01", "Meals", "per diem dinner", "20.00"),
				}
			}, internal.ErrCodeDuplicateMeal),
		)
	})

	Describe("UpdateReport", func() {
		It("replaces items and recomputes per-diem while keeping the status", func() {
			// Given
			r := createDraft(employee, itemDTO("2025-03-01", "Transportation", "Taxi", "20.00"))

			// When the trip moves abroad and items change
			updated, err := svc.UpdateReport(ctx, r.ID, report.UpdateReportDTO{
				SubmitterID:   employee.ID,
				Title:         "Tokyo offsite",
				Destination:   "Tokyo, Japan",
				DepartureDate: "2025-03-01",
				ReturnDate:    "2025-03-04",
				Items: []report.ItemDTO{
					itemDTO("2025-03-01", "Transportation", "Train", "30.00"),
					itemDTO("2025-03-02", "Office", "Adapter", "15.00"),
				},
			})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(report.StatusDraft))
			Expect(updated.PerDiemDays).To(Equal(3))
			Expect(updated.PerDiemRate.StringFixed(2)).To(Equal("50.00"))
			Expect(updated.TotalAmount.StringFixed(2)).To(Equal("195.00"))

			stored := store.stored(r.ID)
			Expect(stored.Items).To(HaveLen(2))
			Expect(stored.Items[0].Description).To(Equal("Train"))
			Expect(stored.Version).To(Equal(int64(2)))

			entries, err := svc.GetAuditLog(ctx, r.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries[1].Action).To(Equal(audit.ActionUpdated))
			Expect(entries[1].FromStatus).To(Equal("DRAFT"))
			Expect(entries[1].ToStatus).To(Equal("DRAFT"))
		})

		It("only lets the submitter update", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Transportation", "Taxi", "20.00"))
			_, err := svc.UpdateReport(ctx, r.ID, report.UpdateReportDTO{
				SubmitterID: manager.ID,
				Title:       "Hijack",
				Items:       []report.ItemDTO{itemDTO("2025-03-01", "Office", "Pen", "1.00")},
			})
			Expect(internal.IsPermissionDenied(err)).To(BeTrue())
		})

		It("refuses updates once submitted", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Transportation", "Taxi", "20.00"))
			submit(r)

			_, err := svc.UpdateReport(ctx, r.ID, report.UpdateReportDTO{
				SubmitterID: employee.ID,
				Title:       "Late change",
				Items:       []report.ItemDTO{itemDTO("2025-03-01", "Office", "Pen", "1.00")},
			})
			Expect(internal.IsInvalidState(err)).To(BeTrue())
		})

		It("rejects departure after return", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Transportation", "Taxi", "20.00"))
			_, err := svc.UpdateReport(ctx, r.ID, report.UpdateReportDTO{
				SubmitterID:   employee.ID,
				Title:         "Backwards",
				DepartureDate: "2025-03-09",
				ReturnDate:    "2025-03-01",
				Items:         []report.ItemDTO{itemDTO("2025-03-01", "Office", "Pen", "1.00")},
			})
			Expect(internal.IsInvalidArgument(err)).To(BeTrue())
			Expect(store.stored(r.ID).Version).To(Equal(int64(1)))
		})
	})

	Describe("SubmitReport", func() {
		It("routes a warning-free employee report to manager review", func() {
			// Given
			r := createDraft(employee, itemDTO("2025-03-01", "Travel", "Parking", "50.00"))

			// When
			res := submit(r)

			// Then
			Expect(res.Warnings).To(BeEmpty())
			Expect(res.Report.Status).To(Equal(report.StatusManagerReview))
			Expect(store.actions(r.ID)).To(Equal([]audit.Action{audit.ActionCreated, audit.ActionSubmitted}))
			Expect(store.reviews).NotTo(HaveKey(r.ID))
		})

		It("sends an over-cap hotel to CFO special review with one scoped exception item", func() {
			// Given a one-night domestic trip with a $300 hotel and a $50 meal
			created, err := svc.CreateReport(ctx, report.CreateReportDTO{
				SubmitterID:   employee.ID,
				Title:         "Austin",
				Destination:   "Austin, United States",
				DepartureDate: "2025-03-01",
				ReturnDate:    "2025-03-02",
				Items: []report.ItemDTO{
					itemDTO("2025-03-01", "Hotel", "Downtown hotel", "300.00"),
					itemDTO("2025-03-01", "Meal", "Dinner", "50.00"),
				},
			})
			Expect(err).NotTo(HaveOccurred())
			hotelID := created.Items[0].ID

			// When
			res := submit(created, report.WarningReasonDTO{Code: "HOTEL_ABOVE_CAP", Reason: "conference rate"})

			// Then
			Expect(res.Report.Status).To(Equal(report.StatusCFOSpecialReview))
			Expect(res.Report.TotalAmount.StringFixed(2)).To(Equal("375.00"))

			rv, err := svc.GetExceptionReview(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(rv.Status).To(Equal(review.StatusPending))
			Expect(rv.Items).To(HaveLen(1))
			Expect(rv.Items[0].Code).To(Equal(policy.ItemCode(policy.CodeHotelAboveCap, hotelID).String()))
			Expect(rv.Items[0].EmployeeReason).To(Equal("conference rate"))
			Expect(store.actions(created.ID)).To(ContainElement(audit.ActionSubmittedForReview))
		})

		It("emits one meals warning for a day totalling 95", func() {
			r := createDraft(employee,
				itemDTO("2025-03-02", "Meals", "Lunch", "40.00"),
				itemDTO("2025-03-02", "Meals", "Dinner", "55.00"),
			)

			res := submit(r)

			Expect(res.Warnings).To(HaveLen(1))
			Expect(res.Warnings[0].Key()).To(Equal("MEALS_ABOVE_DAILY_CAP#2025-03-02"))
			Expect(res.Report.Status).To(Equal(report.StatusCFOSpecialReview))
		})

		It("accepts missing justifications", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Office", "Monitor", "450.00"))
			res := submit(r)

			rv, err := svc.GetExceptionReview(ctx, res.Report.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(rv.Items[0].EmployeeReason).To(BeEmpty())
		})

		DescribeTable("routes by submitter role",
			func(submitter *user.User, overCap bool, want report.Status) {
				amount := "10.00"
				if overCap {
					amount = "500.00"
				}
				r := createDraft(submitter, itemDTO("2025-03-01", "Entertainment", "Show", amount))
				Expect(submit(r).Report.Status).To(Equal(want))
			},
			Entry("manager clean", manager, false, report.StatusCFOReview),
			Entry("manager flagged", manager, true, report.StatusCFOSpecialReview),
			Entry("cfo clean", cfo, false, report.StatusCEOReview),
			Entry("cfo flagged", cfo, true, report.StatusCEOSpecialReview),
			Entry("ceo clean", ceo, false, report.StatusCFOReview),
			Entry("ceo flagged", ceo, true, report.StatusCFOSpecialReview),
		)

		It("checks the submitter before the status", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Travel", "Parking", "5.00"))
			submit(r)

			_, err := svc.SubmitReport(ctx, r.ID, report.SubmitReportDTO{SubmitterID: manager.ID})
			Expect(internal.IsPermissionDenied(err)).To(BeTrue())

			_, err = svc.SubmitReport(ctx, r.ID, report.SubmitReportDTO{SubmitterID: employee.ID})
			Expect(internal.IsInvalidState(err)).To(BeTrue())
		})

		It("fails for unknown reports", func() {
			_, err := svc.SubmitReport(ctx, 404, report.SubmitReportDTO{SubmitterID: employee.ID})
			Expect(err).To(MatchError(internal.ErrReportNotFound))
		})

		It("refuses to submit a report without items", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Travel", "Parking", "5.00"))
			_, err := svc.UpdateReport(ctx, r.ID, report.UpdateReportDTO{SubmitterID: employee.ID, Title: "Empty"})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.SubmitReport(ctx, r.ID, report.SubmitReportDTO{SubmitterID: employee.ID})
			Expect(err).To(MatchError(internal.ErrNoItems))
			Expect(store.stored(r.ID).Status).To(Equal(report.StatusDraft))
		})

		It("rolls back every change when the audit write fails", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Hotel", "Inn", "900.00"))
			publisher.events = nil
			store.failAppend = errStoreDown

			_, err := svc.SubmitReport(ctx, r.ID, report.SubmitReportDTO{SubmitterID: employee.ID})

			Expect(err).To(HaveOccurred())
			Expect(internal.IsInvalidState(err) || internal.IsInvalidArgument(err)).To(BeFalse())
			Expect(store.stored(r.ID).Status).To(Equal(report.StatusDraft))
			Expect(store.reviews).NotTo(HaveKey(r.ID))
			Expect(publisher.events).To(BeEmpty())
		})

		It("publishes transitions after commit and tolerates publisher failures", func() {
			publisher.err = errStoreDown
			r := createDraft(employee, itemDTO("2025-03-01", "Travel", "Parking", "5.00"))
			submit(r)

			transitions := publisher.transitions()
			Expect(transitions).To(HaveLen(2))
			Expect(transitions[1].Action).To(Equal("SUBMITTED"))
			Expect(transitions[1].FromStatus).To(Equal("DRAFT"))
			Expect(transitions[1].ToStatus).To(Equal("MANAGER_REVIEW"))
			Expect(transitions[1].EventType()).To(Equal(events.EventTypeReportTransitioned))
		})
	})

	Describe("DecideExceptionReview", func() {
		var (
			flagged *report.Report
			code    string
		)

		BeforeEach(func() {
			flagged = createDraft(employee, itemDTO("2025-03-01", "Hotel", "Inn", "300.00"))
			code = policy.ItemCode(policy.CodeHotelAboveCap, flagged.Items[0].ID).String()
			submit(flagged)
		})

		decision := func(d, reason string) []review.DecisionInput {
			return []review.DecisionInput{{Code: code, Decision: d, Reason: reason}}
		}

		It("requires the reviewer role of the stage", func() {
			_, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: ceo.ID, ReviewerRole: "CEO", Decisions: decision("APPROVE", ""),
			})
			Expect(internal.IsPermissionDenied(err)).To(BeTrue())
		})

		It("rejects a claimed role the user does not hold", func() {
			_, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: manager.ID, ReviewerRole: "cfo", Decisions: decision("APPROVE", ""),
			})
			Expect(err).To(MatchError(internal.ErrReviewerRole))
		})

		It("rejects unknown role strings", func() {
			_, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: cfo.ID, ReviewerRole: "AUDITOR", Decisions: decision("APPROVE", ""),
			})
			Expect(internal.IsInvalidArgument(err)).To(BeTrue())
		})

		It("leaves everything untouched on partial decisions", func() {
			_, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: cfo.ID, ReviewerRole: "CFO",
			})

			Expect(internal.IsInvalidArgument(err)).To(BeTrue())
			Expect(store.stored(flagged.ID).Status).To(Equal(report.StatusCFOSpecialReview))
			Expect(store.reviews[flagged.ID].Status).To(Equal(review.StatusPending))
		})

		It("requires a reason for every rejection", func() {
			_, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: cfo.ID, ReviewerRole: "CFO", Comment: "too expensive", Decisions: decision("REJECT", " "),
			})
			Expect(appErrCode(err)).To(Equal(internal.ErrCodeMissingReason))
		})

		It("sends rejected exceptions back for changes and keeps the review", func() {
			// When
			decided, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: cfo.ID, ReviewerRole: "CFO", Comment: "book the partner hotel", Decisions: decision("REJECT", "over policy"),
			})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(decided.Status).To(Equal(report.StatusChangesRequested))

			rv, err := svc.GetExceptionReview(ctx, flagged.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(rv.Status).To(Equal(review.StatusRejected))
			Expect(rv.ReviewerName).To(Equal(cfo.Name))
			Expect(rv.ReviewerComment).To(Equal("book the partner hotel"))
			Expect(rv.Items[0].ReviewerReason).To(Equal("over policy"))

			entries, err := svc.GetAuditLog(ctx, flagged.ID)
			Expect(err).NotTo(HaveOccurred())
			last := entries[len(entries)-1]
			Expect(last.Action).To(Equal(audit.ActionExceptionRejected))
			Expect(last.ActorName).To(Equal(cfo.Name))
			Expect(last.Comment).To(Equal("book the partner hotel"))
		})

		It("resumes the normal chain when every exception is approved", func() {
			decided, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: cfo.ID, ReviewerRole: "CFO", Decisions: decision("approve", ""),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(decided.Status).To(Equal(report.StatusManagerReview))
			_, err = svc.GetExceptionReview(ctx, flagged.ID)
			Expect(err).To(MatchError(internal.ErrReviewNotFound))
			Expect(store.actions(flagged.ID)).To(Equal([]audit.Action{
				audit.ActionCreated, audit.ActionSubmittedForReview, audit.ActionExceptionApproved,
			}))
		})

		It("refuses decisions outside special review", func() {
			_, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: cfo.ID, ReviewerRole: "CFO", Decisions: decision("APPROVE", ""),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
				ReviewerID: cfo.ID, ReviewerRole: "CFO", Decisions: decision("APPROVE", ""),
			})
			Expect(internal.IsInvalidState(err)).To(BeTrue())
		})

		Context("after changes were requested", func() {
			BeforeEach(func() {
				_, err := svc.DecideExceptionReview(ctx, flagged.ID, report.DecideExceptionDTO{
					ReviewerID: cfo.ID, ReviewerRole: "CFO", Comment: "no", Decisions: decision("REJECT", "too much"),
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("replaces the review with fresh items on a flagged resubmission", func() {
				_, err := svc.UpdateReport(ctx, flagged.ID, report.UpdateReportDTO{
					SubmitterID: employee.ID,
					Title:       "Still pricey",
					Items:       []report.ItemDTO{itemDTO("2025-03-01", "Hotel", "Other inn", "280.00")},
				})
				Expect(err).NotTo(HaveOccurred())

				res := submit(flagged)

				Expect(res.Report.Status).To(Equal(report.StatusCFOSpecialReview))
				rv := store.reviews[flagged.ID]
				Expect(rv.Status).To(Equal(review.StatusPending))
				Expect(rv.Items).To(HaveLen(1))
				Expect(rv.Items[0].Decision).To(Equal(review.DecisionNone))
				Expect(rv.Items[0].Code).NotTo(Equal(code))
			})

			It("clears the old review on a clean resubmission", func() {
				_, err := svc.UpdateReport(ctx, flagged.ID, report.UpdateReportDTO{
					SubmitterID: employee.ID,
					Title:       "Cheaper",
					Items:       []report.ItemDTO{itemDTO("2025-03-01", "Hotel", "Hostel", "80.00")},
				})
				Expect(err).NotTo(HaveOccurred())

				res := submit(flagged)

				Expect(res.Report.Status).To(Equal(report.StatusManagerReview))
				Expect(store.reviews).NotTo(HaveKey(flagged.ID))
			})
		})
	})

	Describe("ApproveReport and RejectReport", func() {
		var pending *report.Report

		BeforeEach(func() {
			pending = createDraft(employee, itemDTO("2025-03-01", "Travel", "Parking", "50.00"))
			submit(pending)
		})

		It("escalates manager approval to the CFO without final fields", func() {
			approved, err := svc.ApproveReport(ctx, pending.ID, report.ApprovalDTO{ApproverID: manager.ID, Comment: "ok"})

			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(report.StatusCFOReview))
			Expect(approved.ApproverID).To(BeNil())
			Expect(approved.ApprovedAt).To(BeNil())
			Expect(store.actions(pending.ID)).To(ContainElement(audit.ActionManagerApproved))

			By("the same manager cannot approve the CFO stage")
			_, err = svc.ApproveReport(ctx, pending.ID, report.ApprovalDTO{ApproverID: manager.ID})
			Expect(internal.IsInvalidState(err)).To(BeTrue())
			Expect(err).To(MatchError(internal.ErrApproverRole))
		})

		It("finalises CFO approval", func() {
			_, err := svc.ApproveReport(ctx, pending.ID, report.ApprovalDTO{ApproverID: manager.ID})
			Expect(err).NotTo(HaveOccurred())

			approved, err := svc.ApproveReport(ctx, pending.ID, report.ApprovalDTO{ApproverID: cfo.ID, Comment: " fine "})

			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(report.StatusApproved))
			Expect(*approved.ApproverID).To(Equal(cfo.ID))
			Expect(*approved.ApprovedAt).To(Equal(clock))
			Expect(approved.ApprovalComment).To(Equal("fine"))
			Expect(store.actions(pending.ID)).To(HaveLen(4))
			Expect(store.actions(pending.ID)[3]).To(Equal(audit.ActionCFOApproved))
		})

		It("finalises CEO approval of a CFO report", func() {
			r := createDraft(cfo, itemDTO("2025-03-01", "Travel", "Parking", "50.00"))
			Expect(submit(r).Report.Status).To(Equal(report.StatusCEOReview))

			approved, err := svc.ApproveReport(ctx, r.ID, report.ApprovalDTO{ApproverID: ceo.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(report.StatusApproved))
			Expect(store.actions(r.ID)[2]).To(Equal(audit.ActionCEOApproved))
		})

		It("refuses self-approval before checking the role", func() {
			r := createDraft(ceo, itemDTO("2025-03-01", "Travel", "Parking", "50.00"))
			submit(r)

			_, err := svc.ApproveReport(ctx, r.ID, report.ApprovalDTO{ApproverID: ceo.ID})
			Expect(err).To(MatchError(internal.ErrSelfApproval))
			_, err = svc.RejectReport(ctx, r.ID, report.ApprovalDTO{ApproverID: ceo.ID})
			Expect(err).To(MatchError(internal.ErrSelfApproval))
		})

		It("refuses approval outside the approval stages", func() {
			draft := createDraft(employee, itemDTO("2025-03-01", "Travel", "Parking", "50.00"))
			_, err := svc.ApproveReport(ctx, draft.ID, report.ApprovalDTO{ApproverID: manager.ID})
			Expect(internal.IsInvalidState(err)).To(BeTrue())
		})

		It("rejects with decision fields", func() {
			rejected, err := svc.RejectReport(ctx, pending.ID, report.ApprovalDTO{ApproverID: manager.ID, Comment: "duplicate claim"})

			Expect(err).NotTo(HaveOccurred())
			Expect(rejected.Status).To(Equal(report.StatusRejected))
			Expect(*rejected.ApproverID).To(Equal(manager.ID))
			Expect(rejected.ApprovalComment).To(Equal("duplicate claim"))

			entries, err := svc.GetAuditLog(ctx, pending.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries[2].Action).To(Equal(audit.ActionRejected))
			Expect(entries[2].Comment).To(Equal("duplicate claim"))

			_, err = svc.RejectReport(ctx, pending.ID, report.ApprovalDTO{ApproverID: manager.ID})
			Expect(internal.IsInvalidState(err)).To(BeTrue())
		})

		It("fails for unknown approvers", func() {
			_, err := svc.ApproveReport(ctx, pending.ID, report.ApprovalDTO{ApproverID: 77})
			Expect(internal.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("DeleteDraft", func() {
		It("deletes a draft but keeps its audit history", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Travel", "Parking", "5.00"))

			Expect(svc.DeleteDraft(ctx, r.ID, employee.ID)).To(Succeed())

			Expect(store.stored(r.ID)).To(BeNil())
			Expect(store.actions(r.ID)).To(Equal([]audit.Action{audit.ActionCreated}))
			_, err := svc.GetReport(ctx, r.ID)
			Expect(internal.IsNotFound(err)).To(BeTrue())

			last := publisher.events[len(publisher.events)-1]
			Expect(last.EventType()).To(Equal(events.EventTypeReportDeleted))
		})

		It("removes a lingering rejected review", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Hotel", "Inn", "300.00"))
			submit(r)
			_, err := svc.DecideExceptionReview(ctx, r.ID, report.DecideExceptionDTO{
				ReviewerID:   cfo.ID,
				ReviewerRole: "CFO",
				Comment:      "no",
				Decisions:    []review.DecisionInput{{Code: store.reviews[r.ID].Items[0].Code, Decision: "REJECT", Reason: "no"}},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.DeleteDraft(ctx, r.ID, employee.ID)).To(Succeed())
			Expect(store.reviews).NotTo(HaveKey(r.ID))
		})

		It("is reserved to the submitter of an editable report", func() {
			r := createDraft(employee, itemDTO("2025-03-01", "Travel", "Parking", "5.00"))
			Expect(internal.IsPermissionDenied(svc.DeleteDraft(ctx, r.ID, manager.ID))).To(BeTrue())

			submit(r)
			Expect(internal.IsInvalidState(svc.DeleteDraft(ctx, r.ID, employee.ID))).To(BeTrue())
			Expect(internal.IsInvalidArgument(svc.DeleteDraft(ctx, r.ID, 0))).To(BeTrue())
		})
	})
})

package report_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/expense-workflow/internal/report"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ = Describe("Handler", func() {
	var (
		router http.Handler
		store  *memStore
	)

	BeforeEach(func() {
		var svc *report.Service
		svc, store, _, _ = newTestService()
		h := report.NewHandler(svc)

		r := chi.NewRouter()
		r.Route("/reports", func(r chi.Router) {
			r.Post("/", h.CreateReport)
			r.Get("/", h.ListReports)
			r.Get("/pending", h.PendingApprovals)
			r.Get("/stats", h.GetStats)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetReport)
				r.Put("/", h.UpdateReport)
				r.Delete("/", h.DeleteReport)
				r.Post("/submit", h.SubmitReport)
				r.Get("/exception-review", h.GetExceptionReview)
				r.Post("/exception-review/decision", h.DecideExceptionReview)
				r.Post("/approve", h.ApproveReport)
				r.Post("/reject", h.RejectReport)
				r.Get("/audit", h.GetAuditLog)
			})
		})
		router = r
	})

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, dst interface{}) {
		Expect(json.Unmarshal(rec.Body.Bytes(), dst)).To(Succeed())
	}

	createBody := map[string]interface{}{
		"submitter_id":   1,
		"title":          "Austin",
		"destination":    "Austin, USA",
		"departure_date": "2025-03-01",
		"return_date":    "2025-03-02",
		"items": []map[string]interface{}{
			{"date": "2025-03-01", "category": "Hotel", "description": "Inn", "amount": "300.00"},
			{"date": "2025-03-01", "category": "Meal", "description": "Dinner", "amount": 50},
		},
	}

	It("creates a report and renders amounts with two decimals", func() {
		rec := do(http.MethodPost, "/reports/", createBody)

		Expect(rec.Code).To(Equal(http.StatusCreated))
		var resp report.ReportResponse
		decode(rec, &resp)
		Expect(resp.Status).To(Equal(report.StatusDraft))
		Expect(resp.TotalAmount).To(Equal("375.00"))
		Expect(resp.PerDiemAmount).To(Equal("25.00"))
		Expect(*resp.DepartureDate).To(Equal("2025-03-01"))
		Expect(resp.SubmitterName).To(Equal(employee.Name))
		Expect(resp.Items).To(HaveLen(2))
		Expect(resp.Warnings).To(HaveLen(1))
		Expect(resp.Flagged).To(BeTrue())
	})

	It("runs the exception path over HTTP", func() {
		// Given a flagged draft
		rec := do(http.MethodPost, "/reports/", createBody)
		var created report.ReportResponse
		decode(rec, &created)
		base := "/reports/" + itoa(created.ID)

		// When submitted
		rec = do(http.MethodPost, base+"/submit", map[string]interface{}{"submitter_id": 1})

		// Then it waits for the CFO exception review
		Expect(rec.Code).To(Equal(http.StatusOK))
		var submitted report.TransitionResponse
		decode(rec, &submitted)
		Expect(submitted.Status).To(Equal(report.StatusCFOSpecialReview))
		Expect(submitted.Warnings).To(HaveLen(1))
		code := submitted.Warnings[0].Code

		rec = do(http.MethodGet, base+"/exception-review", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))

		By("a manager posing as CFO is refused")
		rec = do(http.MethodPost, base+"/exception-review/decision", map[string]interface{}{
			"reviewer_id": 2, "reviewer_role": "CFO",
			"decisions": []map[string]string{{"code": code, "decision": "APPROVE"}},
		})
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		By("the CFO approves the exception")
		rec = do(http.MethodPost, base+"/exception-review/decision", map[string]interface{}{
			"reviewer_id": 3, "reviewer_role": "CFO",
			"decisions": []map[string]string{{"code": code, "decision": "APPROVE"}},
		})
		Expect(rec.Code).To(Equal(http.StatusOK))
		var decided report.TransitionResponse
		decode(rec, &decided)
		Expect(decided.Status).To(Equal(report.StatusManagerReview))

		By("the manager then the CFO approve")
		Expect(do(http.MethodPost, base+"/approve", map[string]interface{}{"approver_id": 2}).Code).To(Equal(http.StatusOK))
		rec = do(http.MethodPost, base+"/approve", map[string]interface{}{"approver_id": 3, "comment": "ok"})
		decode(rec, &decided)
		Expect(decided.Status).To(Equal(report.StatusApproved))

		rec = do(http.MethodGet, base+"/audit", nil)
		var log report.AuditLogResponse
		decode(rec, &log)
		Expect(log.Entries).To(HaveLen(5))
	})

	It("maps invalid transitions to 409", func() {
		rec := do(http.MethodPost, "/reports/", createBody)
		var created report.ReportResponse
		decode(rec, &created)

		rec = do(http.MethodPost, "/reports/"+itoa(created.ID)+"/approve", map[string]interface{}{"approver_id": 2})

		Expect(rec.Code).To(Equal(http.StatusConflict))
		var body errorBody
		decode(rec, &body)
		Expect(body.Error.Code).To(Equal("INVALID_REPORT_STATUS"))
	})

	DescribeTable("maps request errors",
		func(method, path string, body interface{}, status int) {
			Expect(do(method, path, body).Code).To(Equal(status))
		},
		Entry("unknown report", http.MethodGet, "/reports/99", nil, http.StatusNotFound),
		Entry("bad id", http.MethodGet, "/reports/abc", nil, http.StatusBadRequest),
		Entry("empty items", http.MethodPost, "/reports/", map[string]interface{}{"submitter_id": 1, "title": "x"}, http.StatusBadRequest),
		Entry("unknown status filter", http.MethodGet, "/reports/?status=SUBMITTED", nil, http.StatusBadRequest),
		Entry("malformed limit", http.MethodGet, "/reports/?limit=ten", nil, http.StatusBadRequest),
		Entry("pending without approver", http.MethodGet, "/reports/pending", nil, http.StatusBadRequest),
		Entry("stats for unknown submitter", http.MethodGet, "/reports/stats?submitter_id=42", nil, http.StatusNotFound),
	)

	It("hides internal failures behind a generic message", func() {
		store.failList = errStoreDown

		rec := do(http.MethodGet, "/reports/", nil)

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		var body errorBody
		decode(rec, &body)
		Expect(body.Error.Message).To(Equal("internal server error"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("store unavailable"))
	})

	It("lists with the applied paging and deletes drafts", func() {
		rec := do(http.MethodPost, "/reports/", createBody)
		var created report.ReportResponse
		decode(rec, &created)

		rec = do(http.MethodGet, "/reports/?limit=500", nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		var list report.ListResponse
		decode(rec, &list)
		Expect(list.Limit).To(Equal(report.MaxListLimit))
		Expect(list.Reports).To(HaveLen(1))

		Expect(do(http.MethodDelete, "/reports/"+itoa(created.ID)+"?requester_id=2", nil).Code).To(Equal(http.StatusForbidden))
		Expect(do(http.MethodDelete, "/reports/"+itoa(created.ID)+"?requester_id=1", nil).Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodGet, "/reports/"+itoa(created.ID), nil).Code).To(Equal(http.StatusNotFound))
	})
})

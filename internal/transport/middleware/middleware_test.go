package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/internal/transport/middleware"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TraceID", func() {
	var seen string

	handler := middleware.TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = chiMiddleware.GetReqID(r.Context())
	}))

	It("keeps a well-formed incoming trace id", func() {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceHeader, id)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		Expect(seen).To(Equal(id))
		Expect(rec.Header().Get(middleware.TraceHeader)).To(Equal(id))
	})

	It("mints a new id for missing or malformed headers", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceHeader, "not-a-uuid")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		_, err := uuid.Parse(seen)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Header().Get(middleware.TraceHeader)).To(Equal(seen))
	})
})

var _ = Describe("ActorContext", func() {
	It("puts the X-User-ID header into the context", func() {
		var actor string
		handler := middleware.ActorContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor = internal.ActorIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.ActorHeader, " 42 ")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		Expect(actor).To(Equal("42"))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(actor).To(BeEmpty())
	})
})

var _ = Describe("Recovery", func() {
	It("answers a panic with a generic internal error", func() {
		handler := middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("database password leaked")
		}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(ContainSubstring("internal server error"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("password"))
	})
})

var _ = Describe("RequestLogger", func() {
	It("passes the response through untouched", func() {
		handler := middleware.RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"code":"INVALID_REPORT_STATUS"}}`))
		}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports/1/approve", strings.NewReader(`{"approver_id":2}`)))

		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(rec.Body.String()).To(ContainSubstring("INVALID_REPORT_STATUS"))
	})
})

var _ = Describe("CORS", func() {
	It("answers preflight requests for configured origins", func() {
		handler := middleware.CORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/reports", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:5173"))
	})
})

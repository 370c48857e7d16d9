package rest

import (
	"net/http"

	"github.com/frahmantamala/expense-workflow/internal/report"
	"github.com/frahmantamala/expense-workflow/internal/transport/middleware"
	"github.com/frahmantamala/expense-workflow/internal/transport/swagger"
	"github.com/frahmantamala/expense-workflow/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Health  *HealthHandler
	Users   *user.Handler
	Reports *report.Handler
	Docs    *swagger.Docs
}

// RegisterAllRoutes installs the global middleware chain and mounts the API under /api/v1.
func RegisterAllRoutes(router *chi.Mux, h Handlers, allowedOrigins []string) {
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.TraceID)
	router.Use(middleware.ActorContext)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(middleware.Recovery)

	if h.Docs != nil {
		router.Get("/openapi.yml", h.Docs.ServeSpec)
		router.Handle("/swagger/*", h.Docs.UI())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Users != nil {
			r.Route("/users", func(ur chi.Router) {
				ur.Get("/", h.Users.ListUsers)    // GET /users
				ur.Get("/{id}", h.Users.GetUser) // GET /users/:id
			})
		}

		if h.Reports != nil {
			r.Route("/reports", func(rr chi.Router) {
				rr.Post("/", h.Reports.CreateReport)           // POST /reports
				rr.Get("/", h.Reports.ListReports)             // GET /reports
				rr.Get("/pending", h.Reports.PendingApprovals) // GET /reports/pending
				rr.Get("/stats", h.Reports.GetStats)           // GET /reports/stats

				rr.Route("/{id}", func(ir chi.Router) {
					ir.Get("/", h.Reports.GetReport)
					ir.Put("/", h.Reports.UpdateReport)
					ir.Delete("/", h.Reports.DeleteReport)
					ir.Post("/submit", h.Reports.SubmitReport)
					ir.Get("/exception-review", h.Reports.GetExceptionReview)
					ir.Post("/exception-review/decision", h.Reports.DecideExceptionReview)
					ir.Post("/approve", h.Reports.ApproveReport)
					ir.Post("/reject", h.Reports.RejectReport)
					ir.Get("/audit", h.Reports.GetAuditLog)
				})
			})
		}
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"NOT_FOUND","code":"ROUTE_NOT_FOUND","message":"route not found"}}`))
	})
}

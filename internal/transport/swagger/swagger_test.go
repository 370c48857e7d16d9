package swagger_test

import (
	"context"

	"github.com/frahmantamala/expense-workflow/api"
	"github.com/frahmantamala/expense-workflow/internal/transport/swagger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Docs", func() {
	It("loads and validates the embedded document", func() {
		docs, err := swagger.Load(context.Background(), api.OpenAPI)

		Expect(err).NotTo(HaveOccurred())
		Expect(docs.Title()).To(Equal("Expense Workflow API"))
		Expect(docs.Version()).To(Equal("1.0.0"))
		Expect(docs.Operations()).To(ContainElements(
			"POST /reports",
			"POST /reports/{id}/submit",
			"POST /reports/{id}/exception-review/decision",
			"GET /reports/{id}/audit",
		))
	})

	It("rejects malformed documents", func() {
		_, err := swagger.Load(context.Background(), []byte("openapi: [unclosed"))
		Expect(err).To(MatchError(ContainSubstring("parse openapi document")))
	})

	It("rejects documents that fail validation", func() {
		raw := []byte("openapi: 3.0.3\ninfo:\n  title: broken\npaths: {}\n")
		_, err := swagger.Load(context.Background(), raw)
		Expect(err).To(MatchError(ContainSubstring("validate openapi document")))
	})
})

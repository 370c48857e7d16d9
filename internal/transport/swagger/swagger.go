package swagger

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Docs serves the OpenAPI document and a Swagger UI pointing at it.
type Docs struct {
	raw []byte
	doc *openapi3.T
}

// Load parses and validates an OpenAPI 3 document.
func Load(ctx context.Context, raw []byte) (*Docs, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return &Docs{raw: raw, doc: doc}, nil
}

func (d *Docs) Title() string {
	return d.doc.Info.Title
}

func (d *Docs) Version() string {
	return d.doc.Info.Version
}

// Operations lists "METHOD path" for every documented operation.
func (d *Docs) Operations() []string {
	var ops []string
	for path, item := range d.doc.Paths.Map() {
		for method := range item.Operations() {
			ops = append(ops, method+" "+path)
		}
	}
	sort.Strings(ops)
	return ops
}

func (d *Docs) ServeSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(d.raw)
}

func (d *Docs) UI() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}

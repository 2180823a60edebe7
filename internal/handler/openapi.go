package handler

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed openapi.yaml
var openAPISpec []byte

// LoadOpenAPI parses and validates the embedded OpenAPI document.
func LoadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("loading openapi document: %w", err)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validating openapi document: %w", err)
	}

	doc.Info.Version = Version

	return doc, nil
}

// DocsHandler serves the OpenAPI document as JSON.
type DocsHandler struct {
	body   []byte
	logger *zap.Logger
}

// NewDocsHandler renders doc once and returns a handler serving it.
func NewDocsHandler(doc *openapi3.T, logger *zap.Logger) (*DocsHandler, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding openapi document: %w", err)
	}
	return &DocsHandler{body: body, logger: logger}, nil
}

// RegisterRoutes registers the document route with the router.
func (h *DocsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/openapi.json", h.ServeDocument).Methods(http.MethodGet)
}

// ServeDocument handles GET /openapi.json requests.
func (h *DocsHandler) ServeDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.body); err != nil {
		h.logger.Debug("failed to write openapi document", zap.Error(err))
	}
}

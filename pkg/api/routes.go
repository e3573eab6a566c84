package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var embeddedDocument []byte

// Operation ids declared in the embedded document.
const (
	OpListForms       = "listForms"
	OpCreateForm      = "createForm"
	OpGetForm         = "getForm"
	OpUpdateForm      = "updateForm"
	OpDeleteForm      = "deleteForm"
	OpGetPublicForm   = "getPublicForm"
	OpSubmitResponse  = "submitResponse"
	OpGetAnalytics    = "getAnalytics"
	OpStreamAnalytics = "streamAnalytics"
)

// Route is one resolved operation.
type Route struct {
	ID     string
	Method string
	Path   string
	// Admin is set when the operation requires the admin API key.
	Admin bool
}

// Expand substitutes {name} placeholders with escaped params.
func (r Route) Expand(params map[string]string) (string, error) {
	path := r.Path
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	if strings.ContainsAny(path, "{}") {
		return "", fmt.Errorf("api: route %s: unresolved parameters in %q", r.ID, path)
	}
	return path, nil
}

// Routes maps operation ids to routes.
type Routes map[string]Route

// IDs returns the operation ids in sorted order.
func (r Routes) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var (
	defaultRoutesOnce sync.Once
	defaultRoutes     Routes
	defaultRoutesErr  error
)

// DefaultRoutes returns the routes of the embedded document, parsed once.
func DefaultRoutes() (Routes, error) {
	defaultRoutesOnce.Do(func() {
		defaultRoutes, defaultRoutesErr = ParseRoutes(context.Background(), embeddedDocument)
	})
	return defaultRoutes, defaultRoutesErr
}

// ParseRoutes loads an OpenAPI 3 document and indexes its operations by id.
func ParseRoutes(ctx context.Context, raw []byte) (Routes, error) {
	if len(raw) == 0 {
		return nil, errors.New("api: openapi document is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("api: load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("api: validate openapi document: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("api: openapi document does not contain any paths")
	}

	routes := make(Routes)
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil || op.OperationID == "" {
				continue
			}
			if _, dup := routes[op.OperationID]; dup {
				return nil, fmt.Errorf("api: duplicate operationId %q", op.OperationID)
			}
			routes[op.OperationID] = Route{
				ID:     op.OperationID,
				Method: method,
				Path:   path,
				Admin:  requiresAPIKey(op, doc.Security),
			}
		}
	}
	return routes, nil
}

func requiresAPIKey(op *openapi3.Operation, global openapi3.SecurityRequirements) bool {
	requirements := global
	if op.Security != nil {
		requirements = *op.Security
	}
	for _, req := range requirements {
		if _, ok := req["apiKey"]; ok {
			return true
		}
	}
	return false
}

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formsync/pkg/model"
)

// APIKeyHeader carries the admin key on admin routes.
const APIKeyHeader = "x-api-key"

// StatusError reports a non-2xx response.
type StatusError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("api: HTTP %d %s at %s", e.Status, http.StatusText(e.Status), e.Path)
	if e.Body != "" {
		msg += " - " + e.Body
	}
	return msg
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithAPIKey sets the admin key sent on admin routes.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout bounds each request. Zero leaves requests bounded only by the
// caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRoutes overrides the route table.
func WithRoutes(routes Routes) Option {
	return func(c *Client) {
		if routes != nil {
			c.routes = routes
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the forms backend rooted at a base URL.
type Client struct {
	base    string
	http    *http.Client
	apiKey  string
	timeout time.Duration
	routes  Routes
	logger  *slog.Logger
}

// New constructs a Client for base, for example "https://api.example.com".
func New(base string, options ...Option) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("api: base url is required")
	}
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		http:   http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.routes == nil {
		routes, err := DefaultRoutes()
		if err != nil {
			return nil, err
		}
		c.routes = routes
	}
	return c, nil
}

// Base reports the base URL.
func (c *Client) Base() string { return c.base }

func (c *Client) CreateForm(ctx context.Context, schema model.FormSchema) (model.FormSchema, error) {
	var out model.FormSchema
	err := c.do(ctx, OpCreateForm, nil, schema, &out)
	return out, err
}

func (c *Client) ListForms(ctx context.Context) ([]model.FormSchema, error) {
	var out []model.FormSchema
	err := c.do(ctx, OpListForms, nil, nil, &out)
	return out, err
}

func (c *Client) GetForm(ctx context.Context, id string) (model.FormSchema, error) {
	var out model.FormSchema
	err := c.do(ctx, OpGetForm, map[string]string{"id": id}, nil, &out)
	return out, err
}

func (c *Client) UpdateForm(ctx context.Context, id string, schema model.FormSchema) (model.FormSchema, error) {
	var out model.FormSchema
	err := c.do(ctx, OpUpdateForm, map[string]string{"id": id}, schema, &out)
	return out, err
}

func (c *Client) DeleteForm(ctx context.Context, id string) error {
	return c.do(ctx, OpDeleteForm, map[string]string{"id": id}, nil, nil)
}

// PublishForm marks the form published, setting slug when it is not empty.
func (c *Client) PublishForm(ctx context.Context, id, slug string) (model.FormSchema, error) {
	body := map[string]any{"status": model.StatusPublished}
	if slug != "" {
		body["slug"] = slug
	}
	var out model.FormSchema
	err := c.do(ctx, OpUpdateForm, map[string]string{"id": id}, body, &out)
	return out, err
}

func (c *Client) GetPublicForm(ctx context.Context, slug string) (model.FormSchema, error) {
	var out model.FormSchema
	err := c.do(ctx, OpGetPublicForm, map[string]string{"slug": slug}, nil, &out)
	return out, err
}

func (c *Client) SubmitResponse(ctx context.Context, formID string, response model.FormResponse) error {
	return c.do(ctx, OpSubmitResponse, map[string]string{"id": formID}, response, nil)
}

func (c *Client) GetAnalytics(ctx context.Context, formID string) (model.AnalyticsSnapshot, error) {
	var out model.AnalyticsSnapshot
	err := c.do(ctx, OpGetAnalytics, map[string]string{"id": formID}, nil, &out)
	return out, err
}

// StreamURL returns the absolute URL of the form's analytics feed, or an
// empty string when the route cannot be resolved.
func (c *Client) StreamURL(formID string) string {
	route, ok := c.routes[OpStreamAnalytics]
	if !ok || formID == "" {
		return ""
	}
	path, err := route.Expand(map[string]string{"id": formID})
	if err != nil {
		return ""
	}
	return c.base + path
}

// StreamHeader returns the headers the feed request should carry.
func (c *Client) StreamHeader() http.Header {
	header := http.Header{}
	if route, ok := c.routes[OpStreamAnalytics]; ok && route.Admin && c.apiKey != "" {
		header.Set(APIKeyHeader, c.apiKey)
	}
	return header
}

func (c *Client) do(ctx context.Context, opID string, params map[string]string, body, out any) error {
	route, ok := c.routes[opID]
	if !ok {
		return fmt.Errorf("api: unknown operation %q", opID)
	}
	path, err := route.Expand(params)
	if err != nil {
		return err
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: %s: encode body: %w", opID, err)
		}
		payload = bytes.NewReader(raw)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, route.Method, c.base+path, payload)
	if err != nil {
		return fmt.Errorf("api: %s: build request: %w", opID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if route.Admin && c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s: %w", opID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug("api request",
		"op", opID,
		"method", route.Method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			Status: resp.StatusCode,
			Method: route.Method,
			Path:   path,
			Body:   strings.TrimSpace(string(text)),
		}
	}

	if out == nil || !isJSON(resp.Header.Get("Content-Type")) {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: %s: read body: %w", opID, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: %s: decode body: %w", opID, err)
	}
	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

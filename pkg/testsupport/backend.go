package testsupport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/goliatone/go-formsync/pkg/model"
)

// Backend is an in-memory forms API served over httptest. It implements the
// routes of the embedded OpenAPI document closely enough to drive clients
// end to end.
type Backend struct {
	URL    string
	APIKey string

	server    *httptest.Server
	closeOnce sync.Once

	mu          sync.Mutex
	nextID      int
	forms       map[string]model.FormSchema
	responses   map[string][]model.FormResponse
	analytics   map[string]model.AnalyticsSnapshot
	subscribers map[string][]chan []byte
	failures    []int
	requests    []string
}

// NewBackend starts a backend that requires apiKey on admin routes when it is
// not empty. The server is closed when the test ends.
func NewBackend(t testing.TB, apiKey string) *Backend {
	t.Helper()

	gin.SetMode(gin.TestMode)
	b := &Backend{
		APIKey:      apiKey,
		forms:       map[string]model.FormSchema{},
		responses:   map[string][]model.FormResponse{},
		analytics:   map[string]model.AnalyticsSnapshot{},
		subscribers: map[string][]chan []byte{},
	}

	router := gin.New()
	router.Use(b.record, b.injectFailure)

	admin := router.Group("/forms", b.requireKey)
	admin.GET("", b.listForms)
	admin.POST("", b.createForm)
	admin.GET("/:id", b.getForm)
	admin.PATCH("/:id", b.updateForm)
	admin.DELETE("/:id", b.deleteForm)

	router.GET("/public/forms/:slug", b.publicForm)
	router.POST("/forms/:id/responses", b.submitResponse)
	router.GET("/forms/:id/analytics", b.getAnalytics)
	router.GET("/forms/:id/analytics/stream", b.streamAnalytics)

	b.server = httptest.NewServer(router)
	b.URL = b.server.URL
	t.Cleanup(b.Close)
	return b
}

// Close stops the server and disconnects feed subscribers.
func (b *Backend) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		for id, subs := range b.subscribers {
			for _, ch := range subs {
				close(ch)
			}
			delete(b.subscribers, id)
		}
		b.mu.Unlock()
		b.server.CloseClientConnections()
		b.server.Close()
	})
}

// Client returns an HTTP client for the server.
func (b *Backend) Client() *http.Client {
	return b.server.Client()
}

// PutForm stores schema as is, assigning an id when missing.
func (b *Backend) PutForm(schema model.FormSchema) model.FormSchema {
	b.mu.Lock()
	defer b.mu.Unlock()
	if schema.ID == "" {
		schema.ID = b.newIDLocked()
	}
	b.forms[schema.ID] = schema.Clone()
	return schema
}

// Form returns the stored form with id.
func (b *Backend) Form(id string) (model.FormSchema, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	form, ok := b.forms[id]
	return form.Clone(), ok
}

// Responses returns the responses submitted to formID.
func (b *Backend) Responses(formID string) []model.FormResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.FormResponse(nil), b.responses[formID]...)
}

// SetAnalytics stores the snapshot served for formID.
func (b *Backend) SetAnalytics(formID string, snapshot model.AnalyticsSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.analytics[formID] = snapshot.Clone()
}

// Push sends a raw payload to every feed subscriber of formID. Slow
// subscribers miss payloads once their buffer is full.
func (b *Backend) Push(formID string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers[formID] {
		select {
		case ch <- payload:
		default:
		}
	}
}

// PushDelta encodes delta and pushes it to subscribers of formID.
func (b *Backend) PushDelta(formID string, delta model.Delta) error {
	payload, err := json.Marshal(delta)
	if err != nil {
		return err
	}
	b.Push(formID, payload)
	return nil
}

// Subscribers reports how many feed connections formID has.
func (b *Backend) Subscribers(formID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers[formID])
}

// DropSubscribers disconnects every feed connection of formID.
func (b *Backend) DropSubscribers(formID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers[formID] {
		close(ch)
	}
	delete(b.subscribers, formID)
}

// FailNext makes the next request answer with status.
func (b *Backend) FailNext(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, status)
}

// Requests lists the "METHOD path" of every request served.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *Backend) record(c *gin.Context) {
	b.mu.Lock()
	b.requests = append(b.requests, c.Request.Method+" "+c.Request.URL.Path)
	b.mu.Unlock()
	c.Next()
}

func (b *Backend) injectFailure(c *gin.Context) {
	b.mu.Lock()
	status := 0
	if len(b.failures) > 0 {
		status = b.failures[0]
		b.failures = b.failures[1:]
	}
	b.mu.Unlock()
	if status != 0 {
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.Next()
}

func (b *Backend) requireKey(c *gin.Context) {
	if b.APIKey != "" && c.GetHeader("x-api-key") != b.APIKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (b *Backend) listForms(c *gin.Context) {
	b.mu.Lock()
	forms := make([]model.FormSchema, 0, len(b.forms))
	for _, form := range b.forms {
		forms = append(forms, form.Clone())
	}
	b.mu.Unlock()
	sort.Slice(forms, func(i, j int) bool { return forms[i].ID < forms[j].ID })
	c.JSON(http.StatusOK, forms)
}

func (b *Backend) createForm(c *gin.Context) {
	var form model.FormSchema
	if err := bindJSON(c, &form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	now := time.Now().UTC()
	b.mu.Lock()
	form.ID = b.newIDLocked()
	form.CreatedAt = &now
	form.UpdatedAt = &now
	if form.Status == "" {
		form.Status = model.StatusDraft
	}
	b.forms[form.ID] = form.Clone()
	b.mu.Unlock()
	c.JSON(http.StatusCreated, form)
}

func (b *Backend) getForm(c *gin.Context) {
	form, ok := b.Form(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}
	c.JSON(http.StatusOK, form)
}

func (b *Backend) updateForm(c *gin.Context) {
	var patch map[string]json.RawMessage
	if err := bindJSON(c, &patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	form, ok := b.forms[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}
	targets := map[string]any{
		"title":       &form.Title,
		"description": &form.Description,
		"slug":        &form.Slug,
		"status":      &form.Status,
		"fields":      &form.Fields,
	}
	for key, raw := range patch {
		dst, known := targets[key]
		if !known {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", key, err)})
			return
		}
	}
	if form.Status == model.StatusPublished && form.Slug != "" {
		for id, other := range b.forms {
			if id != form.ID && other.Slug == form.Slug {
				c.JSON(http.StatusConflict, gin.H{"error": "slug taken"})
				return
			}
		}
	}
	now := time.Now().UTC()
	form.UpdatedAt = &now
	b.forms[form.ID] = form.Clone()
	c.JSON(http.StatusOK, form)
}

func (b *Backend) deleteForm(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := c.Param("id")
	if _, ok := b.forms[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}
	delete(b.forms, id)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (b *Backend) publicForm(c *gin.Context) {
	slug := c.Param("slug")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, form := range b.forms {
		if form.Slug == slug && form.Status == model.StatusPublished {
			c.JSON(http.StatusOK, form)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
}

func (b *Backend) submitResponse(c *gin.Context) {
	var resp model.FormResponse
	if err := bindJSON(c, &resp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	b.mu.Lock()
	if _, ok := b.forms[id]; !ok {
		b.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}
	resp.FormID = id
	b.responses[id] = append(b.responses[id], resp)
	total := len(b.responses[id])
	snap := b.analyticsLocked(id)
	snap.TotalResponses = total
	b.analytics[id] = snap
	b.mu.Unlock()

	_ = b.PushDelta(id, model.Delta{TotalResponses: &total})
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (b *Backend) getAnalytics(c *gin.Context) {
	id := c.Param("id")
	b.mu.Lock()
	_, known := b.forms[id]
	snap, seeded := b.analytics[id]
	if !seeded {
		snap = b.analyticsLocked(id)
	}
	b.mu.Unlock()
	if !known && !seeded {
		c.JSON(http.StatusNotFound, gin.H{"error": "form not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (b *Backend) streamAnalytics(c *gin.Context) {
	id := c.Param("id")
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subscribers[id] = append(b.subscribers[id], ch)
	b.mu.Unlock()
	defer b.unsubscribe(id, ch)

	headers := c.Writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	c.Status(http.StatusOK)
	_, _ = fmt.Fprint(c.Writer, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case payload, open := <-ch:
			if !open {
				return
			}
			_, _ = fmt.Fprintf(c.Writer, "event: update\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (b *Backend) unsubscribe(formID string, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[formID]
	for i, sub := range subs {
		if sub == ch {
			b.subscribers[formID] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (b *Backend) analyticsLocked(formID string) model.AnalyticsSnapshot {
	if snap, ok := b.analytics[formID]; ok {
		return snap.Clone()
	}
	return model.AnalyticsSnapshot{
		FormID:         formID,
		TotalResponses: len(b.responses[formID]),
		Fields:         []model.FieldAnalytics{},
		UpdatedAt:      time.Now().UTC(),
	}
}

func (b *Backend) newIDLocked() string {
	b.nextID++
	return fmt.Sprintf("form-%d", b.nextID)
}

func bindJSON(c *gin.Context, dst any) error {
	decoder := json.NewDecoder(c.Request.Body)
	return decoder.Decode(dst)
}

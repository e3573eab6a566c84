package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-formsync/pkg/draft"
	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/validation"
)

// Store persists forms. *api.Client satisfies it.
type Store interface {
	CreateForm(ctx context.Context, schema model.FormSchema) (model.FormSchema, error)
	GetForm(ctx context.Context, id string) (model.FormSchema, error)
	UpdateForm(ctx context.Context, id string, schema model.FormSchema) (model.FormSchema, error)
	PublishForm(ctx context.Context, id, slug string) (model.FormSchema, error)
}

// Level classifies a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notice is a user-facing outcome message.
type Notice struct {
	Level Level
	Text  string
}

func (n Notice) String() string {
	return fmt.Sprintf("%s: %s", n.Level, n.Text)
}

// Result reports the outcome of Save or Publish.
type Result struct {
	Notice     Notice
	Violations validation.Violations
	Schema     model.FormSchema
}

// Blocked reports whether structural violations prevented the call.
func (r Result) Blocked() bool {
	return len(r.Violations) > 0
}

// Option configures a Session.
type Option func(*Session)

// WithEngine reuses an existing draft engine.
func WithEngine(engine *draft.Engine) Option {
	return func(s *Session) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session edits one form draft and persists it through a Store.
type Session struct {
	store  Store
	engine *draft.Engine
	logger *slog.Logger
}

// NewSession returns a session editing an empty draft.
func NewSession(store Store, options ...Option) *Session {
	s := &Session{store: store, logger: slog.Default()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.engine == nil {
		s.engine = draft.New(draft.WithLogger(s.logger))
	}
	return s
}

// Draft exposes the engine for edits.
func (s *Session) Draft() *draft.Engine {
	return s.engine
}

// Load seeds the draft from the stored form with id.
func (s *Session) Load(ctx context.Context, id string) (model.FormSchema, error) {
	form, err := s.store.GetForm(ctx, id)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("editor: load form %s: %w", id, err)
	}
	return s.engine.Seed(form).Schema, nil
}

// Save sanitises and validates the draft, then creates or updates it.
// Violations block the call and are reported in the result without
// contacting the store.
func (s *Session) Save(ctx context.Context) (Result, error) {
	schema := s.engine.Schema()
	clean := draft.Sanitize(schema)
	if violations := validation.ValidateSchema(clean.Fields); len(violations) > 0 {
		return blocked(schema, violations, "saving"), nil
	}

	if clean.ID == "" {
		clean.Status = model.StatusDraft
		created, err := s.store.CreateForm(ctx, clean)
		if err != nil {
			s.logger.Debug("form create failed", "error", err)
			return failed(schema, "Save failed"), fmt.Errorf("editor: create form: %w", err)
		}
		stored := s.adopt(created, clean)
		return Result{Notice: Notice{Level: LevelSuccess, Text: "Draft saved"}, Schema: stored}, nil
	}

	updated, err := s.store.UpdateForm(ctx, clean.ID, clean)
	if err != nil {
		s.logger.Debug("form update failed", "form_id", clean.ID, "error", err)
		return failed(schema, "Save failed"), fmt.Errorf("editor: update form %s: %w", clean.ID, err)
	}
	stored := s.adopt(updated, clean)
	return Result{Notice: Notice{Level: LevelSuccess, Text: "Saved"}, Schema: stored}, nil
}

// Publish validates the draft, saves it when it has never been stored and
// marks it published. An empty slug is derived from the draft's slug or
// title.
func (s *Session) Publish(ctx context.Context, slug string) (Result, error) {
	schema := s.engine.Schema()
	if violations := validation.ValidateSchema(draft.Sanitize(schema).Fields); len(violations) > 0 {
		return blocked(schema, violations, "publishing"), nil
	}

	if schema.ID == "" {
		saved, err := s.Save(ctx)
		if err != nil {
			return failed(schema, "Publish failed"), err
		}
		schema = saved.Schema
	}

	if slug == "" {
		derived, err := Slugify(schema.Slug, schema.Title)
		if err != nil {
			derived, _ = Slugify(schema.ID, "form")
		}
		slug = derived
	} else {
		slug = slugify(slug)
	}

	published, err := s.store.PublishForm(ctx, schema.ID, slug)
	if err != nil {
		s.logger.Debug("form publish failed", "form_id", schema.ID, "error", err)
		return failed(schema, "Publish failed"), fmt.Errorf("editor: publish form %s: %w", schema.ID, err)
	}
	if published.Slug == "" {
		return failed(schema, "Publish failed"), nil
	}

	res := s.engine.SetMeta(draft.MetaPatch{
		Status: draft.StatusPtr(model.StatusPublished),
		Slug:   draft.String(published.Slug),
	})
	return Result{Notice: Notice{Level: LevelSuccess, Text: "Published"}, Schema: res.Schema}, nil
}

// adopt records the stored id and timestamps on the draft without
// discarding local content.
func (s *Session) adopt(stored, sent model.FormSchema) model.FormSchema {
	next := sent
	if stored.ID != "" {
		next.ID = stored.ID
	}
	if stored.CreatedAt != nil {
		next.CreatedAt = stored.CreatedAt
	}
	if stored.UpdatedAt != nil {
		next.UpdatedAt = stored.UpdatedAt
	}
	return s.engine.Seed(next).Schema
}

func blocked(schema model.FormSchema, violations validation.Violations, action string) Result {
	return Result{
		Notice: Notice{
			Level: LevelError,
			Text:  fmt.Sprintf("Fix %d issue(s) before %s", len(violations), action),
		},
		Violations: violations,
		Schema:     schema,
	}
}

func failed(schema model.FormSchema, text string) Result {
	return Result{Notice: Notice{Level: LevelError, Text: text}, Schema: schema}
}

package respond

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/validation"
)

// ErrNotLoaded is returned by Submit before a form has been loaded.
var ErrNotLoaded = errors.New("respond: no form loaded")

// Store fetches published forms and accepts responses. *api.Client
// satisfies it.
type Store interface {
	GetPublicForm(ctx context.Context, slug string) (model.FormSchema, error)
	SubmitResponse(ctx context.Context, formID string, response model.FormResponse) error
}

// Option configures a Session.
type Option func(*Session)

// WithNow overrides the clock stamping submitted responses.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session holds one respondent's answers for a published form.
type Session struct {
	store Store
	now   func() time.Time

	mu        sync.Mutex
	schema    *model.FormSchema
	raw       *orderedmap.OrderedMap[string, any]
	errors    map[string]string
	submitted bool
}

// NewSession returns an empty session.
func NewSession(store Store, options ...Option) *Session {
	s := &Session{
		store:  store,
		now:    time.Now,
		raw:    orderedmap.New[string, any](),
		errors: map[string]string{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Load fetches the published form with slug and clears previous answers.
func (s *Session) Load(ctx context.Context, slug string) (model.FormSchema, error) {
	form, err := s.store.GetPublicForm(ctx, slug)
	if err != nil {
		return model.FormSchema{}, fmt.Errorf("respond: load form %q: %w", slug, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = &form
	s.raw = orderedmap.New[string, any]()
	s.errors = map[string]string{}
	s.submitted = false
	return form.Clone(), nil
}

// Schema returns the loaded form.
func (s *Session) Schema() (model.FormSchema, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schema == nil {
		return model.FormSchema{}, false
	}
	return s.schema.Clone(), true
}

// SetAnswer records the raw input for fieldID. Values are coerced to the
// field's kind when read back through Answers.
func (s *Session) SetAnswer(fieldID string, raw any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.Set(fieldID, raw)
}

// Answers returns the recorded answers in the order they were first set.
func (s *Session) Answers() []model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answersLocked()
}

// Errors returns the messages from the last Submit.
func (s *Session) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

// Submitted reports whether a response was accepted.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitted
}

// Submit validates the answers and sends them. It returns the per-field
// errors; when any exist nothing is sent.
func (s *Session) Submit(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	if s.schema == nil || s.schema.ID == "" {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	answers := s.answersLocked()
	errs := validation.ValidateAnswers(s.schema.Fields, answers)
	s.errors = errs
	formID := s.schema.ID
	s.mu.Unlock()

	if len(errs) > 0 {
		return errs, nil
	}

	submittedAt := s.now().UTC()
	response := model.FormResponse{FormID: formID, SubmittedAt: &submittedAt, Answers: answers}
	if err := s.store.SubmitResponse(ctx, formID, response); err != nil {
		return nil, fmt.Errorf("respond: submit response: %w", err)
	}

	s.mu.Lock()
	s.submitted = true
	s.mu.Unlock()
	return errs, nil
}

func (s *Session) answersLocked() []model.Answer {
	kinds := map[string]model.Kind{}
	if s.schema != nil {
		for _, f := range s.schema.Fields {
			kinds[f.ID] = f.Kind()
		}
	}
	out := make([]model.Answer, 0, s.raw.Len())
	for pair := s.raw.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, model.Answer{
			FieldID: pair.Key,
			Value:   Coerce(kinds[pair.Key], pair.Value),
		})
	}
	return out
}

// Coerce converts raw input to the answer value of kind: ratings become
// numbers, checkboxes lists and everything else text. Rating input that is
// not numeric is kept as text so validation can reject it.
func Coerce(kind model.Kind, raw any) model.AnswerValue {
	switch kind {
	case model.KindRating:
		if n, ok := number(raw); ok {
			return model.NumberValue(n)
		}
		return model.TextValue(text(raw))
	case model.KindCheckbox:
		return model.ChoicesValue(list(raw))
	default:
		return model.TextValue(text(raw))
	}
}

func number(raw any) (float64, bool) {
	switch v := raw.(type) {
	case model.NumberValue:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	case model.TextValue:
		return number(string(v))
	default:
		return 0, false
	}
}

func list(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return []string{}
	case model.ChoicesValue:
		return append([]string{}, v...)
	case []string:
		return append([]string{}, v...)
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = text(item)
		}
		return out
	default:
		return []string{text(raw)}
	}
}

func text(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case model.TextValue:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}

package draft

import (
	"log/slog"
	"sync"

	"github.com/goliatone/go-formsync/pkg/model"
)

// Option configures an Engine.
type Option func(*Engine)

// WithInitial starts the engine from schema, coerced as if seeded.
func WithInitial(schema model.FormSchema) Option {
	return func(e *Engine) {
		e.initial = &schema
	}
}

// WithIDGenerator overrides the UUID generator used for new fields and
// options.
func WithIDGenerator(fn IDFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.reducer.NewID = fn
		}
	}
}

// WithLogger sets the logger used to trace applied operations.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Result reports the outcome of one Apply call.
type Result struct {
	Op      string
	Changed bool
	// FieldID is the id of the field created by AddField.
	FieldID string
	Schema  model.FormSchema
}

// Engine owns one draft and serialises every edit through Apply.
type Engine struct {
	mu      sync.Mutex
	state   model.FormSchema
	reducer Reducer
	logger  *slog.Logger
	initial *model.FormSchema
}

// New constructs an Engine holding an empty draft unless WithInitial is
// supplied.
func New(options ...Option) *Engine {
	e := &Engine{
		state:  model.NewFormSchema(),
		logger: slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.initial != nil {
		e.state, _ = e.reducer.Reduce(e.state, Seed{Schema: *e.initial})
		e.initial = nil
	}
	return e
}

// Apply runs op against the current draft. It is the only path that mutates
// the draft; concurrent callers are applied one after another.
func (e *Engine) Apply(op Op) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := len(e.state.Fields)
	next, changed := e.reducer.Reduce(e.state, op)
	e.state = next

	result := Result{Op: op.Name(), Changed: changed, Schema: next.Clone()}
	if _, ok := op.(AddField); ok && len(next.Fields) > before {
		result.FieldID = next.Fields[len(next.Fields)-1].ID
	}

	e.logger.Debug("draft op applied",
		"op", result.Op,
		"changed", changed,
		"fields", len(next.Fields),
	)
	return result
}

// Schema returns a copy of the current draft.
func (e *Engine) Schema() model.FormSchema {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

func (e *Engine) Seed(schema model.FormSchema) Result {
	return e.Apply(Seed{Schema: schema})
}

func (e *Engine) SetMeta(patch MetaPatch) Result {
	return e.Apply(SetMeta{Patch: patch})
}

func (e *Engine) AddField(kind model.Kind) Result {
	return e.Apply(AddField{Kind: kind})
}

func (e *Engine) UpdateField(id string, patch FieldPatch) Result {
	return e.Apply(UpdateField{ID: id, Patch: patch})
}

func (e *Engine) RemoveField(id string) Result {
	return e.Apply(RemoveField{ID: id})
}

func (e *Engine) Reorder(from, to int) Result {
	return e.Apply(Reorder{From: from, To: to})
}

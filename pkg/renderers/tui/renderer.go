package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formsync/pkg/model"
	"github.com/goliatone/go-formsync/pkg/respond"
	"github.com/goliatone/go-formsync/pkg/validation"
)

const skipOption = "(skip)"

// Renderer fills a form from the terminal, one prompt per field.
type Renderer struct {
	driver      PromptDriver
	prefill     []model.Answer
	maxAttempts int
	theme       Theme
}

// New constructs a TUI renderer using the survey driver unless another is
// supplied.
func New(options ...Option) *Renderer {
	r := &Renderer{
		theme: Theme{ErrorPrefix: "✗ "},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// Fill prompts every field of schema and returns the collected answers in
// field order. Each answer is validated as it is entered and the field is
// prompted again while validation fails.
func (r *Renderer) Fill(ctx context.Context, schema model.FormSchema) ([]model.Answer, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}

	if schema.Title != "" {
		if err := r.driver.Info(ctx, r.theme.InfoPrefix+schema.Title); err != nil {
			return nil, err
		}
	}

	state := NewState(r.prefill)
	for _, field := range schema.Fields {
		if err := r.promptField(ctx, field, state); err != nil {
			return nil, err
		}
	}
	return state.Answers(schema.Fields), nil
}

func (r *Renderer) promptField(ctx context.Context, field model.Field, state *State) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		value, err := r.ask(ctx, field, state)
		if err != nil {
			return err
		}

		msg := validation.ValidateAnswer(field, model.Answer{FieldID: field.ID, Value: value})
		if msg == "" {
			state.Set(field.ID, value)
			return nil
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			return fmt.Errorf("%w: %s: %s", ErrTooManyAttempts, field.Label, msg)
		}
		if err := r.driver.Info(ctx, r.theme.ErrorPrefix+msg); err != nil {
			return err
		}
	}
}

func (r *Renderer) ask(ctx context.Context, field model.Field, state *State) (model.AnswerValue, error) {
	prev, _ := state.Get(field.ID)
	message := displayLabel(field)

	switch spec := field.Spec.(type) {
	case model.MultipleSpec:
		return r.askChoice(ctx, field, spec.Options, prev)
	case model.CheckboxSpec:
		return r.askChoices(ctx, field, spec.Options, prev)
	case model.RatingSpec:
		return r.askRating(ctx, field, spec, prev)
	default:
		text, err := r.driver.Input(ctx, InputConfig{
			Message: message,
			Default: textOf(prev),
			Help:    displayHelp(field),
		})
		if err != nil {
			return nil, err
		}
		return respond.Coerce(model.KindText, strings.TrimSpace(text)), nil
	}
}

func (r *Renderer) askChoice(ctx context.Context, field model.Field, options []model.Option, prev model.AnswerValue) (model.AnswerValue, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChoices, field.ID)
	}
	labels := optionLabels(options)
	if !field.Required {
		labels = append(labels, skipOption)
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      displayLabel(field),
		Options:      labels,
		DefaultIndex: optionIndex(options, textOf(prev)),
		Help:         displayHelp(field),
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(options) {
		return model.TextValue(""), nil
	}
	return respond.Coerce(model.KindMultiple, options[idx].Value), nil
}

func (r *Renderer) askChoices(ctx context.Context, field model.Field, options []model.Option, prev model.AnswerValue) (model.AnswerValue, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChoices, field.ID)
	}
	var defaults []int
	if chosen, ok := prev.(model.ChoicesValue); ok {
		for _, v := range chosen {
			if i := optionIndex(options, v); i >= 0 {
				defaults = append(defaults, i)
			}
		}
	}
	indices, err := r.driver.MultiSelect(ctx, SelectConfig{
		Message:  displayLabel(field),
		Options:  optionLabels(options),
		Defaults: defaults,
		Help:     displayHelp(field),
	})
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(options) {
			values = append(values, options[i].Value)
		}
	}
	return respond.Coerce(model.KindCheckbox, values), nil
}

func (r *Renderer) askRating(ctx context.Context, field model.Field, spec model.RatingSpec, prev model.AnswerValue) (model.AnswerValue, error) {
	scale := Scale(spec)
	if len(scale) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChoices, field.ID)
	}
	labels := make([]string, len(scale))
	for i, n := range scale {
		labels[i] = strconv.Itoa(n)
	}
	if !field.Required {
		labels = append(labels, skipOption)
	}
	def := -1
	if n, ok := prev.(model.NumberValue); ok {
		def = indexOf(labels, strconv.Itoa(int(n)))
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      displayLabel(field),
		Options:      labels,
		DefaultIndex: def,
		Help:         displayHelp(field),
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(scale) {
		return nil, nil
	}
	return respond.Coerce(model.KindRating, scale[idx]), nil
}

// MaxScale bounds the number of values a rating prompt offers.
const MaxScale = 100

// Scale lists the selectable values of a rating from Min to Max by Step. It
// is empty when Max is below Min or the range holds more than MaxScale
// values.
func Scale(spec model.RatingSpec) []int {
	step := spec.Step
	if step <= 0 {
		step = model.DefaultRatingStep
	}
	if spec.Max < spec.Min {
		return nil
	}
	span := uint64(spec.Max) - uint64(spec.Min)
	count := span/uint64(step) + 1
	if count > MaxScale {
		return nil
	}
	out := make([]int, int(count))
	for i := range out {
		out[i] = spec.Min + i*step
	}
	return out
}

func displayLabel(field model.Field) string {
	label := strings.TrimSpace(field.Label)
	if label == "" {
		label = field.ID
	}
	if field.Required {
		label += " *"
	}
	return label
}

func displayHelp(field model.Field) string {
	help := strings.TrimSpace(field.HelpText)
	if spec, ok := field.Spec.(model.TextSpec); ok && help == "" {
		help = strings.TrimSpace(spec.Placeholder)
	}
	return help
}

func optionLabels(options []model.Option) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		label := strings.TrimSpace(opt.Label)
		if label == "" {
			label = opt.Value
		}
		out[i] = label
	}
	return out
}

func optionIndex(options []model.Option, value string) int {
	if value == "" {
		return -1
	}
	for i, opt := range options {
		if opt.Value == value || opt.ID == value {
			return i
		}
	}
	return -1
}

func textOf(value model.AnswerValue) string {
	if v, ok := value.(model.TextValue); ok {
		return string(v)
	}
	return ""
}

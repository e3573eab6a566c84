package model

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Kind is the discriminant of the Field union.
type Kind string

const (
	KindText     Kind = "text"
	KindMultiple Kind = "multiple"
	KindCheckbox Kind = "checkbox"
	KindRating   Kind = "rating"
)

// Kinds lists every supported field kind in palette order.
var Kinds = []Kind{KindText, KindMultiple, KindCheckbox, KindRating}

// Valid reports whether k names a supported field kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindMultiple, KindCheckbox, KindRating:
		return true
	default:
		return false
	}
}

// Defaults applied to freshly created and coerced fields.
const (
	DefaultLabel      = "Untitled"
	DefaultRatingMin  = 1
	DefaultRatingMax  = 5
	DefaultRatingStep = 1
)

// Option is one selectable choice of a Multiple or Checkbox field. ID is
// unique within its field; Value is the token submitted as the answer.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Spec holds the attributes owned by a single field kind. The interface is
// sealed; the concrete types are TextSpec, MultipleSpec, CheckboxSpec and
// RatingSpec.
type Spec interface {
	Kind() Kind
	isSpec()
}

// TextSpec carries the Text variant attributes. A nil length bound means no
// constraint.
type TextSpec struct {
	Placeholder string
	Pattern     string
	MinLength   *int
	MaxLength   *int
}

// MultipleSpec carries the single-choice variant attributes.
type MultipleSpec struct {
	Options    []Option
	AllowOther bool
}

// CheckboxSpec carries the multi-choice variant attributes.
type CheckboxSpec struct {
	Options []Option
}

// RatingSpec carries the Rating variant attributes.
type RatingSpec struct {
	Min  int
	Max  int
	Step int
}

func (TextSpec) Kind() Kind     { return KindText }
func (MultipleSpec) Kind() Kind { return KindMultiple }
func (CheckboxSpec) Kind() Kind { return KindCheckbox }
func (RatingSpec) Kind() Kind   { return KindRating }

func (TextSpec) isSpec()     {}
func (MultipleSpec) isSpec() {}
func (CheckboxSpec) isSpec() {}
func (RatingSpec) isSpec()   {}

// Field is one question of a form.
type Field struct {
	ID       string
	Label    string
	Required bool
	HelpText string
	Spec     Spec
}

// Kind reports the field kind. A field without a spec is treated as text.
func (f Field) Kind() Kind {
	if f.Spec == nil {
		return KindText
	}
	return f.Spec.Kind()
}

// Options returns the options of choice fields and nil for other kinds.
func (f Field) Options() []Option {
	switch spec := f.Spec.(type) {
	case MultipleSpec:
		return spec.Options
	case CheckboxSpec:
		return spec.Options
	default:
		return nil
	}
}

// Clone returns a deep copy so callers can hand fields out without sharing
// option slices or length pointers.
func (f Field) Clone() Field {
	out := f
	switch spec := f.Spec.(type) {
	case TextSpec:
		spec.MinLength = cloneInt(spec.MinLength)
		spec.MaxLength = cloneInt(spec.MaxLength)
		out.Spec = spec
	case MultipleSpec:
		spec.Options = CloneOptions(spec.Options)
		out.Spec = spec
	case CheckboxSpec:
		spec.Options = CloneOptions(spec.Options)
		out.Spec = spec
	}
	return out
}

// CloneOptions copies an option slice, preserving nil.
func CloneOptions(options []Option) []Option {
	if options == nil {
		return nil
	}
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// Int returns a pointer to v, for optional integer attributes.
func Int(v int) *int {
	return &v
}

type fieldWire struct {
	ID          string    `json:"id"`
	Type        Kind      `json:"type"`
	Label       string    `json:"label"`
	Required    bool      `json:"required"`
	HelpText    string    `json:"helpText,omitempty"`
	Placeholder *string   `json:"placeholder,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	MinLength   *int      `json:"minLength,omitempty"`
	MaxLength   *int      `json:"maxLength,omitempty"`
	Options     *[]Option `json:"options,omitempty"`
	AllowOther  *bool     `json:"allowOther,omitempty"`
	Min         *int      `json:"min,omitempty"`
	Max         *int      `json:"max,omitempty"`
	Step        *int      `json:"step,omitempty"`
}

// MarshalJSON flattens the field into its wire shape.
func (f Field) MarshalJSON() ([]byte, error) {
	wire := fieldWire{
		ID:       f.ID,
		Type:     f.Kind(),
		Label:    f.Label,
		Required: f.Required,
		HelpText: f.HelpText,
	}
	switch spec := f.Spec.(type) {
	case nil:
		empty := ""
		wire.Placeholder = &empty
	case TextSpec:
		wire.Placeholder = &spec.Placeholder
		wire.Pattern = spec.Pattern
		wire.MinLength = spec.MinLength
		wire.MaxLength = spec.MaxLength
	case MultipleSpec:
		opts := nonNilOptions(spec.Options)
		wire.Options = &opts
		wire.AllowOther = &spec.AllowOther
	case CheckboxSpec:
		opts := nonNilOptions(spec.Options)
		wire.Options = &opts
	case RatingSpec:
		wire.Min = &spec.Min
		wire.Max = &spec.Max
		wire.Step = &spec.Step
	default:
		return nil, fmt.Errorf("model: unsupported field spec %T", f.Spec)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the wire shape. Decoding is lenient: an unknown type
// yields a text field and missing variant attributes take their defaults.
// Untrusted documents should go through draft coercion instead.
func (f *Field) UnmarshalJSON(data []byte) error {
	var wire fieldWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*f = Field{
		ID:       wire.ID,
		Label:    wire.Label,
		Required: wire.Required,
		HelpText: wire.HelpText,
	}
	switch wire.Type {
	case KindMultiple:
		spec := MultipleSpec{Options: []Option{}}
		if wire.Options != nil {
			spec.Options = nonNilOptions(*wire.Options)
		}
		if wire.AllowOther != nil {
			spec.AllowOther = *wire.AllowOther
		}
		f.Spec = spec
	case KindCheckbox:
		spec := CheckboxSpec{Options: []Option{}}
		if wire.Options != nil {
			spec.Options = nonNilOptions(*wire.Options)
		}
		f.Spec = spec
	case KindRating:
		spec := RatingSpec{Min: DefaultRatingMin, Max: DefaultRatingMax, Step: DefaultRatingStep}
		if wire.Min != nil {
			spec.Min = *wire.Min
		}
		if wire.Max != nil {
			spec.Max = *wire.Max
		}
		if wire.Step != nil {
			spec.Step = *wire.Step
		}
		f.Spec = spec
	default:
		spec := TextSpec{
			Pattern:   wire.Pattern,
			MinLength: wire.MinLength,
			MaxLength: wire.MaxLength,
		}
		if wire.Placeholder != nil {
			spec.Placeholder = *wire.Placeholder
		}
		f.Spec = spec
	}
	return nil
}

func nonNilOptions(options []Option) []Option {
	if options == nil {
		return []Option{}
	}
	return options
}

package draft

import (
	"reflect"

	"github.com/goliatone/go-formsync/pkg/model"
)

// Reducer applies operations to a schema. The zero value generates UUIDs.
type Reducer struct {
	NewID IDFunc
}

// Reduce applies op to state with the default id generator.
func Reduce(state model.FormSchema, op Op) model.FormSchema {
	next, _ := Reducer{}.Reduce(state, op)
	return next
}

// Reduce returns the next state and whether anything changed. The input
// state is never modified.
func (r Reducer) Reduce(state model.FormSchema, op Op) (model.FormSchema, bool) {
	newID := r.NewID
	if newID == nil {
		newID = defaultIDFunc
	}

	switch o := op.(type) {
	case Seed:
		next := o.Schema.Clone()
		next.Fields = coerceFields(o.Schema.Fields, newID)
		if !next.Status.Valid() {
			next.Status = model.StatusDraft
		}
		return next, true

	case SetMeta:
		return applyMeta(state, o.Patch)

	case AddField:
		next := state.Clone()
		next.Fields = append(next.Fields, newField(o.Kind, newID))
		return next, true

	case UpdateField:
		idx := indexOf(state.Fields, o.ID)
		if idx < 0 {
			return state, false
		}
		merged := mergeField(state.Fields[idx], o.Patch)
		if reflect.DeepEqual(merged, state.Fields[idx]) {
			return state, false
		}
		next := state.Clone()
		next.Fields[idx] = merged
		return next, true

	case RemoveField:
		if indexOf(state.Fields, o.ID) < 0 {
			return state, false
		}
		next := state.Clone()
		kept := next.Fields[:0]
		for _, field := range next.Fields {
			if field.ID != o.ID {
				kept = append(kept, field)
			}
		}
		next.Fields = kept
		return next, true

	case Reorder:
		n := len(state.Fields)
		if n == 0 {
			return state, false
		}
		from, to := clamp(o.From, 0, n-1), clamp(o.To, 0, n-1)
		if from == to {
			return state, false
		}
		next := state.Clone()
		moved := next.Fields[from]
		rest := append(next.Fields[:from:from], next.Fields[from+1:]...)
		fields := make([]model.Field, 0, n)
		fields = append(fields, rest[:to]...)
		fields = append(fields, moved)
		fields = append(fields, rest[to:]...)
		next.Fields = fields
		return next, true

	default:
		return state, false
	}
}

func applyMeta(state model.FormSchema, patch MetaPatch) (model.FormSchema, bool) {
	next := state.Clone()
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Slug != nil {
		next.Slug = *patch.Slug
	}
	if patch.Status != nil {
		next.Status = *patch.Status
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	changed := next.Title != state.Title ||
		next.Slug != state.Slug ||
		next.Status != state.Status ||
		next.Description != state.Description
	if !changed {
		return state, false
	}
	return next, true
}

// newField builds a field of kind with its defaults. Unknown kinds produce a
// text field.
func newField(kind model.Kind, newID IDFunc) model.Field {
	field := model.Field{
		ID:    newID(),
		Label: model.DefaultLabel,
	}
	switch kind {
	case model.KindMultiple:
		field.Spec = model.MultipleSpec{Options: []model.Option{}}
	case model.KindCheckbox:
		field.Spec = model.CheckboxSpec{Options: []model.Option{}}
	case model.KindRating:
		field.Spec = model.RatingSpec{
			Min:  model.DefaultRatingMin,
			Max:  model.DefaultRatingMax,
			Step: model.DefaultRatingStep,
		}
	default:
		field.Spec = model.TextSpec{}
	}
	return field
}

// mergeField applies the common attributes of patch and then only the
// attributes owned by the field's own kind. ID and kind never change.
func mergeField(f model.Field, patch FieldPatch) model.Field {
	out := f.Clone()
	if patch.Label != nil {
		out.Label = *patch.Label
	}
	if patch.Required != nil {
		out.Required = *patch.Required
	}
	if patch.HelpText != nil {
		out.HelpText = *patch.HelpText
	}

	switch spec := out.Spec.(type) {
	case model.TextSpec:
		out.Spec = mergeText(spec, patch)
	case nil:
		out.Spec = mergeText(model.TextSpec{}, patch)
	case model.MultipleSpec:
		if patch.Options != nil {
			spec.Options = model.CloneOptions(patch.Options)
		}
		if patch.AllowOther != nil {
			spec.AllowOther = *patch.AllowOther
		}
		out.Spec = spec
	case model.CheckboxSpec:
		if patch.Options != nil {
			spec.Options = model.CloneOptions(patch.Options)
		}
		out.Spec = spec
	case model.RatingSpec:
		if patch.Min != nil {
			spec.Min = *patch.Min
		}
		if patch.Max != nil {
			spec.Max = *patch.Max
		}
		if patch.Step != nil && *patch.Step > 0 {
			spec.Step = *patch.Step
		}
		out.Spec = spec
	}
	return out
}

func mergeText(spec model.TextSpec, patch FieldPatch) model.TextSpec {
	if patch.Placeholder != nil {
		spec.Placeholder = *patch.Placeholder
	}
	if patch.Pattern != nil {
		spec.Pattern = *patch.Pattern
	}
	if patch.MinLength != nil {
		spec.MinLength = model.Int(*patch.MinLength)
	}
	if patch.MaxLength != nil {
		spec.MaxLength = model.Int(*patch.MaxLength)
	}
	return spec
}

func indexOf(fields []model.Field, id string) int {
	for i, field := range fields {
		if field.ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

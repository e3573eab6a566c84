package draft

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formsync/pkg/model"
)

// IDFunc generates field and option identifiers.
type IDFunc func() string

func defaultIDFunc() string {
	return uuid.NewString()
}

// Coerce normalises an untrusted field into a fully defaulted model.Field.
// It accepts a model.Field, a *model.Field or a decoded map. Missing ids are
// generated, unknown kinds become text fields and per-kind attributes are
// defaulted. Coerce(Coerce(x)) equals Coerce(x).
func Coerce(raw any) model.Field {
	return coerceWith(raw, defaultIDFunc)
}

func coerceWith(raw any, newID IDFunc) model.Field {
	switch v := raw.(type) {
	case model.Field:
		return coerceTyped(v, newID)
	case *model.Field:
		if v == nil {
			return newField(model.KindText, newID)
		}
		return coerceTyped(*v, newID)
	case map[string]any:
		return coerceMap(v, newID)
	case map[any]any:
		return coerceMap(stringKeys(v), newID)
	default:
		return newField(model.KindText, newID)
	}
}

func coerceTyped(f model.Field, newID IDFunc) model.Field {
	out := f.Clone()
	if strings.TrimSpace(out.ID) == "" {
		out.ID = newID()
	}
	switch spec := out.Spec.(type) {
	case nil:
		out.Spec = model.TextSpec{}
	case model.TextSpec:
	case model.MultipleSpec:
		spec.Options = fillOptionIDs(spec.Options, newID)
		out.Spec = spec
	case model.CheckboxSpec:
		spec.Options = fillOptionIDs(spec.Options, newID)
		out.Spec = spec
	case model.RatingSpec:
		if spec.Step <= 0 {
			spec.Step = model.DefaultRatingStep
		}
		out.Spec = spec
	}
	return out
}

func coerceMap(raw map[string]any, newID IDFunc) model.Field {
	field := model.Field{
		ID:       strings.TrimSpace(stringOf(raw["id"])),
		Label:    model.DefaultLabel,
		Required: truthy(raw["required"]),
	}
	if field.ID == "" {
		field.ID = newID()
	}
	if v, ok := raw["label"]; ok && v != nil {
		field.Label = stringOf(v)
	}
	if v, ok := raw["helpText"].(string); ok {
		field.HelpText = v
	}

	kind := model.Kind(stringOf(raw["type"]))
	if kind == "" {
		kind = model.Kind(stringOf(raw["kind"]))
	}

	switch kind {
	case model.KindMultiple:
		items, _ := listOf(raw["options"])
		field.Spec = model.MultipleSpec{
			Options:    coerceOptions(items, newID),
			AllowOther: truthy(raw["allowOther"]),
		}
	case model.KindCheckbox:
		items, _ := listOf(raw["options"])
		field.Spec = model.CheckboxSpec{Options: coerceOptions(items, newID)}
	case model.KindRating:
		spec := model.RatingSpec{
			Min:  model.DefaultRatingMin,
			Max:  model.DefaultRatingMax,
			Step: model.DefaultRatingStep,
		}
		if n, ok := integer(raw["min"]); ok {
			spec.Min = n
		}
		if n, ok := integer(raw["max"]); ok {
			spec.Max = n
		}
		if n, ok := integer(raw["step"]); ok && n > 0 {
			spec.Step = n
		}
		field.Spec = spec
	default:
		spec := model.TextSpec{}
		if v, ok := raw["placeholder"].(string); ok {
			spec.Placeholder = v
		}
		if v, ok := raw["pattern"].(string); ok {
			spec.Pattern = v
		}
		if n, ok := integer(raw["minLength"]); ok {
			spec.MinLength = model.Int(n)
		}
		if n, ok := integer(raw["maxLength"]); ok {
			spec.MaxLength = model.Int(n)
		}
		field.Spec = spec
	}
	return field
}

// CoerceSchema normalises a decoded form document. Unknown statuses fall back
// to draft and a missing title to the default label.
func CoerceSchema(raw map[string]any) model.FormSchema {
	return coerceSchemaWith(raw, defaultIDFunc)
}

func coerceSchemaWith(raw map[string]any, newID IDFunc) model.FormSchema {
	schema := model.NewFormSchema()
	schema.ID = stringOf(raw["_id"])
	if schema.ID == "" {
		schema.ID = stringOf(raw["id"])
	}
	if v, ok := raw["title"]; ok && v != nil {
		schema.Title = stringOf(v)
	}
	if v, ok := raw["description"].(string); ok {
		schema.Description = v
	}
	if v, ok := raw["slug"].(string); ok {
		schema.Slug = v
	}
	if status := model.Status(stringOf(raw["status"])); status.Valid() {
		schema.Status = status
	}
	schema.CreatedAt = timeOf(raw["createdAt"])
	schema.UpdatedAt = timeOf(raw["updatedAt"])

	items, _ := listOf(raw["fields"])
	schema.Fields = coerceFields(items, newID)
	return schema
}

// coerceFields coerces every entry and re-issues ids that repeat an earlier
// field's id so the schema keeps unique ids.
func coerceFields[T any](items []T, newID IDFunc) []model.Field {
	out := make([]model.Field, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		field := coerceWith(item, newID)
		if _, dup := seen[field.ID]; dup {
			field.ID = newID()
		}
		seen[field.ID] = struct{}{}
		out = append(out, field)
	}
	return out
}

func coerceOptions(items []any, newID IDFunc) []model.Option {
	out := make([]model.Option, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case model.Option:
			out = append(out, v)
		case map[string]any:
			out = append(out, model.Option{
				ID:    stringOf(v["id"]),
				Label: stringOf(v["label"]),
				Value: stringOf(v["value"]),
			})
		case map[any]any:
			m := stringKeys(v)
			out = append(out, model.Option{
				ID:    stringOf(m["id"]),
				Label: stringOf(m["label"]),
				Value: stringOf(m["value"]),
			})
		case string:
			out = append(out, model.Option{Label: v, Value: v})
		}
	}
	return fillOptionIDs(out, newID)
}

func fillOptionIDs(options []model.Option, newID IDFunc) []model.Option {
	out := make([]model.Option, len(options))
	for i, opt := range options {
		if strings.TrimSpace(opt.ID) == "" {
			opt.ID = newID()
		}
		out[i] = opt
	}
	return out
}

func stringOf(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		if typed == math.Trunc(typed) && !math.IsInf(typed, 0) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprint(typed)
	default:
		return fmt.Sprint(typed)
	}
}

// truthy mirrors loose boolean coercion of legacy payloads.
func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0 && !math.IsNaN(typed)
	default:
		return true
	}
}

// integer accepts integral numbers only. Strings and fractional values are
// not integers.
func integer(v any) (int, bool) {
	switch typed := v.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case uint64:
		return int(typed), true
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) || typed != math.Trunc(typed) {
			return 0, false
		}
		return int(typed), true
	default:
		return 0, false
	}
}

func listOf(v any) ([]any, bool) {
	switch typed := v.(type) {
	case []any:
		return typed, true
	case []map[string]any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out, true
	case []model.Option:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}

func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}

func timeOf(v any) *time.Time {
	switch typed := v.(type) {
	case time.Time:
		return &typed
	case string:
		t, err := time.Parse(time.RFC3339, typed)
		if err != nil {
			return nil
		}
		return &t
	default:
		return nil
	}
}

package draft

import "github.com/goliatone/go-formsync/pkg/model"

// Op is one edit applied to a draft. The set of operations is closed.
type Op interface {
	Name() string
	isOp()
}

// Seed replaces the draft with the given schema after coercing its fields.
type Seed struct {
	Schema model.FormSchema
}

// SetMeta shallow-merges form metadata. Nil members are left untouched.
type SetMeta struct {
	Patch MetaPatch
}

// AddField appends a new field of Kind with default attributes.
type AddField struct {
	Kind model.Kind
}

// UpdateField merges Patch onto the field with ID.
type UpdateField struct {
	ID    string
	Patch FieldPatch
}

// RemoveField drops the field with ID.
type RemoveField struct {
	ID string
}

// Reorder moves the field at From to To. Both indices are clamped.
type Reorder struct {
	From int
	To   int
}

func (Seed) Name() string        { return "seed" }
func (SetMeta) Name() string     { return "meta" }
func (AddField) Name() string    { return "add" }
func (UpdateField) Name() string { return "update" }
func (RemoveField) Name() string { return "remove" }
func (Reorder) Name() string     { return "reorder" }

func (Seed) isOp()        {}
func (SetMeta) isOp()     {}
func (AddField) isOp()    {}
func (UpdateField) isOp() {}
func (RemoveField) isOp() {}
func (Reorder) isOp()     {}

// MetaPatch lists the form attributes SetMeta may change.
type MetaPatch struct {
	Title       *string
	Slug        *string
	Status      *model.Status
	Description *string
}

// FieldPatch is a partial field update. Common attributes apply to every
// kind; the remaining members only apply to fields of the kind that owns
// them and are ignored otherwise. A nil member leaves the attribute as is,
// and a nil Options slice keeps the current options while an empty non-nil
// slice clears them.
type FieldPatch struct {
	Label    *string
	Required *bool
	HelpText *string

	// Text
	Placeholder *string
	Pattern     *string
	MinLength   *int
	MaxLength   *int

	// Multiple and Checkbox
	Options    []model.Option
	AllowOther *bool

	// Rating
	Min  *int
	Max  *int
	Step *int
}

// String returns a pointer to v, for building patches inline.
func String(v string) *string {
	return &v
}

// Bool returns a pointer to v, for building patches inline.
func Bool(v bool) *bool {
	return &v
}

// StatusPtr returns a pointer to s, for building meta patches inline.
func StatusPtr(s model.Status) *model.Status {
	return &s
}

// PatchFromMap builds a FieldPatch from a loosely typed payload such as a
// decoded JSON body. Keys that do not name a patchable attribute, including
// "id" and "type", are ignored.
func PatchFromMap(raw map[string]any) FieldPatch {
	var patch FieldPatch
	if v, ok := raw["label"]; ok && v != nil {
		patch.Label = String(stringOf(v))
	}
	if v, ok := raw["required"]; ok && v != nil {
		patch.Required = Bool(truthy(v))
	}
	if v, ok := raw["helpText"].(string); ok {
		patch.HelpText = String(v)
	}
	if v, ok := raw["placeholder"].(string); ok {
		patch.Placeholder = String(v)
	}
	if v, ok := raw["pattern"].(string); ok {
		patch.Pattern = String(v)
	}
	if n, ok := integer(raw["minLength"]); ok {
		patch.MinLength = model.Int(n)
	}
	if n, ok := integer(raw["maxLength"]); ok {
		patch.MaxLength = model.Int(n)
	}
	if v, ok := raw["options"]; ok {
		if items, isList := listOf(v); isList {
			patch.Options = coerceOptions(items, defaultIDFunc)
		}
	}
	if v, ok := raw["allowOther"]; ok && v != nil {
		patch.AllowOther = Bool(truthy(v))
	}
	if n, ok := integer(raw["min"]); ok {
		patch.Min = model.Int(n)
	}
	if n, ok := integer(raw["max"]); ok {
		patch.Max = model.Int(n)
	}
	if n, ok := integer(raw["step"]); ok {
		patch.Step = model.Int(n)
	}
	return patch
}

package validation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formsync/pkg/model"
)

// Violation codes reported by ValidateSchema.
const (
	CodeLabelRequired  = "label_required"
	CodeOptionsMissing = "options_required"
	CodeOptionInvalid  = "option_invalid"
	CodeRatingRange    = "rating_range"
)

// Violation is one structural problem found in a field definition.
type Violation struct {
	FieldID string `json:"fieldId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.FieldID + ": " + v.Message
}

// Violations is the result of ValidateSchema. It implements error so callers
// can return it directly when a save is blocked.
type Violations []Violation

func (vs Violations) Error() string {
	switch len(vs) {
	case 0:
		return "validation: no violations"
	case 1:
		return "validation: " + vs[0].String()
	default:
		return fmt.Sprintf("validation: %s (and %d more)", vs[0].String(), len(vs)-1)
	}
}

// ForField returns the violations attached to one field id.
func (vs Violations) ForField(id string) Violations {
	var out Violations
	for _, v := range vs {
		if v.FieldID == id {
			out = append(out, v)
		}
	}
	return out
}

// ValidateSchema checks every field and reports one violation per failing
// condition. Checks never stop at the first failing field.
func ValidateSchema(fields []model.Field) Violations {
	var out Violations
	for _, field := range fields {
		if strings.TrimSpace(field.Label) == "" {
			out = append(out, Violation{FieldID: field.ID, Code: CodeLabelRequired, Message: "label required"})
		}

		switch spec := field.Spec.(type) {
		case model.MultipleSpec:
			out = append(out, checkOptions(field.ID, spec.Options)...)
		case model.CheckboxSpec:
			out = append(out, checkOptions(field.ID, spec.Options)...)
		case model.RatingSpec:
			if spec.Min >= spec.Max {
				out = append(out, Violation{
					FieldID: field.ID,
					Code:    CodeRatingRange,
					Message: "rating requires integer min < max",
				})
			}
		case model.TextSpec, nil:
		}
	}
	return out
}

func checkOptions(fieldID string, options []model.Option) Violations {
	if len(options) == 0 {
		return Violations{{FieldID: fieldID, Code: CodeOptionsMissing, Message: "options required"}}
	}
	for _, opt := range options {
		if strings.TrimSpace(opt.Label) == "" || strings.TrimSpace(opt.Value) == "" {
			return Violations{{FieldID: fieldID, Code: CodeOptionInvalid, Message: "option label/value required"}}
		}
	}
	return nil
}

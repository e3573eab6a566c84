package draft

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formsync/pkg/model"
)

// maxSanitizePasses bounds how many layers of escaped markup are peeled.
const maxSanitizePasses = 8

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitize returns a copy of schema with markup stripped from every user
// supplied string and surrounding whitespace trimmed. Ids are left as is.
// The policy runs until decoding its output no longer changes the text, so
// escaped markup cannot come back as live tags and a second pass is a no-op.
func Sanitize(schema model.FormSchema) model.FormSchema {
	out := schema.Clone()
	out.Title = sanitizeText(out.Title)
	out.Description = sanitizeText(out.Description)
	out.Slug = sanitizeText(out.Slug)

	for i, field := range out.Fields {
		field.Label = sanitizeText(field.Label)
		field.HelpText = sanitizeText(field.HelpText)
		switch spec := field.Spec.(type) {
		case model.TextSpec:
			spec.Placeholder = sanitizeText(spec.Placeholder)
			spec.Pattern = strings.TrimSpace(spec.Pattern)
			field.Spec = spec
		case model.MultipleSpec:
			spec.Options = sanitizeOptions(spec.Options)
			field.Spec = spec
		case model.CheckboxSpec:
			spec.Options = sanitizeOptions(spec.Options)
			field.Spec = spec
		}
		out.Fields[i] = field
	}
	return out
}

func sanitizeOptions(options []model.Option) []model.Option {
	for i := range options {
		options[i].Label = sanitizeText(options[i].Label)
		options[i].Value = sanitizeText(options[i].Value)
	}
	return options
}

func sanitizeText(raw string) string {
	text := strings.TrimSpace(raw)
	for range maxSanitizePasses {
		if !strings.ContainsAny(text, "<>&") {
			return text
		}
		next := strings.TrimSpace(html.UnescapeString(textSanitizer().Sanitize(text)))
		if next == text {
			return text
		}
		text = next
	}
	// Still nested after every pass: keep the escaped form.
	return strings.TrimSpace(textSanitizer().Sanitize(text))
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

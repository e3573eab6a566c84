package draft

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formsync/pkg/model"
)

var errEmptyDocument = errors.New("draft: document is empty")

// Decode parses a JSON or YAML form document and coerces it into a schema.
// A top-level list is read as the field list of an untitled form.
func Decode(data []byte) (model.FormSchema, error) {
	return decodeWith(data, defaultIDFunc)
}

func decodeWith(data []byte, newID IDFunc) (model.FormSchema, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return model.FormSchema{}, errEmptyDocument
	}

	// YAML is a superset of the JSON documents the forms API produces, so
	// one decoder covers both.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.FormSchema{}, fmt.Errorf("draft: decode document: %w", err)
	}

	switch v := doc.(type) {
	case map[string]any:
		return coerceSchemaWith(v, newID), nil
	case map[any]any:
		return coerceSchemaWith(stringKeys(v), newID), nil
	case []any:
		return coerceSchemaWith(map[string]any{"fields": v}, newID), nil
	case nil:
		return model.FormSchema{}, errEmptyDocument
	default:
		return model.FormSchema{}, fmt.Errorf("draft: unsupported document root %T", doc)
	}
}

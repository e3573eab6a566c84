package model

import (
	"time"

	json "github.com/goccy/go-json"
)

// Status is the publication state of a form.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

// FormSchema is a complete form definition. Field ids are unique across the
// schema.
type FormSchema struct {
	ID          string     `json:"_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Slug        string     `json:"slug,omitempty"`
	Status      Status     `json:"status"`
	Fields      []Field    `json:"fields"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// NewFormSchema returns the empty draft an editing session starts from.
func NewFormSchema() FormSchema {
	return FormSchema{
		Title:  DefaultLabel,
		Status: StatusDraft,
		Fields: []Field{},
	}
}

// FieldByID returns the field with the given id.
func (s FormSchema) FieldByID(id string) (Field, bool) {
	for _, field := range s.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return Field{}, false
}

// Clone returns a deep copy of the schema.
func (s FormSchema) Clone() FormSchema {
	out := s
	if s.Fields != nil {
		out.Fields = make([]Field, len(s.Fields))
		for i, field := range s.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	if s.CreatedAt != nil {
		t := *s.CreatedAt
		out.CreatedAt = &t
	}
	if s.UpdatedAt != nil {
		t := *s.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// MarshalJSON always emits a fields array, never null.
func (s FormSchema) MarshalJSON() ([]byte, error) {
	type plain FormSchema
	out := plain(s)
	if out.Fields == nil {
		out.Fields = []Field{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the id under either "_id" or "id".
func (s *FormSchema) UnmarshalJSON(data []byte) error {
	type plain FormSchema
	var wire struct {
		plain
		AltID string `json:"id,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*s = FormSchema(wire.plain)
	if s.ID == "" {
		s.ID = wire.AltID
	}
	return nil
}

// FormResponse is the payload submitted for one completed form.
type FormResponse struct {
	FormID      string     `json:"formId"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	Answers     []Answer   `json:"answers"`
}

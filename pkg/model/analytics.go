package model

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// TermCount is one entry of a text field's top terms.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// OptionCount is the number of responses that picked an option.
type OptionCount struct {
	OptionID string `json:"optionId"`
	Count    int    `json:"count"`
}

// ScoreCount is one bucket of a rating histogram.
type ScoreCount struct {
	Score int `json:"score"`
	Count int `json:"count"`
}

// AnalyticsData is the sealed union of per-kind aggregates.
type AnalyticsData interface {
	Kind() Kind
	isAnalyticsData()
}

type TextAnalytics struct {
	TopTerms []TermCount
}

type MultipleAnalytics struct {
	Distribution []OptionCount
}

type CheckboxAnalytics struct {
	Distribution []OptionCount
}

type RatingAnalytics struct {
	Avg       float64
	Histogram []ScoreCount
}

func (TextAnalytics) Kind() Kind     { return KindText }
func (MultipleAnalytics) Kind() Kind { return KindMultiple }
func (CheckboxAnalytics) Kind() Kind { return KindCheckbox }
func (RatingAnalytics) Kind() Kind   { return KindRating }

func (TextAnalytics) isAnalyticsData()     {}
func (MultipleAnalytics) isAnalyticsData() {}
func (CheckboxAnalytics) isAnalyticsData() {}
func (RatingAnalytics) isAnalyticsData()   {}

// AnalyticsKey identifies a FieldAnalytics entry inside a snapshot.
type AnalyticsKey struct {
	FieldID string
	Kind    Kind
}

func (k AnalyticsKey) String() string {
	return k.FieldID + "|" + string(k.Kind)
}

// FieldAnalytics is the aggregate for one field.
type FieldAnalytics struct {
	FieldID string
	Data    AnalyticsData
}

// Key returns the (fieldId, kind) pair the snapshot is keyed by.
func (f FieldAnalytics) Key() AnalyticsKey {
	key := AnalyticsKey{FieldID: f.FieldID}
	if f.Data != nil {
		key.Kind = f.Data.Kind()
	}
	return key
}

type fieldAnalyticsWire struct {
	FieldID      string         `json:"fieldId"`
	Type         Kind           `json:"type"`
	TopTerms     *[]TermCount   `json:"topTerms,omitempty"`
	Distribution *[]OptionCount `json:"distribution,omitempty"`
	Avg          *float64       `json:"avg,omitempty"`
	Histogram    *[]ScoreCount  `json:"histogram,omitempty"`
}

func (f FieldAnalytics) MarshalJSON() ([]byte, error) {
	wire := fieldAnalyticsWire{FieldID: f.FieldID}
	switch data := f.Data.(type) {
	case TextAnalytics:
		wire.Type = KindText
		terms := nonNil(data.TopTerms)
		wire.TopTerms = &terms
	case MultipleAnalytics:
		wire.Type = KindMultiple
		dist := nonNil(data.Distribution)
		wire.Distribution = &dist
	case CheckboxAnalytics:
		wire.Type = KindCheckbox
		dist := nonNil(data.Distribution)
		wire.Distribution = &dist
	case RatingAnalytics:
		wire.Type = KindRating
		avg := data.Avg
		hist := nonNil(data.Histogram)
		wire.Avg = &avg
		wire.Histogram = &hist
	default:
		return nil, fmt.Errorf("model: unsupported analytics data %T", f.Data)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON rejects unknown analytics types so a malformed delta is
// dropped as a whole.
func (f *FieldAnalytics) UnmarshalJSON(data []byte) error {
	var wire fieldAnalyticsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	f.FieldID = wire.FieldID
	switch wire.Type {
	case KindText:
		f.Data = TextAnalytics{TopTerms: deref(wire.TopTerms)}
	case KindMultiple:
		f.Data = MultipleAnalytics{Distribution: deref(wire.Distribution)}
	case KindCheckbox:
		f.Data = CheckboxAnalytics{Distribution: deref(wire.Distribution)}
	case KindRating:
		rating := RatingAnalytics{Histogram: deref(wire.Histogram)}
		if wire.Avg != nil {
			rating.Avg = *wire.Avg
		}
		f.Data = rating
	default:
		return fmt.Errorf("model: unknown analytics type %q", wire.Type)
	}
	return nil
}

// AnalyticsSnapshot is the aggregate read model of one form. It holds at most
// one entry per (fieldId, kind).
type AnalyticsSnapshot struct {
	FormID         string           `json:"formId"`
	TotalResponses int              `json:"totalResponses"`
	Fields         []FieldAnalytics `json:"fields"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// Clone copies the snapshot's field slice. Entries are values and share their
// inner slices, which are never mutated after decoding.
func (s AnalyticsSnapshot) Clone() AnalyticsSnapshot {
	out := s
	if s.Fields != nil {
		out.Fields = make([]FieldAnalytics, len(s.Fields))
		copy(out.Fields, s.Fields)
	}
	return out
}

// Delta is a partial snapshot pushed by the analytics feed. Absent members
// leave the snapshot untouched.
type Delta struct {
	TotalResponses *int             `json:"totalResponses,omitempty"`
	Fields         []FieldAnalytics `json:"fields,omitempty"`
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func deref[T any](items *[]T) []T {
	if items == nil || *items == nil {
		return []T{}
	}
	return *items
}

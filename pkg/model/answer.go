package model

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// AnswerValue is the sealed union of answer payloads: TextValue for text and
// single-choice fields, ChoicesValue for checkboxes, NumberValue for ratings.
type AnswerValue interface {
	isAnswerValue()
}

type (
	TextValue    string
	ChoicesValue []string
	NumberValue  float64
)

func (TextValue) isAnswerValue()    {}
func (ChoicesValue) isAnswerValue() {}
func (NumberValue) isAnswerValue()  {}

// Answer is the response to one field. A nil Value means the field was not
// answered.
type Answer struct {
	FieldID string
	Value   AnswerValue
}

// IsEmpty reports whether the answer is absent, an empty string or an empty
// list.
func (a Answer) IsEmpty() bool {
	switch v := a.Value.(type) {
	case nil:
		return true
	case TextValue:
		return v == ""
	case ChoicesValue:
		return len(v) == 0
	default:
		return false
	}
}

type answerWire struct {
	FieldID string          `json:"fieldId"`
	Value   json.RawMessage `json:"value"`
}

// MarshalJSON emits {fieldId, value} with value typed by its variant.
func (a Answer) MarshalJSON() ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch v := a.Value.(type) {
	case nil:
		raw = []byte("null")
	case TextValue:
		raw, err = json.Marshal(string(v))
	case ChoicesValue:
		if v == nil {
			v = ChoicesValue{}
		}
		raw, err = json.Marshal([]string(v))
	case NumberValue:
		raw, err = json.Marshal(float64(v))
	default:
		return nil, fmt.Errorf("model: unsupported answer value %T", a.Value)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerWire{FieldID: a.FieldID, Value: raw})
}

var errAnswerValue = errors.New("model: answer value must be a string, number or list of strings")

// UnmarshalJSON picks the value variant from the JSON token type.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var wire answerWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	a.FieldID = wire.FieldID
	a.Value = nil

	raw := bytes.TrimSpace(wire.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		a.Value = TextValue(s)
	case '[':
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return errAnswerValue
		}
		if list == nil {
			list = []string{}
		}
		a.Value = ChoicesValue(list)
	default:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return errAnswerValue
		}
		a.Value = NumberValue(n)
	}
	return nil
}

package tui

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/goliatone/go-formsync/pkg/model"
)

// State tracks answers collected so far in prompt order.
type State struct {
	answers *orderedmap.OrderedMap[string, model.AnswerValue]
}

// NewState seeds the state with prefilled answers.
func NewState(prefill []model.Answer) *State {
	s := &State{answers: orderedmap.New[string, model.AnswerValue]()}
	for _, a := range prefill {
		if a.Value != nil {
			s.answers.Set(a.FieldID, a.Value)
		}
	}
	return s
}

// Get returns the answer recorded for fieldID.
func (s *State) Get(fieldID string) (model.AnswerValue, bool) {
	return s.answers.Get(fieldID)
}

// Set records value for fieldID. A nil value removes the answer.
func (s *State) Set(fieldID string, value model.AnswerValue) {
	if value == nil {
		s.answers.Delete(fieldID)
		return
	}
	s.answers.Set(fieldID, value)
}

// Answers returns the answers for fields, in field order, skipping empty
// ones.
func (s *State) Answers(fields []model.Field) []model.Answer {
	out := make([]model.Answer, 0, len(fields))
	for _, f := range fields {
		value, ok := s.answers.Get(f.ID)
		if !ok {
			continue
		}
		answer := model.Answer{FieldID: f.ID, Value: value}
		if answer.IsEmpty() {
			continue
		}
		out = append(out, answer)
	}
	return out
}

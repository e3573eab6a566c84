package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formsync/pkg/model"
)

// Answer error messages.
const (
	MsgRequired      = "Required"
	MsgInvalidFormat = "Invalid format"
	MsgInvalidOption = "Choose a valid option"
)

// ValidateAnswers checks answers against their field definitions and returns
// an error message per failing field id. Fields without a key passed.
//
// The required check runs first and decides alone. Text fields then run the
// min length, max length and pattern checks in that order, each overwriting
// the previous message when it fails. Choice fields accept an answer matching
// any option by id or by value. Rating answers must be integers within
// [min, max].
func ValidateAnswers(fields []model.Field, answers []model.Answer) map[string]string {
	byField := make(map[string]model.Answer, len(answers))
	for _, answer := range answers {
		byField[answer.FieldID] = answer
	}

	errs := make(map[string]string)
	for _, field := range fields {
		answer, ok := byField[field.ID]
		empty := !ok || answer.IsEmpty()
		if empty {
			if field.Required {
				errs[field.ID] = MsgRequired
			}
			continue
		}

		var msg string
		switch spec := field.Spec.(type) {
		case model.TextSpec:
			msg = checkText(spec, answer.Value)
		case nil:
			msg = checkText(model.TextSpec{}, answer.Value)
		case model.MultipleSpec:
			msg = checkChoice(spec.Options, answer.Value)
		case model.CheckboxSpec:
			msg = checkChoice(spec.Options, answer.Value)
		case model.RatingSpec:
			msg = checkRating(spec, answer.Value)
		}
		if msg != "" {
			errs[field.ID] = msg
		}
	}
	return errs
}

// ValidateAnswer checks a single answer, as used by renderers that validate
// while prompting.
func ValidateAnswer(field model.Field, answer model.Answer) string {
	answer.FieldID = field.ID
	return ValidateAnswers([]model.Field{field}, []model.Answer{answer})[field.ID]
}

func checkText(spec model.TextSpec, value model.AnswerValue) string {
	s := strings.TrimSpace(textOf(value))
	n := utf8.RuneCountInString(s)

	var msg string
	if spec.MinLength != nil && *spec.MinLength > 0 && n < *spec.MinLength {
		msg = fmt.Sprintf("Min %d chars", *spec.MinLength)
	}
	if spec.MaxLength != nil && *spec.MaxLength > 0 && n > *spec.MaxLength {
		msg = fmt.Sprintf("Max %d chars", *spec.MaxLength)
	}
	if spec.Pattern != "" {
		// A pattern that does not compile is no constraint at all.
		if re, err := regexp.Compile(spec.Pattern); err == nil && !re.MatchString(s) {
			msg = MsgInvalidFormat
		}
	}
	return msg
}

func checkChoice(options []model.Option, value model.AnswerValue) string {
	picked := make(map[string]struct{})
	switch v := value.(type) {
	case model.ChoicesValue:
		for _, item := range v {
			picked[item] = struct{}{}
		}
	default:
		picked[textOf(v)] = struct{}{}
	}

	for _, opt := range options {
		if _, ok := picked[opt.Value]; ok {
			return ""
		}
		if _, ok := picked[opt.ID]; ok {
			return ""
		}
	}
	return MsgInvalidOption
}

func checkRating(spec model.RatingSpec, value model.AnswerValue) string {
	n, ok := numberOf(value)
	if !ok || n != math.Trunc(n) || n < float64(spec.Min) || n > float64(spec.Max) {
		return fmt.Sprintf("Choose %d–%d", spec.Min, spec.Max)
	}
	return ""
}

func textOf(value model.AnswerValue) string {
	switch v := value.(type) {
	case model.TextValue:
		return string(v)
	case model.ChoicesValue:
		return strings.Join(v, ",")
	case model.NumberValue:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	default:
		return ""
	}
}

func numberOf(value model.AnswerValue) (float64, bool) {
	switch v := value.(type) {
	case model.NumberValue:
		f := float64(v)
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case model.TextValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

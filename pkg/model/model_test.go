package model

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestFieldUnmarshalDefaultsVariantAttributes(t *testing.T) {
	payload := `[
		{"id":"q1","type":"text","label":"Name","required":true,"minLength":3},
		{"id":"q2","type":"multiple","label":"Colour"},
		{"id":"q3","type":"rating","label":"Score","max":10},
		{"id":"q4","type":"mystery","label":"Odd"}
	]`

	var fields []Field
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []Field{
		{ID: "q1", Label: "Name", Required: true, Spec: TextSpec{MinLength: Int(3)}},
		{ID: "q2", Label: "Colour", Spec: MultipleSpec{Options: []Option{}}},
		{ID: "q3", Label: "Score", Spec: RatingSpec{Min: 1, Max: 10, Step: 1}},
		{ID: "q4", Label: "Odd", Spec: TextSpec{}},
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldMarshalEmitsDiscriminant(t *testing.T) {
	field := Field{ID: "c1", Label: "Pick", Spec: CheckboxSpec{}}

	raw, err := json.Marshal(field)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "checkbox" {
		t.Fatalf("expected checkbox type, got %v", decoded["type"])
	}
	if opts, ok := decoded["options"].([]any); !ok || len(opts) != 0 {
		t.Fatalf("expected empty options array, got %#v", decoded["options"])
	}
	if _, ok := decoded["min"]; ok {
		t.Fatalf("checkbox field must not carry rating attributes: %s", raw)
	}
}

func TestAnswerValueFollowsTokenType(t *testing.T) {
	payload := `[
		{"fieldId":"a","value":"hello"},
		{"fieldId":"b","value":["x","y"]},
		{"fieldId":"c","value":4},
		{"fieldId":"d","value":null}
	]`

	var answers []Answer
	if err := json.Unmarshal([]byte(payload), &answers); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []Answer{
		{FieldID: "a", Value: TextValue("hello")},
		{FieldID: "b", Value: ChoicesValue{"x", "y"}},
		{FieldID: "c", Value: NumberValue(4)},
		{FieldID: "d"},
	}
	if diff := cmp.Diff(want, answers); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
	if !answers[3].IsEmpty() {
		t.Fatalf("null answer should be empty")
	}
}

func TestAnswerRejectsObjectValues(t *testing.T) {
	var answer Answer
	if err := json.Unmarshal([]byte(`{"fieldId":"a","value":{"k":1}}`), &answer); err == nil {
		t.Fatalf("expected error for object value")
	}
}

func TestDeltaDecodesTaggedAnalytics(t *testing.T) {
	payload := `{"totalResponses":7,"fields":[
		{"fieldId":"q1","type":"rating","avg":4.5,"histogram":[{"score":5,"count":1}]},
		{"fieldId":"q2","type":"checkbox","distribution":[{"optionId":"a","count":2}]}
	]}`

	var delta Delta
	if err := json.Unmarshal([]byte(payload), &delta); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if delta.TotalResponses == nil || *delta.TotalResponses != 7 {
		t.Fatalf("unexpected total: %v", delta.TotalResponses)
	}

	want := []FieldAnalytics{
		{FieldID: "q1", Data: RatingAnalytics{Avg: 4.5, Histogram: []ScoreCount{{Score: 5, Count: 1}}}},
		{FieldID: "q2", Data: CheckboxAnalytics{Distribution: []OptionCount{{OptionID: "a", Count: 2}}}},
	}
	if diff := cmp.Diff(want, delta.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if got := delta.Fields[1].Key(); got != (AnalyticsKey{FieldID: "q2", Kind: KindCheckbox}) {
		t.Fatalf("unexpected key %v", got)
	}
}

func TestDeltaRejectsUnknownAnalyticsType(t *testing.T) {
	var delta Delta
	err := json.Unmarshal([]byte(`{"fields":[{"fieldId":"q","type":"heatmap"}]}`), &delta)
	if err == nil {
		t.Fatalf("expected unknown type to fail decoding")
	}
}

func TestFormSchemaAcceptsEitherIDKey(t *testing.T) {
	var a, b FormSchema
	if err := json.Unmarshal([]byte(`{"_id":"f1","title":"A","status":"draft","fields":[]}`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"id":"f2","title":"B","status":"published"}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.ID != "f1" || b.ID != "f2" {
		t.Fatalf("unexpected ids %q %q", a.ID, b.ID)
	}
	if b.Status != StatusPublished {
		t.Fatalf("unexpected status %q", b.Status)
	}
}

func TestFormSchemaCloneIsDeep(t *testing.T) {
	schema := FormSchema{
		Title: "Survey",
		Fields: []Field{
			{ID: "m", Label: "Pick", Spec: MultipleSpec{Options: []Option{{ID: "a", Label: "A", Value: "a"}}}},
		},
	}

	clone := schema.Clone()
	spec := clone.Fields[0].Spec.(MultipleSpec)
	spec.Options[0].Label = "changed"

	original := schema.Fields[0].Spec.(MultipleSpec)
	if original.Options[0].Label != "A" {
		t.Fatalf("clone shares option storage with the original")
	}
}

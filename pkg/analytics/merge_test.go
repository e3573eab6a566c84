package analytics

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formsync/pkg/model"
)

func ratingEntry(id string, avg float64) model.FieldAnalytics {
	return model.FieldAnalytics{FieldID: id, Data: model.RatingAnalytics{Avg: avg, Histogram: []model.ScoreCount{}}}
}

func choiceEntry(id string, counts ...int) model.FieldAnalytics {
	dist := make([]model.OptionCount, len(counts))
	for i, c := range counts {
		dist[i] = model.OptionCount{OptionID: string(rune('a' + i)), Count: c}
	}
	return model.FieldAnalytics{FieldID: id, Data: model.MultipleAnalytics{Distribution: dist}}
}

func TestMergeOverwritesAppendsAndRetains(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	prev := model.AnalyticsSnapshot{
		FormID:         "f1",
		TotalResponses: 3,
		Fields:         []model.FieldAnalytics{ratingEntry("x", 3), choiceEntry("y", 1, 2)},
		UpdatedAt:      created,
	}
	total := 5
	delta := model.Delta{
		TotalResponses: &total,
		Fields:         []model.FieldAnalytics{choiceEntry("z", 4), ratingEntry("x", 4)},
	}

	got := Merge(prev, delta, now)
	want := model.AnalyticsSnapshot{
		FormID:         "f1",
		TotalResponses: 5,
		Fields:         []model.FieldAnalytics{ratingEntry("x", 4), choiceEntry("y", 1, 2), choiceEntry("z", 4)},
		UpdatedAt:      now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if prev.TotalResponses != 3 || prev.Fields[0].Data.(model.RatingAnalytics).Avg != 3 {
		t.Fatalf("prev mutated: %+v", prev)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	total := 8
	tests := []struct {
		name  string
		prev  model.AnalyticsSnapshot
		delta model.Delta
	}{
		{
			name:  "overwrite and append",
			prev:  model.AnalyticsSnapshot{FormID: "f1", Fields: []model.FieldAnalytics{ratingEntry("x", 1), choiceEntry("y", 2)}},
			delta: model.Delta{TotalResponses: &total, Fields: []model.FieldAnalytics{choiceEntry("z", 1), ratingEntry("x", 2)}},
		},
		{
			name:  "duplicate keys within the delta",
			prev:  model.AnalyticsSnapshot{Fields: []model.FieldAnalytics{ratingEntry("x", 1)}},
			delta: model.Delta{Fields: []model.FieldAnalytics{ratingEntry("x", 2), ratingEntry("x", 3)}},
		},
		{
			name:  "total only",
			prev:  model.AnalyticsSnapshot{TotalResponses: 1, Fields: []model.FieldAnalytics{ratingEntry("x", 1)}},
			delta: model.Delta{TotalResponses: &total},
		},
		{
			name:  "empty fields",
			prev:  model.AnalyticsSnapshot{Fields: []model.FieldAnalytics{ratingEntry("x", 1)}},
			delta: model.Delta{Fields: []model.FieldAnalytics{}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := Merge(tt.prev, tt.delta, now)
			twice := Merge(once, tt.delta, now)
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Fatalf("second merge changed the snapshot (-once +twice):\n%s", diff)
			}
		})
	}
}

func TestMergeKeysOnFieldAndKind(t *testing.T) {
	prev := model.AnalyticsSnapshot{Fields: []model.FieldAnalytics{ratingEntry("x", 2)}}
	delta := model.Delta{Fields: []model.FieldAnalytics{choiceEntry("x", 1)}}

	got := Merge(prev, delta, time.Time{})
	if len(got.Fields) != 2 {
		t.Fatalf("same id with a different kind should append, got %d entries", len(got.Fields))
	}
}

func TestMergeWithoutMembersKeepsState(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	prev := model.AnalyticsSnapshot{
		TotalResponses: 9,
		Fields:         []model.FieldAnalytics{ratingEntry("x", 2)},
	}

	got := Merge(prev, model.Delta{}, now)
	if got.TotalResponses != 9 {
		t.Fatalf("total should be retained, got %d", got.TotalResponses)
	}
	if diff := cmp.Diff(prev.Fields, got.Fields); diff != "" {
		t.Fatalf("fields changed (-want +got):\n%s", diff)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Fatalf("updatedAt should be stamped, got %v", got.UpdatedAt)
	}

	zero := 0
	got = Merge(prev, model.Delta{TotalResponses: &zero}, now)
	if got.TotalResponses != 0 {
		t.Fatalf("explicit zero total should apply, got %d", got.TotalResponses)
	}
}

func TestChartHelpers(t *testing.T) {
	if Percent(1, 0) != 0 || Percent(1, 4) != 25 {
		t.Fatalf("unexpected percent")
	}
	if Average(nil) != 0 || Average([]float64{1, 2, 3}) != 2 {
		t.Fatalf("unexpected average")
	}
	segments := Stacked([]model.OptionCount{{OptionID: "a", Count: 1}, {OptionID: "b", Count: 3}})
	want := []Segment{{OptionID: "a", Count: 1, WidthPct: 25}, {OptionID: "b", Count: 3, WidthPct: 75}}
	if diff := cmp.Diff(want, segments); diff != "" {
		t.Fatalf("stacked mismatch (-want +got):\n%s", diff)
	}
	if Total([]model.ScoreCount{{Score: 1, Count: 2}, {Score: 5, Count: 3}}) != 5 {
		t.Fatalf("unexpected total")
	}
}

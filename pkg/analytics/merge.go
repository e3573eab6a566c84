package analytics

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/goliatone/go-formsync/pkg/model"
)

// Merge folds delta into prev and stamps the result with now. prev is not
// modified. TotalResponses is replaced only when the delta carries it, and
// a delta without fields leaves the field list as is.
func Merge(prev model.AnalyticsSnapshot, delta model.Delta, now time.Time) model.AnalyticsSnapshot {
	next := prev.Clone()
	if delta.TotalResponses != nil {
		next.TotalResponses = *delta.TotalResponses
	}
	if delta.Fields != nil {
		next.Fields = MergeFields(prev.Fields, delta.Fields)
	}
	next.UpdatedAt = now
	return next
}

// MergeFields overlays updates onto prev by (fieldId, kind), keeping the
// position of the first occurrence of every key.
func MergeFields(prev, updates []model.FieldAnalytics) []model.FieldAnalytics {
	merged := orderedmap.New[model.AnalyticsKey, model.FieldAnalytics]()
	for _, f := range prev {
		merged.Set(f.Key(), f)
	}
	for _, f := range updates {
		merged.Set(f.Key(), f)
	}

	out := make([]model.FieldAnalytics, 0, merged.Len())
	for pair := merged.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

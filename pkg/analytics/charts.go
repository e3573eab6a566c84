package analytics

import "github.com/goliatone/go-formsync/pkg/model"

// Percent returns part as a percentage of total, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Average returns the mean of values, or 0 for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Segment is one bar of a stacked distribution chart.
type Segment struct {
	OptionID string
	Count    int
	WidthPct float64
}

// Stacked converts an option distribution into bar segments whose widths add
// up to 100 unless every count is zero.
func Stacked(parts []model.OptionCount) []Segment {
	total := 0
	for _, p := range parts {
		total += p.Count
	}
	out := make([]Segment, len(parts))
	for i, p := range parts {
		out[i] = Segment{OptionID: p.OptionID, Count: p.Count, WidthPct: Percent(p.Count, total)}
	}
	return out
}

// Total returns the sum of a rating histogram's counts.
func Total(histogram []model.ScoreCount) int {
	total := 0
	for _, h := range histogram {
		total += h.Count
	}
	return total
}

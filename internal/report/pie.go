package report

import (
	"slices"

	"github.com/shopspring/decimal"

	"skudash/internal/catalog"
)

const (
	DefaultTopN = 10
	OtherLabel  = "Other"
)

type Slice struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
	Share float64         `json:"share"`
	Other bool            `json:"other,omitempty"`
}

// TopN groups records by SKU, ranks the groups by metric (descending, ties in
// first-appearance order) and keeps the first n. Whatever remains is summed
// into a trailing Other slice, so the series has at most n+1 entries.
func TopN(records []catalog.Record, metric Metric, n int) []Slice {
	if n <= 0 {
		n = DefaultTopN
	}
	index := map[string]int{}
	var groups []Slice
	for _, r := range records {
		i, ok := index[r.SKU]
		if !ok {
			i = len(groups)
			index[r.SKU] = i
			groups = append(groups, Slice{Label: r.SKU, Value: decimal.Zero})
		}
		groups[i].Value = groups[i].Value.Add(metric.Value(r))
	}
	slices.SortStableFunc(groups, func(a, b Slice) int {
		return b.Value.Cmp(a.Value)
	})

	out := groups
	if len(groups) > n {
		rest := decimal.Zero
		for _, g := range groups[n:] {
			rest = rest.Add(g.Value)
		}
		out = append(slices.Clone(groups[:n]), Slice{Label: OtherLabel, Value: rest, Other: true})
	}

	total := decimal.Zero
	for _, s := range out {
		total = total.Add(s.Value)
	}
	if !total.IsZero() {
		for i := range out {
			out[i].Share, _ = out[i].Value.Div(total).Float64()
		}
	}
	return out
}

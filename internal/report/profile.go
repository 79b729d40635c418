package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"skudash/internal/catalog"
	"skudash/internal/images"
)

// Profile renders a markdown profiling report of the table. resolved, when
// index-aligned with the table's records, adds an image source breakdown.
func Profile(t *catalog.Table, resolved []images.Resolution) string {
	recs := t.Records()
	lines := []string{
		"# SKU sales profiling report",
		"",
		"## Dataset shape",
		fmt.Sprintf("- Source: %s", t.Source()),
		fmt.Sprintf("- Rows: %d", len(recs)),
		fmt.Sprintf("- Distinct SKUs: %d", len(SKUOptions(recs))),
		fmt.Sprintf("- Image mapping applied: %t", t.MappingApplied()),
		"",
		"## Uniqueness / duplicates",
	}
	for _, col := range []struct {
		name string
		get  func(catalog.Record) string
	}{
		{"SKU", func(r catalog.Record) string { return r.SKU }},
		{"images", func(r catalog.Record) string { return r.ImageName }},
	} {
		uniq, dup := uniquenessStats(recs, col.get)
		lines = append(lines, fmt.Sprintf("- `%s` unique=%d, duplicate_rows=%d", col.name, uniq, dup))
	}
	lines = append(lines, "")

	lines = append(lines, "## Missingness")
	blankImages, noCloud := 0, 0
	for _, r := range recs {
		if strings.TrimSpace(r.ImageName) == "" {
			blankImages++
		}
		if !r.HasCloudImage() {
			noCloud++
		}
	}
	lines = append(lines,
		fmt.Sprintf("- `images`: %.1f%% blank", pct(blankImages, len(recs))),
		fmt.Sprintf("- `drive_id`: %.1f%% unmatched", pct(noCloud, len(recs))),
		"")

	lines = append(lines, "## Numeric summaries")
	for _, m := range Metrics {
		vals := make([]decimal.Decimal, len(recs))
		for i, r := range recs {
			vals[i] = m.Value(r)
		}
		if len(vals) == 0 {
			continue
		}
		slices.SortFunc(vals, func(a, b decimal.Decimal) int { return a.Cmp(b) })
		lines = append(lines, fmt.Sprintf("- `%s`: count=%d, min=%s, median=%s, mean=%s, max=%s, sum=%s",
			m, len(vals),
			vals[0].String(), median(vals).StringFixed(2), decimal.Avg(vals[0], vals[1:]...).StringFixed(2),
			vals[len(vals)-1].String(), decimal.Sum(vals[0], vals[1:]...).String()))
	}
	lines = append(lines, "")

	if len(resolved) == len(recs) && len(recs) > 0 {
		lines = append(lines, "## Image sources")
		counts := map[images.Source]int{}
		for _, r := range resolved {
			counts[r.Source]++
		}
		for _, s := range []images.Source{images.SourceCloud, images.SourceURL, images.SourceLocal, images.SourceNone} {
			lines = append(lines, fmt.Sprintf("- %s: %d", s, counts[s]))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "## Cleaning issues")
	issues := t.Issues()
	if len(issues) == 0 {
		lines = append(lines, "- none")
	}
	type kv struct {
		k string
		v int
	}
	counts := map[string]int{}
	for _, is := range issues {
		counts[fmt.Sprintf("`%s` %s", is.Column, is.Reason)]++
	}
	var items []kv
	for k, v := range counts {
		items = append(items, kv{k, v})
	}
	slices.SortFunc(items, func(a, b kv) int {
		if a.v != b.v {
			return b.v - a.v
		}
		return strings.Compare(a.k, b.k)
	})
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- %s: %d", it.k, it.v))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func uniquenessStats(recs []catalog.Record, get func(catalog.Record) string) (uniqueNonBlank, duplicateRows int) {
	counts := map[string]int{}
	for _, r := range recs {
		v := strings.TrimSpace(get(r))
		if v == "" {
			continue
		}
		counts[v]++
	}
	for _, c := range counts {
		uniqueNonBlank++
		if c > 1 {
			duplicateRows += c
		}
	}
	return
}

// median expects sorted, non-empty input.
func median(sorted []decimal.Decimal) decimal.Decimal {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

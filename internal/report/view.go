package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"skudash/internal/catalog"
	"skudash/internal/images"
)

// Sortable table columns, named like the export header.
const (
	ColumnSKU      = "SKU"
	ColumnCount    = "Total Count"
	ColumnNetSales = "Total Net Sales"
	ColumnImage    = "images"
)

const DefaultPageSize = 25

type Query struct {
	// Search is matched case-insensitively against SKU and image name.
	Search string
	// SortBy is a column name; empty keeps source order.
	SortBy string
	Desc   bool
	// Min and Max bound Metric (inclusive) when set.
	Metric Metric
	Min    *decimal.Decimal
	Max    *decimal.Decimal
	// Page is 1-based; PageSize <= 0 uses DefaultPageSize.
	Page     int
	PageSize int
}

type Page struct {
	Rows     []catalog.Record
	Matched  int
	Page     int
	PageSize int
}

func (p Page) PageCount() int {
	if p.Matched == 0 {
		return 1
	}
	return (p.Matched + p.PageSize - 1) / p.PageSize
}

// Apply filters, sorts and paginates records. records is not modified.
func Apply(records []catalog.Record, q Query) (Page, error) {
	cmp, err := comparator(q.SortBy)
	if err != nil {
		return Page{}, err
	}
	metric := q.Metric
	if metric == "" {
		metric = MetricRevenue
	}
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	rows := make([]catalog.Record, 0, len(records))
	for _, r := range records {
		if needle != "" &&
			!strings.Contains(strings.ToLower(r.SKU), needle) &&
			!strings.Contains(strings.ToLower(r.ImageName), needle) {
			continue
		}
		v := metric.Value(r)
		if q.Min != nil && v.LessThan(*q.Min) {
			continue
		}
		if q.Max != nil && v.GreaterThan(*q.Max) {
			continue
		}
		rows = append(rows, r)
	}
	if cmp != nil {
		slices.SortStableFunc(rows, func(a, b catalog.Record) int {
			if q.Desc {
				return cmp(b, a)
			}
			return cmp(a, b)
		})
	}

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	out := Page{Matched: len(rows), Page: page, PageSize: size}
	start := (page - 1) * size
	if start < len(rows) {
		out.Rows = rows[start:min(start+size, len(rows))]
	} else {
		out.Rows = []catalog.Record{}
	}
	return out, nil
}

func comparator(column string) (func(a, b catalog.Record) int, error) {
	switch column {
	case "":
		return nil, nil
	case ColumnSKU:
		return func(a, b catalog.Record) int { return strings.Compare(a.SKU, b.SKU) }, nil
	case ColumnImage:
		return func(a, b catalog.Record) int { return strings.Compare(a.ImageName, b.ImageName) }, nil
	case ColumnCount:
		return func(a, b catalog.Record) int {
			switch {
			case a.UnitCount < b.UnitCount:
				return -1
			case a.UnitCount > b.UnitCount:
				return 1
			}
			return 0
		}, nil
	case ColumnNetSales:
		return func(a, b catalog.Record) int { return a.NetSales.Cmp(b.NetSales) }, nil
	}
	return nil, fmt.Errorf("unknown sort column %q", column)
}

// SKUOptions lists distinct SKUs in first-appearance order.
func SKUOptions(records []catalog.Record) []string {
	seen := make(map[string]struct{}, len(records))
	out := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.SKU]; ok {
			continue
		}
		seen[r.SKU] = struct{}{}
		out = append(out, r.SKU)
	}
	return out
}

type ImageResolver interface {
	Resolve(catalog.Record) images.Resolution
}

type Detail struct {
	Found  bool
	Record catalog.Record
	Image  images.Resolution
}

// LookupDetail finds the first record with sku and resolves its image. An
// unknown SKU yields Found == false.
func LookupDetail(t *catalog.Table, res ImageResolver, sku string) Detail {
	rec, ok := t.Lookup(sku)
	if !ok {
		return Detail{}
	}
	return Detail{Found: true, Record: rec, Image: res.Resolve(rec)}
}

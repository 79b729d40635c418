// Package report derives the dashboard views (pie series, table pages,
// SKU options and detail lookups) from the canonical table without
// modifying it.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"skudash/internal/catalog"
)

// Metric is one of the numeric columns a chart can be drawn over. Its value
// is the column header used by the source file and the export.
type Metric string

const (
	MetricUnits   Metric = "Total Count"
	MetricRevenue Metric = "Total Net Sales"
)

var Metrics = []Metric{MetricUnits, MetricRevenue}

func ParseMetric(key string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == key {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q (valid: %q, %q)", key, MetricUnits, MetricRevenue)
}

func (m Metric) Value(r catalog.Record) decimal.Decimal {
	if m == MetricUnits {
		return decimal.NewFromInt(r.UnitCount)
	}
	return r.NetSales
}

// Package catalog builds the canonical SKU sales table from the primary
// sales CSV and the optional image mapping CSV.
package catalog

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Record is one row of the canonical table.
type Record struct {
	SKU          string
	ImageName    string
	UnitCount    int64
	NetSales     decimal.Decimal
	CloudImageID string // empty when the mapping join did not match
}

// HasCloudImage reports whether the mapping join produced a usable id.
func (r Record) HasCloudImage() bool {
	return !isBlank(r.CloudImageID)
}

type Totals struct {
	TotalUnits   int64
	TotalRevenue decimal.Decimal
}

// Issue records a cell whose value was replaced while cleaning. Row is the
// 1-based data row; 0 marks a table-level issue such as a missing column.
type Issue struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Table is the immutable canonical table. It is safe for concurrent reads.
type Table struct {
	source         string
	records        []Record
	totals         Totals
	issues         []Issue
	mappingApplied bool
}

// NewTable copies records into a new table and computes its totals.
func NewTable(records []Record) *Table {
	t := &Table{records: slices.Clone(records)}
	t.totals = computeTotals(t.records)
	return t
}

func computeTotals(records []Record) Totals {
	totals := Totals{TotalRevenue: decimal.Zero}
	for _, r := range records {
		totals.TotalUnits += r.UnitCount
		totals.TotalRevenue = totals.TotalRevenue.Add(r.NetSales)
	}
	return totals
}

// Records returns a copy of the rows in source order.
func (t *Table) Records() []Record { return slices.Clone(t.records) }

func (t *Table) Len() int { return len(t.records) }

func (t *Table) Totals() Totals { return t.totals }

func (t *Table) Issues() []Issue { return slices.Clone(t.issues) }

// MappingApplied reports whether the image mapping was merged.
func (t *Table) MappingApplied() bool { return t.mappingApplied }

// Source is the primary file the table was loaded from, if any.
func (t *Table) Source() string { return t.source }

// Lookup returns the first record with the given SKU.
func (t *Table) Lookup(sku string) (Record, bool) {
	for _, r := range t.records {
		if r.SKU == sku {
			return r, true
		}
	}
	return Record{}, false
}

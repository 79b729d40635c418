package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Columns names the CSV headers the pipeline reads.
type Columns struct {
	SKU      string `yaml:"sku"`
	Image    string `yaml:"image"`
	Count    string `yaml:"count"`
	NetSales string `yaml:"net_sales"`
	CloudID  string `yaml:"cloud_id"`
}

func DefaultColumns() Columns {
	return Columns{
		SKU:      "SKU",
		Image:    "images",
		Count:    "Total Count",
		NetSales: "Total Net Sales",
		CloudID:  "drive_id",
	}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.SKU == "" {
		c.SKU = d.SKU
	}
	if c.Image == "" {
		c.Image = d.Image
	}
	if c.Count == "" {
		c.Count = d.Count
	}
	if c.NetSales == "" {
		c.NetSales = d.NetSales
	}
	if c.CloudID == "" {
		c.CloudID = d.CloudID
	}
	return c
}

type Options struct {
	PrimaryPath string
	// MappingPath is optional; a missing or malformed mapping file only
	// disables cloud images.
	MappingPath string
	Columns     Columns
	Logger      *zap.Logger
}

// Prepare loads, cleans and merges the input files into the canonical
// table. Only a missing primary file (*MissingInputError) or a primary file
// without the SKU/image columns (*SchemaError) is an error.
func Prepare(opts Options) (*Table, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cols := opts.Columns.withDefaults()

	primary, err := loadCSV(opts.PrimaryPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, newMissingInputError(opts.PrimaryPath, err)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.PrimaryPath, err)
	}
	if missing := primary.missing(cols.SKU, cols.Image); len(missing) > 0 {
		return nil, &SchemaError{Path: opts.PrimaryPath, Missing: missing, Found: primary.Headers}
	}

	t := &Table{source: opts.PrimaryPath, records: make([]Record, 0, len(primary.Rows))}
	hasCount := primary.hasColumn(cols.Count)
	hasSales := primary.hasColumn(cols.NetSales)
	if !hasCount {
		t.issues = append(t.issues, Issue{Column: cols.Count, Reason: "column missing"})
	}
	if !hasSales {
		t.issues = append(t.issues, Issue{Column: cols.NetSales, Reason: "column missing"})
	}

	for i, row := range primary.Rows {
		rec := Record{
			SKU:       row[cols.SKU],
			ImageName: row[cols.Image],
			NetSales:  decimal.Zero,
		}
		if hasCount {
			rec.UnitCount = t.cleanCount(i+1, cols.Count, row[cols.Count])
		}
		if hasSales {
			rec.NetSales = t.cleanAmount(i+1, cols.NetSales, row[cols.NetSales])
		}
		t.records = append(t.records, rec)
	}

	mapping, ok := loadMapping(opts.MappingPath, cols, log)
	if ok {
		t.mappingApplied = true
		matched := 0
		for i := range t.records {
			if id, hit := mapping[joinKey(t.records[i].ImageName)]; hit {
				t.records[i].CloudImageID = id
				matched++
			}
		}
		log.Info("image mapping merged",
			zap.String("path", opts.MappingPath),
			zap.Int("entries", len(mapping)),
			zap.Int("matched_rows", matched))
	}

	t.totals = computeTotals(t.records)
	for _, is := range t.issues {
		log.Warn("value substituted while cleaning",
			zap.Int("row", is.Row),
			zap.String("column", is.Column),
			zap.String("value", is.Value),
			zap.String("reason", is.Reason))
	}
	log.Info("catalog prepared",
		zap.String("path", opts.PrimaryPath),
		zap.Int("rows", len(t.records)),
		zap.Int64("total_units", t.totals.TotalUnits),
		zap.String("total_revenue", t.totals.TotalRevenue.String()),
		zap.Int("issues", len(t.issues)))
	return t, nil
}

func (t *Table) cleanAmount(row int, col, raw string) decimal.Decimal {
	if isBlank(raw) {
		return decimal.Zero
	}
	d, ok := ParseAmount(raw)
	switch {
	case !ok:
		t.issues = append(t.issues, Issue{Row: row, Column: col, Value: raw, Reason: "unparseable"})
		return decimal.Zero
	case d.IsNegative():
		t.issues = append(t.issues, Issue{Row: row, Column: col, Value: raw, Reason: "negative"})
		return decimal.Zero
	}
	return d
}

func (t *Table) cleanCount(row int, col, raw string) int64 {
	if isBlank(raw) {
		return 0
	}
	n, ok := ParseCount(raw)
	switch {
	case !ok:
		t.issues = append(t.issues, Issue{Row: row, Column: col, Value: raw, Reason: "unparseable"})
		return 0
	case n < 0:
		t.issues = append(t.issues, Issue{Row: row, Column: col, Value: raw, Reason: "negative"})
		return 0
	}
	return n
}

func joinKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// loadMapping returns the image -> cloud id map. The first entry wins when a
// key repeats, so the join never duplicates primary rows.
func loadMapping(path string, cols Columns, log *zap.Logger) (map[string]string, bool) {
	if path == "" {
		return nil, false
	}
	if _, err := os.Stat(path); err != nil {
		log.Debug("image mapping not found, cloud images disabled", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	tbl, err := loadCSV(path)
	if err != nil {
		log.Warn("image mapping unreadable, skipping merge", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	if missing := tbl.missing(cols.Image, cols.CloudID); len(missing) > 0 {
		log.Warn("image mapping lacks required columns, skipping merge",
			zap.String("path", path),
			zap.Strings("missing", missing),
			zap.Strings("found", tbl.Headers))
		return nil, false
	}
	out := make(map[string]string, len(tbl.Rows))
	for _, row := range tbl.Rows {
		key := joinKey(row[cols.Image])
		id := strings.TrimSpace(row[cols.CloudID])
		if key == "" || id == "" {
			continue
		}
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = id
	}
	return out, true
}

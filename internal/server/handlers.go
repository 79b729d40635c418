package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skudash/internal/catalog"
	"skudash/internal/export"
	"skudash/internal/images"
	"skudash/internal/report"
)

const maxPageSize = 500

type totalsJSON struct {
	TotalUnits   int64           `json:"total_units"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

type summaryJSON struct {
	Title          string          `json:"title"`
	Locale         string          `json:"locale"`
	Totals         totalsJSON      `json:"totals"`
	Rows           int             `json:"rows"`
	MappingApplied bool            `json:"mapping_applied"`
	Issues         int             `json:"issues"`
	SKUs           []string        `json:"skus"`
	Metrics        []report.Metric `json:"metrics"`
	DefaultMetric  report.Metric   `json:"default_metric"`
	TopN           int             `json:"top_n"`
}

type imageJSON struct {
	Found       bool          `json:"found"`
	URL         string        `json:"url,omitempty"`
	Source      images.Source `json:"source"`
	Placeholder string        `json:"placeholder,omitempty"`
}

type productJSON struct {
	SKU           string          `json:"sku"`
	Images        string          `json:"images"`
	TotalCount    int64           `json:"total_count"`
	TotalNetSales decimal.Decimal `json:"total_net_sales"`
	DriveID       string          `json:"drive_id,omitempty"`
	Image         imageJSON       `json:"image"`
}

type detailJSON struct {
	Found   bool         `json:"found"`
	SKU     string       `json:"sku"`
	Product *productJSON `json:"product,omitempty"`
	Message string       `json:"message,omitempty"`
}

type pieJSON struct {
	Metric report.Metric  `json:"metric"`
	Slices []report.Slice `json:"slices"`
}

type tableJSON struct {
	Rows      []productJSON `json:"rows"`
	Matched   int           `json:"matched"`
	Page      int           `json:"page"`
	PageSize  int           `json:"page_size"`
	PageCount int           `json:"page_count"`
}

func (s *Server) summary() summaryJSON {
	t := s.table.Totals()
	return summaryJSON{
		Title:          s.dash.Title,
		Locale:         s.labels.Locale,
		Totals:         totalsJSON{TotalUnits: t.TotalUnits, TotalRevenue: t.TotalRevenue},
		Rows:           s.table.Len(),
		MappingApplied: s.table.MappingApplied(),
		Issues:         len(s.table.Issues()),
		SKUs:           s.skus,
		Metrics:        report.Metrics,
		DefaultMetric:  s.metric,
		TopN:           s.dash.TopN,
	}
}

func (s *Server) product(rec catalog.Record, res images.Resolution) productJSON {
	img := imageJSON{Found: res.Found(), URL: res.URL, Source: res.Source}
	if !img.Found {
		img.Placeholder = s.labels.NoImage
	}
	return productJSON{
		SKU:           rec.SKU,
		Images:        rec.ImageName,
		TotalCount:    rec.UnitCount,
		TotalNetSales: rec.NetSales,
		DriveID:       rec.CloudImageID,
		Image:         img,
	}
}

func (s *Server) detail(sku string) detailJSON {
	d := report.LookupDetail(s.table, s.resolver, sku)
	if !d.Found {
		return detailJSON{SKU: sku, Message: s.labels.UnknownSKU}
	}
	p := s.product(d.Record, d.Image)
	return detailJSON{Found: true, SKU: sku, Product: &p}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.summary())
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	d := s.detail(r.PathValue("sku"))
	if !d.Found {
		writeJSON(w, http.StatusNotFound, d)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) metricParam(r *http.Request) (report.Metric, error) {
	v := r.URL.Query().Get("metric")
	if v == "" {
		return s.metric, nil
	}
	return report.ParseMetric(v)
}

func (s *Server) pie(metric report.Metric, n int) pieJSON {
	series := report.TopN(s.table.Records(), metric, n)
	if series == nil {
		series = []report.Slice{}
	}
	for i := range series {
		if series[i].Other {
			series[i].Label = s.labels.Other
		}
	}
	return pieJSON{Metric: metric, Slices: series}
}

func (s *Server) handlePie(w http.ResponseWriter, r *http.Request) {
	metric, err := s.metricParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := parseIntParam(r, "n", s.dash.TopN, 1, len(s.skus)+1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.pie(metric, n))
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	metric, err := s.metricParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	query := report.Query{
		Search: q.Get("q"),
		SortBy: q.Get("sort"),
		Metric: metric,
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
	case "desc":
		query.Desc = true
	default:
		writeError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}
	if query.Min, err = parseDecimalParam(r, "min"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.Max, err = parseDecimalParam(r, "max"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.Page, err = parseIntParam(r, "page", 1, 1, 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if query.PageSize, err = parseIntParam(r, "page_size", s.dash.PageSize, 1, maxPageSize); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := report.Apply(s.table.Records(), query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resolved, err := s.resolver.ResolveAll(r.Context(), page.Rows)
	if err != nil {
		// Client went away.
		s.log.Debug("table resolve aborted", zap.Error(err))
		return
	}
	out := tableJSON{
		Rows:      make([]productJSON, len(page.Rows)),
		Matched:   page.Matched,
		Page:      page.Page,
		PageSize:  page.PageSize,
		PageCount: page.PageCount(),
	}
	for i, rec := range page.Rows {
		out.Rows[i] = s.product(rec, resolved[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sku_sales.csv"`)
	if err := export.WriteCSV(w, s.table.Records()); err != nil {
		s.log.Error("csv download failed", zap.Error(err))
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var initial detailJSON
	if len(s.skus) > 0 {
		initial = s.detail(s.skus[0])
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, map[string]any{
		"title":        s.dash.Title,
		"lang":         s.labels.Locale,
		"labels":       s.labels,
		"summary_json": s.mustJSONTemplateJS(s.summary()),
		"detail_json":  s.mustJSONTemplateJS(initial),
		"pie_json":     s.mustJSONTemplateJS(s.pie(s.metric, s.dash.TopN)),
		"labels_json":  s.mustJSONTemplateJS(s.labels),
	}); err != nil {
		s.log.Error("template error", zap.Error(err))
	}
}

// parseIntParam reads an integer query parameter, falling back to def when
// absent. Values above hi are clamped; hi <= 0 means unbounded.
func parseIntParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo {
		return 0, &paramError{name: name, value: raw}
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return v, nil
}

func parseDecimalParam(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &paramError{name: name, value: raw}
	}
	return &d, nil
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}

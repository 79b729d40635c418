package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skudash/internal/catalog"
	"skudash/internal/config"
	"skudash/internal/export"
	"skudash/internal/images"
	"skudash/internal/report"
)

func testdataPath(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func newTestServer(t *testing.T, locale string) (*Server, *catalog.Table) {
	t.Helper()
	table, err := catalog.Prepare(catalog.Options{
		PrimaryPath: testdataPath("merged_sku_image_sales.csv"),
		MappingPath: testdataPath("drive_map.csv"),
	})
	require.NoError(t, err)

	imageDir := testdataPath("images")
	res, err := images.New(images.Options{FS: os.DirFS(imageDir), CacheSize: 16})
	require.NoError(t, err)

	dash := config.DefaultConfig().Dashboard
	dash.Locale = locale
	return New(Options{
		Table:      table,
		Resolver:   res,
		Dashboard:  dash,
		ImageDir:   imageDir,
		ImageRoute: images.DefaultRoute,
	}), table
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "en")
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDEchoed(t *testing.T) {
	s, _ := newTestServer(t, "en")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestSummary(t *testing.T) {
	s, _ := newTestServer(t, "en")
	rec := get(t, s.Handler(), "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	sum := decode[summaryJSON](t, rec)
	assert.Equal(t, 6, sum.Rows)
	assert.Equal(t, int64(48), sum.Totals.TotalUnits)
	assert.True(t, decimal.RequireFromString("3829.46").Equal(sum.Totals.TotalRevenue), sum.Totals.TotalRevenue.String())
	assert.True(t, sum.MappingApplied)
	assert.Equal(t, []string{"A-100", "B-200", "C-300", "D-400", "E-500"}, sum.SKUs)
	assert.Equal(t, report.MetricRevenue, sum.DefaultMetric)
	assert.Equal(t, "SKU Sales Dashboard", sum.Title)
}

func TestProductDetail(t *testing.T) {
	s, _ := newTestServer(t, "en")
	h := s.Handler()

	tests := []struct {
		sku       string
		source    string
		urlPart   string
		wantFound bool
	}{
		{sku: "A-100", source: "cloud", urlPart: "id=1AbCdriveId", wantFound: true},
		{sku: "B-200", source: "cloud", urlPart: "id=2BcDdriveId", wantFound: true},
		{sku: "C-300", source: "local", urlPart: "/images/C300.JPG", wantFound: true},
		{sku: "D-400", source: "url", urlPart: "https://cdn.example.com/d400.png", wantFound: true},
		{sku: "E-500", source: "none", wantFound: false},
	}
	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			rec := get(t, h, "/api/products/"+tt.sku)
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Found   bool `json:"found"`
				Product struct {
					SKU   string `json:"sku"`
					Image struct {
						Found       bool   `json:"found"`
						URL         string `json:"url"`
						Source      string `json:"source"`
						Placeholder string `json:"placeholder"`
					} `json:"image"`
				} `json:"product"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.True(t, body.Found)
			assert.Equal(t, tt.sku, body.Product.SKU)
			assert.Equal(t, tt.wantFound, body.Product.Image.Found)
			assert.Equal(t, tt.source, body.Product.Image.Source)
			if tt.wantFound {
				assert.Contains(t, body.Product.Image.URL, tt.urlPart)
				assert.Empty(t, body.Product.Image.Placeholder)
			} else {
				assert.Empty(t, body.Product.Image.URL)
				assert.Equal(t, "No image available.", body.Product.Image.Placeholder)
			}
		})
	}
}

func TestProductDetail_FirstMatchWins(t *testing.T) {
	s, _ := newTestServer(t, "en")
	d := decode[detailJSON](t, get(t, s.Handler(), "/api/products/A-100"))
	require.NotNil(t, d.Product)
	assert.Equal(t, "a100.jpg", d.Product.Images)
	assert.Equal(t, int64(12), d.Product.TotalCount)
}

func TestProductDetail_Unknown(t *testing.T) {
	s, _ := newTestServer(t, "en")
	rec := get(t, s.Handler(), "/api/products/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	d := decode[detailJSON](t, rec)
	assert.False(t, d.Found)
	assert.Equal(t, "NOPE", d.SKU)
	assert.Nil(t, d.Product)
}

func TestPie(t *testing.T) {
	s, _ := newTestServer(t, "en")
	h := s.Handler()

	p := decode[pieJSON](t, get(t, h, "/api/pie?n=2&metric=Total+Count"))
	assert.Equal(t, report.MetricUnits, p.Metric)
	require.Len(t, p.Slices, 3)
	assert.Equal(t, "E-500", p.Slices[0].Label)
	assert.Equal(t, "A-100", p.Slices[1].Label, "duplicate SKU rows are summed")
	assert.True(t, decimal.NewFromInt(13).Equal(p.Slices[1].Value))
	assert.True(t, p.Slices[2].Other)
	assert.Equal(t, "Other", p.Slices[2].Label)
	assert.True(t, decimal.NewFromInt(10).Equal(p.Slices[2].Value))

	p = decode[pieJSON](t, get(t, h, "/api/pie"))
	assert.Equal(t, report.MetricRevenue, p.Metric)
	assert.Len(t, p.Slices, 5, "five SKUs fit under the default top n")
}

func TestPie_BadParams(t *testing.T) {
	s, _ := newTestServer(t, "en")
	h := s.Handler()
	for _, target := range []string{"/api/pie?metric=profit", "/api/pie?n=0", "/api/pie?n=ten"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "error")
	}
}

func TestPie_LocalisedOther(t *testing.T) {
	s, _ := newTestServer(t, "zh")
	p := decode[pieJSON](t, get(t, s.Handler(), "/api/pie?n=1"))
	require.Len(t, p.Slices, 2)
	assert.Equal(t, "其他", p.Slices[1].Label)
}

func TestTable(t *testing.T) {
	s, _ := newTestServer(t, "en")
	h := s.Handler()

	tbl := decode[tableJSON](t, get(t, h, "/api/table?sort=Total+Count&order=desc&page_size=2"))
	assert.Equal(t, 6, tbl.Matched)
	assert.Equal(t, 3, tbl.PageCount)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "E-500", tbl.Rows[0].SKU)
	assert.Equal(t, "A-100", tbl.Rows[1].SKU)
	assert.Equal(t, "cloud", tbl.Rows[1].Image.Source.String())

	tbl = decode[tableJSON](t, get(t, h, "/api/table?q=b200"))
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "B-200", tbl.Rows[0].SKU)

	tbl = decode[tableJSON](t, get(t, h, "/api/table?min=1000&metric=Total+Net+Sales"))
	assert.Equal(t, 2, tbl.Matched)

	tbl = decode[tableJSON](t, get(t, h, "/api/table?page=9"))
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, 6, tbl.Matched)
}

func TestTable_BadParams(t *testing.T) {
	s, _ := newTestServer(t, "en")
	h := s.Handler()
	for _, target := range []string{
		"/api/table?sort=price",
		"/api/table?order=sideways",
		"/api/table?min=lots",
		"/api/table?page=0",
		"/api/table?metric=profit",
	} {
		assert.Equal(t, http.StatusBadRequest, get(t, h, target).Code, target)
	}
}

func TestDownloadCSV(t *testing.T) {
	s, table := newTestServer(t, "en")
	rec := get(t, s.Handler(), "/download.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sku_sales.csv")

	mismatches, err := export.Verify(table.Records(), strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestDashboardPage(t *testing.T) {
	s, _ := newTestServer(t, "en")
	h := s.Handler()

	rec := get(t, h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<title>SKU Sales Dashboard</title>")
	assert.Contains(t, body, `"A-100"`)
	assert.Contains(t, body, "Download CSV")

	assert.Equal(t, http.StatusNotFound, get(t, h, "/missing").Code)
}

func TestDashboardPage_Chinese(t *testing.T) {
	s, _ := newTestServer(t, "zh")
	body := get(t, s.Handler(), "/").Body.String()
	assert.Contains(t, body, `lang="zh"`)
	assert.Contains(t, body, "<title>SKU 销售看板</title>")
	assert.NotContains(t, body, "SKU Sales Dashboard")

	sum := decode[summaryJSON](t, get(t, s.Handler(), "/api/summary"))
	assert.Equal(t, "SKU 销售看板", sum.Title)
}

func TestDashboardPage_ConfiguredTitleWins(t *testing.T) {
	table := catalog.NewTable(nil)
	dash := config.DefaultConfig().Dashboard
	dash.Locale = "zh"
	dash.Title = "Spring catalogue"
	s := New(Options{Table: table, Resolver: mustResolver(t), Dashboard: dash})
	assert.Contains(t, get(t, s.Handler(), "/").Body.String(), "<title>Spring catalogue</title>")
}

func TestImageRoute(t *testing.T) {
	s, _ := newTestServer(t, "en")
	h := s.Handler()
	assert.Equal(t, http.StatusOK, get(t, h, "/images/C300.JPG").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/images/absent.png").Code)
}

func TestImageRoute_NoDirectoryListing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "x.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.jpg"), []byte("jpg"), 0o644))

	s := New(Options{Table: catalog.NewTable(nil), Resolver: mustResolver(t), ImageDir: dir})
	h := s.Handler()
	for _, target := range []string{"/images/", "/images/sub/", "/images/sub"} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.NotContains(t, rec.Body.String(), "top.jpg", target)
		assert.NotContains(t, rec.Body.String(), "x.png", target)
	}
	assert.Equal(t, http.StatusOK, get(t, h, "/images/top.jpg").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/images/sub/x.png").Code)
}

func TestNew_EmptyTable(t *testing.T) {
	s := New(Options{
		Table:    catalog.NewTable(nil),
		Resolver: mustResolver(t),
	})
	h := s.Handler()

	sum := decode[summaryJSON](t, get(t, h, "/api/summary"))
	assert.Equal(t, 0, sum.Rows)
	assert.Empty(t, sum.SKUs)
	assert.True(t, sum.Totals.TotalRevenue.IsZero())

	assert.Equal(t, http.StatusOK, get(t, h, "/").Code)
	p := decode[pieJSON](t, get(t, h, "/api/pie"))
	assert.Empty(t, p.Slices)
}

func mustResolver(t *testing.T) *images.Resolver {
	t.Helper()
	r, err := images.New(images.Options{})
	require.NoError(t, err)
	return r
}

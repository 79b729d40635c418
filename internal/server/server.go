// Package server serves the dashboard page and its JSON API over the
// immutable canonical table.
package server

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skudash/internal/catalog"
	"skudash/internal/config"
	"skudash/internal/images"
	"skudash/internal/report"
)

// ImageResolver is implemented by *images.Resolver.
type ImageResolver interface {
	Resolve(catalog.Record) images.Resolution
	ResolveAll(context.Context, []catalog.Record) ([]images.Resolution, error)
}

type Options struct {
	Table     *catalog.Table
	Resolver  ImageResolver
	Dashboard config.DashboardConfig
	// ImageDir is served under ImageRoute when non-empty.
	ImageDir   string
	ImageRoute string
	Logger     *zap.Logger
}

type Server struct {
	table      *catalog.Table
	resolver   ImageResolver
	dash       config.DashboardConfig
	labels     labels
	metric     report.Metric
	skus       []string
	imageDir   string
	imageRoute string
	log        *zap.Logger
}

func New(opts Options) *Server {
	s := &Server{
		table:      opts.Table,
		resolver:   opts.Resolver,
		dash:       opts.Dashboard,
		labels:     labelsFor(opts.Dashboard.Locale),
		imageDir:   opts.ImageDir,
		imageRoute: strings.TrimSuffix(opts.ImageRoute, "/"),
		log:        opts.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.imageRoute == "" {
		s.imageRoute = images.DefaultRoute
	}
	if s.dash.TopN < 1 {
		s.dash.TopN = report.DefaultTopN
	}
	if s.dash.PageSize < 1 {
		s.dash.PageSize = report.DefaultPageSize
	}
	if s.dash.Title == "" {
		s.dash.Title = s.labels.Title
	}
	m, err := report.ParseMetric(s.dash.DefaultMetric)
	if err != nil {
		m = report.MetricRevenue
	}
	s.metric = m
	s.skus = report.SKUOptions(s.table.Records())
	return s
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/products/{sku...}", s.handleProduct)
	mux.HandleFunc("GET /api/pie", s.handlePie)
	mux.HandleFunc("GET /api/table", s.handleTable)
	mux.HandleFunc("GET /download.csv", s.handleDownload)
	if s.imageDir != "" {
		files := http.FileServer(filesOnly{http.Dir(s.imageDir)})
		mux.Handle("GET "+s.imageRoute+"/", http.StripPrefix(s.imageRoute, files))
	}
	return s.logRequests(mux)
}

// filesOnly hides directories so the image route never renders a listing.
type filesOnly struct {
	http.FileSystem
}

func (fsys filesOnly) Open(name string) (http.File, error) {
	f, err := fsys.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) mustJSONTemplateJS(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("json marshal error for template data", zap.Error(err))
		return template.JS("null")
	}
	return template.JS(b)
}

// Package images resolves the display image URL of a catalog record.
//
// Resolution walks a fixed list of rules and stops at the first one that
// produces a URL:
//
//  1. cloud reference (mapping id) -> hosted view URL
//  2. image name that already is an http(s) URL -> passed through
//  3. image name found in the local image directory -> static route URL
//
// A record that matches no rule resolves to SourceNone; callers render a
// placeholder for it.
package images

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skudash/internal/catalog"
)

const (
	DefaultCloudBaseURL = "https://drive.google.com/uc"
	DefaultRoute        = "/images"
	DefaultCacheSize    = 4096
)

// bareExtensions are tried, in order, for image names without an extension.
var bareExtensions = []string{".jpg", ".jpeg", ".png", ".JPG", ".JPEG", ".PNG"}

type Source int

const (
	SourceNone Source = iota
	SourceCloud
	SourceURL
	SourceLocal
)

func (s Source) String() string {
	switch s {
	case SourceCloud:
		return "cloud"
	case SourceURL:
		return "url"
	case SourceLocal:
		return "local"
	default:
		return "none"
	}
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Source) UnmarshalText(b []byte) error {
	switch string(b) {
	case "cloud":
		*s = SourceCloud
	case "url":
		*s = SourceURL
	case "local":
		*s = SourceLocal
	case "none", "":
		*s = SourceNone
	default:
		return fmt.Errorf("unknown image source %q", b)
	}
	return nil
}

type Resolution struct {
	URL    string `json:"url,omitempty"`
	Source Source `json:"source"`
}

func (r Resolution) Found() bool { return r.URL != "" }

type Options struct {
	// FS is rooted at the local image directory. Nil disables local search.
	FS           fs.FS
	CloudBaseURL string
	// Route is the URL prefix the presentation layer serves FS under.
	Route string
	// CacheSize bounds the memoised results; zero or less disables caching.
	CacheSize int
	// Workers bounds ResolveAll concurrency (default 8).
	Workers int
	Logger  *zap.Logger
}

type rule struct {
	source Source
	match  func(catalog.Record) (string, bool)
}

type cacheKey struct {
	cloudID string
	name    string
}

// Resolver is safe for concurrent use.
type Resolver struct {
	fsys      fs.FS
	cloudBase string
	route     string
	workers   int
	rules     []rule
	cache     *lru.Cache[cacheKey, Resolution]
	log       *zap.Logger
}

func New(opts Options) (*Resolver, error) {
	r := &Resolver{
		fsys:      opts.FS,
		cloudBase: opts.CloudBaseURL,
		route:     strings.TrimSuffix(opts.Route, "/"),
		workers:   opts.Workers,
		log:       opts.Logger,
	}
	if r.cloudBase == "" {
		r.cloudBase = DefaultCloudBaseURL
	}
	if opts.Route == "" {
		r.route = DefaultRoute
	}
	if r.workers <= 0 {
		r.workers = 8
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if opts.CacheSize > 0 {
		c, err := lru.New[cacheKey, Resolution](opts.CacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = c
	}
	r.rules = []rule{
		{source: SourceCloud, match: r.cloudRule},
		{source: SourceURL, match: passthroughRule},
		{source: SourceLocal, match: r.localRule},
	}
	return r, nil
}

// Resolve returns the display URL for rec, or a SourceNone resolution.
func (r *Resolver) Resolve(rec catalog.Record) Resolution {
	key := cacheKey{cloudID: rec.CloudImageID, name: rec.ImageName}
	if r.cache != nil {
		if res, ok := r.cache.Get(key); ok {
			return res
		}
	}
	res := Resolution{Source: SourceNone}
	for _, rl := range r.rules {
		if u, ok := rl.match(rec); ok {
			res = Resolution{URL: u, Source: rl.source}
			break
		}
	}
	if r.cache != nil {
		r.cache.Add(key, res)
	}
	return res
}

// ResolveAll resolves recs concurrently. The result is index-aligned with
// recs.
func (r *Resolver) ResolveAll(ctx context.Context, recs []catalog.Record) ([]Resolution, error) {
	out := make([]Resolution, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range recs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = r.Resolve(recs[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Purge drops every memoised result, e.g. after the image directory changed.
func (r *Resolver) Purge() {
	if r.cache == nil {
		return
	}
	n := r.cache.Len()
	r.cache.Purge()
	r.log.Debug("image cache purged", zap.Int("entries", n))
}

func (r *Resolver) cloudRule(rec catalog.Record) (string, bool) {
	id := strings.TrimSpace(rec.CloudImageID)
	if id == "" {
		return "", false
	}
	v := url.Values{}
	v.Set("export", "view")
	v.Set("id", id)
	sep := "?"
	if strings.Contains(r.cloudBase, "?") {
		sep = "&"
	}
	return r.cloudBase + sep + v.Encode(), true
}

func passthroughRule(rec catalog.Record) (string, bool) {
	s := strings.TrimSpace(rec.ImageName)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s, true
	}
	return "", false
}

func (r *Resolver) localRule(rec catalog.Record) (string, bool) {
	name, ok := r.findLocal(rec.ImageName)
	if !ok {
		return "", false
	}
	return r.route + "/" + url.PathEscape(name), true
}

// findLocal returns the name of the first file in the image directory that
// matches name, trying the original, lower and upper case spellings.
func (r *Resolver) findLocal(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || r.fsys == nil {
		return "", false
	}
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return "", false
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if ext != "" && base != "" {
		for _, b := range caseVariants(base) {
			matches, err := fs.Glob(r.fsys, globEscape(b)+".*")
			if err != nil {
				continue
			}
			for _, m := range matches {
				if r.isFile(m) {
					return m, true
				}
			}
		}
		return "", false
	}

	for _, b := range caseVariants(name) {
		for _, e := range bareExtensions {
			if r.isFile(b + e) {
				return b + e, true
			}
		}
	}
	return "", false
}

func (r *Resolver) isFile(name string) bool {
	info, err := fs.Stat(r.fsys, name)
	return err == nil && info.Mode().IsRegular()
}

func caseVariants(s string) []string {
	out := []string{s}
	for _, v := range []string{strings.ToLower(s), strings.ToUpper(s)} {
		dup := false
		for _, o := range out {
			if o == v {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func globEscape(s string) string {
	var sb strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

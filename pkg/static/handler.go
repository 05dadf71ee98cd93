// Package static serves the endpoints of an asset manifest over HTTP.
//
// Each request path is matched against manifest routes. When a route has
// Content-Encoding variants, the variant the client accepts with the best
// quality is served; otherwise the selector-less endpoint is. Response
// headers come from the manifest, and every response on such a route
// carries Vary: Content-Encoding.
//
//	manifest, _ := assets.Load("dist/endpoints.json")
//	h := static.New(manifest, static.WithRoot("dist"))
//	http.ListenAndServe(":8080", h.Routes())
package static

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/assetkit/internal/telemetry"
	"github.com/vango-dev/assetkit/pkg/assets"
)

// Handler serves manifest endpoints.
type Handler struct {
	routes  map[string][]assets.Endpoint
	root    string
	prefix  string
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRoot sets the directory relative asset files are resolved against,
// normally the directory holding the manifest.
func WithRoot(dir string) Option {
	return func(h *Handler) {
		h.root = dir
	}
}

// WithPrefix mounts the routes under a URL prefix (default: "/").
func WithPrefix(prefix string) Option {
	return func(h *Handler) {
		h.prefix = prefix
	}
}

// WithMetrics records requests in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// New creates a Handler for the endpoints in m.
func New(m *assets.Manifest, opts ...Option) *Handler {
	h := &Handler{
		routes: m.Routes(),
		prefix: "/",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if !strings.HasSuffix(h.prefix, "/") {
		h.prefix += "/"
	}
	if h.metrics == nil {
		h.metrics = telemetry.Discard()
	}
	return h
}

// Routes returns a chi router serving the handler under its prefix.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	pattern := h.prefix + "*"
	r.Get(pattern, h.ServeHTTP)
	r.Head(pattern, h.ServeHTTP)
	return r
}

// Lookup returns the endpoint serving route for a request with the given
// Accept-Encoding header.
func (h *Handler) Lookup(route, acceptEncoding string) (assets.Endpoint, bool) {
	candidates, ok := h.routes[route]
	if !ok {
		return assets.Endpoint{}, false
	}

	accepted := parseAcceptEncoding(acceptEncoding)
	var best *assets.Endpoint
	var bestClient, bestServer float64
	var fallback *assets.Endpoint

	for i := range candidates {
		e := &candidates[i]
		if e.IsDefault() {
			if fallback == nil {
				fallback = e
			}
			continue
		}
		sel, ok := e.Selector("Content-Encoding")
		if !ok {
			continue
		}
		client := accepted.quality(sel.Value)
		if client <= 0 {
			continue
		}
		server, _ := strconv.ParseFloat(sel.Quality, 64)
		if best == nil || client > bestClient || (client == bestClient && server > bestServer) {
			best, bestClient, bestServer = e, client, server
		}
	}

	switch {
	case best != nil:
		return *best, true
	case fallback != nil:
		return *fallback, true
	}
	return assets.Endpoint{}, false
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	encoding := "identity"
	defer func() {
		h.metrics.RequestsTotal.WithLabelValues(encoding, strconv.Itoa(ww.Status())).Inc()
	}()

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(ww, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	route, ok := h.routePath(r.URL.Path)
	if !ok {
		http.NotFound(ww, r)
		return
	}

	e, ok := h.Lookup(route, r.Header.Get("Accept-Encoding"))
	if !ok {
		http.NotFound(ww, r)
		return
	}

	f, err := os.Open(h.resolve(e.AssetFile))
	if err != nil {
		h.logger.Warn("endpoint file missing", "route", route, "asset", e.AssetFile, "error", err)
		http.NotFound(ww, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(ww, r)
		return
	}

	modified := info.ModTime()
	for _, hdr := range e.ResponseHeaders {
		switch {
		case strings.EqualFold(hdr.Name, assets.HeaderContentLength):
			// ServeContent computes the length, including for ranges.
		case strings.EqualFold(hdr.Name, assets.HeaderLastModified):
			if t, err := http.ParseTime(hdr.Value); err == nil {
				modified = t
			}
		case strings.EqualFold(hdr.Name, assets.HeaderVary):
			ww.Header().Add(hdr.Name, hdr.Value)
		default:
			ww.Header().Set(hdr.Name, hdr.Value)
		}
	}
	if v, ok := e.Header(assets.HeaderContentEncoding); ok {
		encoding = v
	}
	if e.IsDefault() && h.negotiated(route) && !varies(ww.Header(), assets.HeaderContentEncoding) {
		ww.Header().Add(assets.HeaderVary, assets.HeaderContentEncoding)
	}

	http.ServeContent(ww, r, path.Base(route), modified.Truncate(time.Second), f)
}

// negotiated reports whether route has endpoints selected by
// Content-Encoding.
func (h *Handler) negotiated(route string) bool {
	for _, e := range h.routes[route] {
		if _, ok := e.Selector(assets.HeaderContentEncoding); ok {
			return true
		}
	}
	return false
}

func varies(header http.Header, name string) bool {
	for _, v := range header.Values("Vary") {
		for _, field := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(field), name) {
				return true
			}
		}
	}
	return false
}

// routePath returns the manifest route for a request path. It rejects
// traversal and absolute-path tricks even though only manifest routes are
// ever served.
func (h *Handler) routePath(urlPath string) (string, bool) {
	if !strings.HasPrefix(urlPath, h.prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(urlPath, h.prefix)
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}
	if strings.Contains(rel, "\\") || strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}
	return rel, true
}

func (h *Handler) resolve(assetFile string) string {
	p := filepath.FromSlash(assetFile)
	if filepath.IsAbs(p) || h.root == "" {
		return p
	}
	return filepath.Join(h.root, p)
}

// acceptEncoding holds the q-values of an Accept-Encoding header.
type acceptEncoding map[string]float64

func parseAcceptEncoding(header string) acceptEncoding {
	out := make(acceptEncoding)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, params, _ := strings.Cut(part, ";")
		q := 1.0
		for _, p := range strings.Split(params, ";") {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if ok && strings.EqualFold(k, "q") {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					q = f
				}
			}
		}
		out[strings.ToLower(strings.TrimSpace(name))] = q
	}
	return out
}

// quality returns the client's q-value for encoding, honoring "*".
func (a acceptEncoding) quality(encoding string) float64 {
	if q, ok := a[strings.ToLower(encoding)]; ok {
		return q
	}
	if q, ok := a["*"]; ok {
		return q
	}
	return 0
}

// Package endpoints turns catalog assets into servable endpoints.
//
// Each asset's relative path pattern is expanded into every combination of
// its optional segments. Each combination that resolves becomes a route with
// response headers describing the file and, for fingerprinted routes,
// properties linking back to the unfingerprinted label.
package endpoints

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/vango-dev/assetkit/internal/catalog"
	"github.com/vango-dev/assetkit/internal/contenttype"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/fingerprint"
	"github.com/vango-dev/assetkit/pkg/assets"
	"github.com/vango-dev/assetkit/pkg/pathpattern"
)

// Cache-Control values.
const (
	CacheNoCache   = "no-cache"
	CacheImmutable = "max-age=31536000, immutable"
)

// LengthResolver returns the byte length of an asset.
type LengthResolver func(*catalog.Asset) (int64, error)

// LastModifiedResolver returns the last write time of an asset.
type LastModifiedResolver func(*catalog.Asset) (time.Time, error)

// FileLength reads Asset.FileLength.
func FileLength(a *catalog.Asset) (int64, error) {
	return a.FileLength, nil
}

// LastWriteTime reads Asset.LastWriteTime.
func LastWriteTime(a *catalog.Asset) (time.Time, error) {
	return a.LastWriteTime, nil
}

// Resolver computes endpoints for a catalog.
type Resolver struct {
	contentTypes *contenttype.Provider
	length       LengthResolver
	lastModified LastModifiedResolver
	logger       *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithContentTypes sets the content type provider.
func WithContentTypes(p *contenttype.Provider) Option {
	return func(r *Resolver) {
		r.contentTypes = p
	}
}

// WithLengthResolver replaces the file length lookup.
func WithLengthResolver(fn LengthResolver) Option {
	return func(r *Resolver) {
		r.length = fn
	}
}

// WithLastModifiedResolver replaces the last write time lookup.
func WithLastModifiedResolver(fn LastModifiedResolver) Option {
	return func(r *Resolver) {
		r.lastModified = fn
	}
}

// WithLogger sets the logger for skipped variants.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a Resolver. Without options it uses the built-in content
// types and reads length and modification time from the asset records.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		contentTypes: contenttype.Default(),
		length:       FileLength,
		lastModified: LastWriteTime,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns existing followed by the endpoints generated for every
// asset in cat.
//
// Existing endpoints must point at catalog assets. A generated endpoint whose
// route and asset file are already present in existing is skipped. Assets are
// processed in identity order, and an asset whose pattern has an unresolvable
// required token fails the whole call.
func (r *Resolver) Resolve(cat *catalog.Catalog, existing []assets.Endpoint) ([]assets.Endpoint, error) {
	out := make([]assets.Endpoint, 0, len(existing)+cat.Len()*2)
	seen := make(map[string]bool)
	routes := newRouteTable()

	for _, e := range existing {
		if _, ok := cat.Get(e.AssetFile); !ok {
			return nil, errors.New(errors.CodeMissingAsset).
				WithDetail("endpoint refers to a file that is not in the asset catalog").
				WithMeta("route", e.Route).
				WithMeta("asset", e.AssetFile)
		}
		seen[pairKey(e.Route, e.AssetFile)] = true
		if err := routes.claim(e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	for _, a := range cat.Sorted() {
		generated, err := r.ResolveAsset(cat, a)
		if err != nil {
			return nil, err
		}
		for _, e := range generated {
			key := pairKey(e.Route, e.AssetFile)
			if seen[key] {
				continue
			}
			seen[key] = true
			if err := routes.claim(e); err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// ResolveAsset computes the endpoints of a single asset without merging or
// conflict checks.
func (r *Resolver) ResolveAsset(cat *catalog.Catalog, a *catalog.Asset) ([]assets.Endpoint, error) {
	pattern, err := pathpattern.Parse(a.RelativePath, a.Identity)
	if err != nil {
		return nil, err
	}
	if _, _, err := pattern.ReplaceTokens(a, nil); err != nil {
		return nil, err
	}

	label, _, err := pattern.Omit(fingerprint.TokenName).ReplaceTokens(a, nil)
	if err != nil {
		return nil, err
	}
	contentType := r.contentType(cat, a, label)

	length, err := r.length(a)
	if err != nil {
		return nil, errors.New(errors.CodeMissingAsset).WithMeta("asset", a.Identity).Wrap(err)
	}
	modified, err := r.lastModified(a)
	if err != nil {
		return nil, errors.New(errors.CodeMissingAsset).WithMeta("asset", a.Identity).Wrap(err)
	}

	variants := []*pathpattern.PathPattern{pattern}
	if pattern.HasOptional() {
		variants = pattern.Expand()
	}

	var out []assets.Endpoint
	for _, variant := range variants {
		resolved, consumed, err := variant.ReplaceTokens(a, nil)
		if err != nil {
			r.logger.Debug("skipping unresolved variant",
				"asset", a.Identity,
				"pattern", variant.Template)
			continue
		}

		_, hasFingerprint := a.Token(fingerprint.TokenName)
		fingerprinted := hasFingerprint && slices.Contains(consumed, fingerprint.TokenName)

		e := assets.Endpoint{
			Route:     catalog.JoinRoute(a.BasePath, resolved),
			AssetFile: a.Identity,
		}
		e.AddHeader(assets.HeaderAcceptRanges, "bytes")
		if fingerprinted {
			e.AddHeader(assets.HeaderCacheControl, CacheImmutable)
		} else {
			e.AddHeader(assets.HeaderCacheControl, CacheNoCache)
		}
		e.AddHeader(assets.HeaderContentLength, strconv.FormatInt(length, 10))
		if contentType != "" {
			e.AddHeader(assets.HeaderContentType, contentType)
		}
		if a.Integrity != "" {
			e.AddHeader(assets.HeaderETag, `"`+a.Integrity+`"`)
		}
		if !modified.IsZero() {
			e.AddHeader(assets.HeaderLastModified, modified.UTC().Format(http.TimeFormat))
		}

		if fingerprinted {
			e.AddProperty(assets.PropertyFingerprint, a.Fingerprint)
			e.AddProperty(assets.PropertyIntegrity, "sha256-"+a.Integrity)
			e.AddProperty(assets.PropertyLabel, catalog.JoinRoute(a.BasePath, label))
		}
		out = append(out, e)
	}
	return out, nil
}

// contentType resolves the type from the unfingerprinted path. Compressed
// alternatives take the type of their primary.
func (r *Resolver) contentType(cat *catalog.Catalog, a *catalog.Asset, label string) string {
	if a.IsAlternative() {
		if primary, ok := cat.Related(a); ok {
			if p, err := pathpattern.Parse(primary.RelativePath, primary.Identity); err == nil {
				if primaryLabel, _, err := p.Omit(fingerprint.TokenName).ReplaceTokens(primary, nil); err == nil {
					label = primaryLabel
				}
			}
		}
	}
	ct, _ := r.contentTypes.Resolve(label)
	return ct
}

func pairKey(route, file string) string {
	return route + "\x00" + file
}

// routeTable enforces one selector-less endpoint per route.
type routeTable map[string]string

func newRouteTable() routeTable {
	return make(routeTable)
}

func (t routeTable) claim(e assets.Endpoint) error {
	if !e.IsDefault() {
		return nil
	}
	if file, ok := t[e.Route]; ok && file != e.AssetFile {
		return errors.New(errors.CodeRouteConflict).
			WithMeta("route", e.Route).
			WithMeta("assets", file+", "+e.AssetFile)
	}
	t[e.Route] = e.AssetFile
	return nil
}

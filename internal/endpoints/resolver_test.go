package endpoints

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/assetkit/internal/catalog"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/pkg/assets"
)

var modified = time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))

func siteCSS() *catalog.Asset {
	return &catalog.Asset{
		Identity:      "/app/wwwroot/site.css",
		ContentRoot:   "/app/wwwroot",
		RelativePath:  "site#[.{fingerprint}]?.css",
		Fingerprint:   "abc123",
		Integrity:     "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=",
		FileLength:    20,
		LastWriteTime: modified,
	}
}

func mustCatalog(t *testing.T, list ...*catalog.Asset) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(list...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func headerString(e assets.Endpoint) string {
	var parts []string
	for _, h := range e.ResponseHeaders {
		parts = append(parts, h.Name+": "+h.Value)
	}
	return strings.Join(parts, "\n")
}

func TestResolveFingerprintedAndPlainRoutes(t *testing.T) {
	got, err := New().Resolve(mustCatalog(t, siteCSS()), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}

	plain, hashed := got[0], got[1]
	if plain.Route != "site.css" || hashed.Route != "site.abc123.css" {
		t.Fatalf("routes = %q, %q", plain.Route, hashed.Route)
	}

	wantPlain := strings.Join([]string{
		"Accept-Ranges: bytes",
		"Cache-Control: no-cache",
		"Content-Length: 20",
		"Content-Type: text/css",
		`ETag: "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="`,
		"Last-Modified: Fri, 01 Mar 2024 11:30:00 GMT",
	}, "\n")
	if h := headerString(plain); h != wantPlain {
		t.Errorf("plain headers =\n%s\nwant\n%s", h, wantPlain)
	}
	if len(plain.EndpointProperties) != 0 {
		t.Errorf("plain properties = %+v, want none", plain.EndpointProperties)
	}

	if v, _ := hashed.Header(assets.HeaderCacheControl); v != CacheImmutable {
		t.Errorf("hashed Cache-Control = %q", v)
	}
	wantProps := []assets.Property{
		{Name: "fingerprint", Value: "abc123"},
		{Name: "integrity", Value: "sha256-47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU="},
		{Name: "label", Value: "site.css"},
	}
	if fmt.Sprint(hashed.EndpointProperties) != fmt.Sprint(wantProps) {
		t.Errorf("hashed properties = %+v, want %+v", hashed.EndpointProperties, wantProps)
	}
}

func TestResolveWithoutFingerprint(t *testing.T) {
	a := siteCSS()
	a.Fingerprint = ""

	got, err := New().Resolve(mustCatalog(t, a), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 1 || got[0].Route != "site.css" {
		t.Fatalf("endpoints = %+v, want only site.css", got)
	}
}

func TestResolvePreferredPattern(t *testing.T) {
	a := siteCSS()
	a.RelativePath = "site#[.{fingerprint}]!.css"

	got, err := New().Resolve(mustCatalog(t, a), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	var labelled []string
	for _, e := range got {
		if label, ok := e.Property(assets.PropertyLabel); ok {
			labelled = append(labelled, e.Route+"->"+label)
		}
	}
	if strings.Join(labelled, ",") != "site.abc123.css->site.css" {
		t.Errorf("labelled = %v", labelled)
	}
	if len(got) != 2 {
		t.Errorf("bare fallback route missing: %+v", got)
	}
}

func TestResolveBasePath(t *testing.T) {
	a := siteCSS()
	a.BasePath = "/_content/lib/"
	a.RelativePath = "css/site#[.{fingerprint}]?.css"

	got, err := New().Resolve(mustCatalog(t, a), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Route != "_content/lib/css/site.css" || got[1].Route != "_content/lib/css/site.abc123.css" {
		t.Errorf("routes = %q, %q", got[0].Route, got[1].Route)
	}
	if v, _ := got[1].Property(assets.PropertyLabel); v != "_content/lib/css/site.css" {
		t.Errorf("label = %q", v)
	}
}

func TestResolveRequiredTokenFailsFast(t *testing.T) {
	bad := &catalog.Asset{Identity: "/w/app.js", RelativePath: "app#[.{version}].js"}
	good := &catalog.Asset{Identity: "/w/a.js", RelativePath: "a.js"}

	got, err := New().Resolve(mustCatalog(t, good, bad), nil)
	if !errors.HasCode(err, errors.CodeUnresolvedToken) {
		t.Fatalf("Resolve() error = %v, want %s", err, errors.CodeUnresolvedToken)
	}
	if got != nil {
		t.Errorf("partial result returned: %+v", got)
	}
	e, _ := errors.As(err)
	if v, _ := e.Get("token"); v != "version" {
		t.Errorf("token meta = %q", v)
	}
	if v, _ := e.Get("pattern"); v != "app#[.{version}].js" {
		t.Errorf("pattern meta = %q", v)
	}
}

func TestResolveInlineDefault(t *testing.T) {
	a := &catalog.Asset{Identity: "/w/app.js", RelativePath: "app#[.{version=v1}].js"}

	got, err := New().Resolve(mustCatalog(t, a), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Route != "app.v1.js" {
		t.Errorf("endpoints = %+v", got)
	}
	if v, _ := got[0].Header(assets.HeaderCacheControl); v != CacheNoCache {
		t.Errorf("Cache-Control = %q, want no-cache", v)
	}
}

func TestResolveUnknownContentType(t *testing.T) {
	a := &catalog.Asset{Identity: "/w/LICENSE", RelativePath: "LICENSE"}

	got, err := New().Resolve(mustCatalog(t, a), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got[0].Header(assets.HeaderContentType); ok {
		t.Error("Content-Type set for unknown extension")
	}
	if _, ok := got[0].Header(assets.HeaderETag); ok {
		t.Error("ETag set without integrity")
	}
	if _, ok := got[0].Header(assets.HeaderLastModified); ok {
		t.Error("Last-Modified set without a write time")
	}
}

func TestResolveAlternativeTakesPrimaryContentType(t *testing.T) {
	primary := siteCSS()
	gz := &catalog.Asset{
		Identity:        "/obj/site.css.gz",
		RelativePath:    "site#[.{fingerprint}]?.css.gz",
		AssetRole:       catalog.RoleAlternative,
		RelatedAsset:    primary.Identity,
		AssetTraitName:  catalog.TraitContentEncoding,
		AssetTraitValue: "gzip",
		Fingerprint:     "gz1",
		Integrity:       "Z3o=",
		FileLength:      9,
	}

	got, err := New().Resolve(mustCatalog(t, primary, gz), nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, e := range got {
		if e.AssetFile != gz.Identity {
			continue
		}
		if v, _ := e.Header(assets.HeaderContentType); v != "text/css" {
			t.Errorf("%s Content-Type = %q, want text/css", e.Route, v)
		}
	}
}

func TestResolvePluggableResolvers(t *testing.T) {
	r := New(
		WithLengthResolver(func(*catalog.Asset) (int64, error) { return 42, nil }),
		WithLastModifiedResolver(func(*catalog.Asset) (time.Time, error) {
			return time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), nil
		}),
	)

	got, err := r.Resolve(mustCatalog(t, siteCSS()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := got[0].Header(assets.HeaderContentLength); v != "42" {
		t.Errorf("Content-Length = %q", v)
	}
	if v, _ := got[0].Header(assets.HeaderLastModified); v != "Thu, 02 Jan 2020 03:04:05 GMT" {
		t.Errorf("Last-Modified = %q", v)
	}
}

func TestResolveLengthError(t *testing.T) {
	r := New(WithLengthResolver(func(*catalog.Asset) (int64, error) {
		return 0, fmt.Errorf("stat failed")
	}))

	_, err := r.Resolve(mustCatalog(t, siteCSS()), nil)
	if !errors.HasCode(err, errors.CodeMissingAsset) {
		t.Errorf("Resolve() error = %v, want %s", err, errors.CodeMissingAsset)
	}
}

func TestResolveSkipsExisting(t *testing.T) {
	existing := []assets.Endpoint{{
		Route:     "site.css",
		AssetFile: "/app/wwwroot/site.css",
		ResponseHeaders: []assets.ResponseHeader{
			{Name: "Cache-Control", Value: "no-store"},
		},
	}}

	got, err := New().Resolve(mustCatalog(t, siteCSS()), existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if v, _ := got[0].Header(assets.HeaderCacheControl); v != "no-store" {
		t.Errorf("existing endpoint replaced: %+v", got[0])
	}
	if got[1].Route != "site.abc123.css" {
		t.Errorf("got[1].Route = %q", got[1].Route)
	}
}

func TestResolveExistingMissingAsset(t *testing.T) {
	existing := []assets.Endpoint{{Route: "gone.js", AssetFile: "/w/gone.js"}}

	_, err := New().Resolve(mustCatalog(t, siteCSS()), existing)
	if !errors.HasCode(err, errors.CodeMissingAsset) {
		t.Fatalf("Resolve() error = %v, want %s", err, errors.CodeMissingAsset)
	}
	e, _ := errors.As(err)
	if v, _ := e.Get("route"); v != "gone.js" {
		t.Errorf("route meta = %q", v)
	}
	if v, _ := e.Get("asset"); v != "/w/gone.js" {
		t.Errorf("asset meta = %q", v)
	}
}

func TestResolveRouteConflict(t *testing.T) {
	a := &catalog.Asset{Identity: "/a/site.css", BasePath: "x", RelativePath: "css/site.css"}
	b := &catalog.Asset{Identity: "/b/site.css", BasePath: "x/css", RelativePath: "site.css"}

	_, err := New().Resolve(mustCatalog(t, a, b), nil)
	if !errors.HasCode(err, errors.CodeRouteConflict) {
		t.Fatalf("Resolve() error = %v, want %s", err, errors.CodeRouteConflict)
	}
}

func TestResolveDeterministic(t *testing.T) {
	build := func() string {
		c := mustCatalog(t,
			&catalog.Asset{Identity: "/w/b.js", RelativePath: "b#[.{fingerprint}]?.js", Fingerprint: "bbb", Integrity: "Yg=="},
			siteCSS(),
			&catalog.Asset{Identity: "/w/a.js", RelativePath: "a#[.{fingerprint}]?.js", Fingerprint: "aaa", Integrity: "YQ=="},
		)
		got, err := New().Resolve(c, nil)
		if err != nil {
			t.Fatal(err)
		}
		var routes []string
		for _, e := range got {
			routes = append(routes, e.Route)
		}
		return strings.Join(routes, ",")
	}

	first := build()
	want := "site.css,site.abc123.css,a.js,a.aaa.js,b.js,b.bbb.js"
	if first != want {
		t.Errorf("routes = %s, want %s", first, want)
	}
	for i := 0; i < 5; i++ {
		if got := build(); got != first {
			t.Fatalf("run %d routes = %s, want %s", i, got, first)
		}
	}
}

package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/fingerprint"
	"github.com/vango-dev/assetkit/internal/telemetry"
	"github.com/vango-dev/assetkit/pkg/assets"
)

var siteCSS = strings.Repeat("body { color: #333; margin: 0 auto; }\n", 20)

// newProject creates a project directory with a few static files.
func newProject(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"wwwroot/site.css":        siteCSS,
		"wwwroot/img/logo.png":    "\x89PNG fake",
		"wwwroot/styles/app.scss": "$c: red;",
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.New()
	cfg.SetDir(dir)
	cfg.Static.Exclude = []string{"**/*.scss"}
	return cfg
}

func mustBuild(t *testing.T, cfg *config.Config, opts Options) *Result {
	t.Helper()
	b, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return result
}

func routesOf(m *assets.Manifest) map[string][]assets.Endpoint {
	return m.Routes()
}

func TestNew(t *testing.T) {
	cfg := config.New()
	cfg.Build.Mode = config.ModePublish

	b, err := New(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if b.options.Mode != config.ModePublish {
		t.Errorf("Mode = %q, want publish from config", b.options.Mode)
	}
	if b.options.Concurrency < 1 {
		t.Errorf("Concurrency = %d", b.options.Concurrency)
	}

	b, err = New(cfg, Options{Mode: config.ModeBuild})
	if err != nil {
		t.Fatal(err)
	}
	if b.options.Mode != config.ModeBuild {
		t.Errorf("Mode = %q, want build from options", b.options.Mode)
	}
}

func TestNew_Invalid(t *testing.T) {
	cfg := config.New()
	if _, err := New(cfg, Options{Mode: "release"}); !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Errorf("New() error = %v, want %s", err, errors.CodeInvalidConfig)
	}

	cfg.Fingerprint.Patterns = []fingerprint.Pattern{{Glob: "[", Expression: "#[.{fingerprint}]?"}}
	if _, err := New(cfg, Options{}); !errors.HasCode(err, errors.CodeInvalidGlob) {
		t.Errorf("New() error = %v, want %s", err, errors.CodeInvalidGlob)
	}
}

func TestBuild_BuildMode(t *testing.T) {
	cfg := newProject(t)
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(reg))

	var steps []string
	result := mustBuild(t, cfg, Options{
		Metrics:    metrics,
		OnProgress: func(step string) { steps = append(steps, step) },
	})

	if result.Unchanged {
		t.Error("first build reported unchanged")
	}
	if result.Assets != 4 {
		t.Errorf("Assets = %d, want 4 (css, png, css.gz, css.br)", result.Assets)
	}
	if result.Compressed != 2 {
		t.Errorf("Compressed = %d, want 2", result.Compressed)
	}
	if len(steps) != 6 {
		t.Errorf("progress steps = %v", steps)
	}

	loaded, err := assets.Load(result.ManifestPath)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	if loaded.ManifestType != assets.ManifestBuild {
		t.Errorf("ManifestType = %q", loaded.ManifestType)
	}

	fp := fingerprint.ComputeFingerprint([]byte(siteCSS))
	routes := routesOf(loaded)
	for _, route := range []string{"site.css", "site." + fp.Token + ".css", "img/logo.png", "site.css.gz", "site.css.br"} {
		if _, ok := routes[route]; !ok {
			t.Errorf("route %q missing; have %v", route, keys(routes))
		}
	}
	for route := range routes {
		if strings.HasSuffix(route, ".scss") {
			t.Errorf("excluded file routed: %s", route)
		}
	}

	site := routes["site.css"]
	if len(site) != 3 {
		t.Fatalf("site.css endpoints = %d, want plain + gzip + br", len(site))
	}
	defaults := 0
	for _, e := range site {
		if e.IsDefault() {
			defaults++
			if e.AssetFile != filepath.Join(cfg.StaticPath(), "site.css") {
				t.Errorf("default AssetFile = %q", e.AssetFile)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("site.css has %d default endpoints", defaults)
	}

	hashed := routes["site."+fp.Token+".css"][0]
	if v, _ := hashed.Property(assets.PropertyIntegrity); v != fp.SRI() {
		t.Errorf("integrity = %q, want %q", v, fp.SRI())
	}

	if got := testutil.ToFloat64(metrics.BuildsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("builds_total{ok} = %v", got)
	}
	if got := testutil.ToFloat64(metrics.Endpoints); got != float64(loaded.Len()) {
		t.Errorf("endpoints gauge = %v, want %d", got, loaded.Len())
	}
}

func TestBuild_StampSkipsUnchanged(t *testing.T) {
	cfg := newProject(t)

	first := mustBuild(t, cfg, Options{})
	second := mustBuild(t, cfg, Options{})
	if !second.Unchanged {
		t.Error("second build should be unchanged")
	}
	if first.Stamp != second.Stamp {
		t.Errorf("stamps differ: %s vs %s", first.Stamp, second.Stamp)
	}

	forced := mustBuild(t, cfg, Options{Force: true})
	if forced.Unchanged {
		t.Error("forced build reported unchanged")
	}

	if err := os.WriteFile(filepath.Join(cfg.StaticPath(), "new.js"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	third := mustBuild(t, cfg, Options{})
	if third.Unchanged || third.Stamp == first.Stamp {
		t.Error("adding a file did not change the manifest")
	}
}

func TestBuild_PublishMode(t *testing.T) {
	cfg := newProject(t)
	cfg.Build.Mode = config.ModePublish

	result := mustBuild(t, cfg, Options{})
	if result.Manifest.ManifestType != assets.ManifestPublish {
		t.Errorf("ManifestType = %q", result.Manifest.ManifestType)
	}

	for _, rel := range []string{"public/site.css", "public/site.css.gz", "public/site.css.br", "public/img/logo.png"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputPath(), filepath.FromSlash(rel))); err != nil {
			t.Errorf("%s not copied: %v", rel, err)
		}
	}

	for _, e := range result.Manifest.Endpoints {
		if filepath.IsAbs(e.AssetFile) || !strings.HasPrefix(e.AssetFile, "public/") {
			t.Errorf("%s AssetFile = %q, want relative to output", e.Route, e.AssetFile)
		}
	}

	data, err := os.ReadFile(filepath.Join(result.Public, "site.css"))
	if err != nil || string(data) != siteCSS {
		t.Errorf("public/site.css content mismatch: %v", err)
	}
}

func TestBuild_PublishRestoresPublicDir(t *testing.T) {
	cfg := newProject(t)
	cfg.Build.Mode = config.ModePublish

	first := mustBuild(t, cfg, Options{})
	if again := mustBuild(t, cfg, Options{}); !again.Unchanged {
		t.Error("rebuild with intact public dir should be unchanged")
	}

	if err := os.RemoveAll(first.Public); err != nil {
		t.Fatal(err)
	}
	restored := mustBuild(t, cfg, Options{})
	if restored.Unchanged {
		t.Error("rebuild after removing public dir reported unchanged")
	}
	if _, err := os.Stat(filepath.Join(first.Public, "site.css")); err != nil {
		t.Errorf("public/site.css not restored: %v", err)
	}

	edited := filepath.Join(first.Public, "site.css")
	if err := os.WriteFile(edited, []byte("body{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if result := mustBuild(t, cfg, Options{}); result.Unchanged {
		t.Error("rebuild after editing public/site.css reported unchanged")
	}
	data, err := os.ReadFile(edited)
	if err != nil || string(data) != siteCSS {
		t.Errorf("public/site.css not rewritten: %v", err)
	}
}

func TestBuild_FingerprintDisabled(t *testing.T) {
	cfg := newProject(t)
	cfg.Fingerprint.Enabled = false
	cfg.Compression.Enabled = false

	result := mustBuild(t, cfg, Options{})
	if result.Manifest.Len() != 2 {
		t.Fatalf("endpoints = %d, want 2", result.Manifest.Len())
	}
	for _, e := range result.Manifest.Endpoints {
		if v, _ := e.Header(assets.HeaderCacheControl); v != "no-cache" {
			t.Errorf("%s Cache-Control = %q", e.Route, v)
		}
	}
}

func TestBuild_PredefinedEndpoints(t *testing.T) {
	cfg := newProject(t)
	cfg.Compression.Enabled = false

	aliases := assets.NewManifest(assets.ManifestBuild, []assets.Endpoint{{
		Route:           "favicon.ico",
		AssetFile:       "img/logo.png",
		ResponseHeaders: []assets.ResponseHeader{{Name: "Cache-Control", Value: "max-age=3600"}},
	}})
	aliasPath := filepath.Join(cfg.Dir(), "aliases.json")
	if err := aliases.Write(aliasPath); err != nil {
		t.Fatal(err)
	}
	cfg.Manifests = []string{"aliases.json"}

	result := mustBuild(t, cfg, Options{})
	favicon := result.Manifest.Routes()["favicon.ico"]
	if len(favicon) != 1 {
		t.Fatalf("favicon.ico endpoints = %d", len(favicon))
	}
	if favicon[0].AssetFile != filepath.Join(cfg.StaticPath(), "img", "logo.png") {
		t.Errorf("favicon AssetFile = %q", favicon[0].AssetFile)
	}
}

func TestBuild_PredefinedMissingAssetWritesNothing(t *testing.T) {
	cfg := newProject(t)

	bad := assets.NewManifest(assets.ManifestBuild, []assets.Endpoint{{Route: "gone.js", AssetFile: "gone.js"}})
	if err := bad.Write(filepath.Join(cfg.Dir(), "bad.json")); err != nil {
		t.Fatal(err)
	}
	cfg.Manifests = []string{"bad.json"}

	b, err := New(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Build(context.Background())
	if !errors.HasCode(err, errors.CodeMissingAsset) {
		t.Fatalf("Build() error = %v, want %s", err, errors.CodeMissingAsset)
	}
	if _, err := os.Stat(cfg.ManifestPath()); !os.IsNotExist(err) {
		t.Error("manifest written despite failure")
	}
}

func TestBuild_MissingStaticDir(t *testing.T) {
	cfg := config.New()
	cfg.SetDir(t.TempDir())

	b, err := New(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(context.Background()); !errors.HasCode(err, errors.CodeStaticDirNotFound) {
		t.Errorf("Build() error = %v, want %s", err, errors.CodeStaticDirNotFound)
	}
}

func TestBuild_DryRun(t *testing.T) {
	cfg := newProject(t)

	result := mustBuild(t, cfg, Options{DryRun: true})
	if result.Manifest.Len() == 0 {
		t.Error("dry run produced no endpoints")
	}
	if _, err := os.Stat(cfg.ManifestPath()); !os.IsNotExist(err) {
		t.Error("dry run wrote the manifest")
	}
}

func TestBuild_Canceled(t *testing.T) {
	cfg := newProject(t)
	b, err := New(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Build(ctx); err == nil {
		t.Error("Build() with canceled context should fail")
	}
}

func TestDiscover_Include(t *testing.T) {
	cfg := newProject(t)
	cfg.Static.Include = []string{"**/*.css"}

	b, err := New(cfg, Options{})
	if err != nil {
		t.Fatal(err)
	}
	found, err := b.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].OriginalItemSpec != "site.css" {
		t.Fatalf("Discover() = %+v", found)
	}
	if found[0].RelativePath != "site#[.{fingerprint}]?.css" {
		t.Errorf("RelativePath = %q", found[0].RelativePath)
	}
	if found[0].FileLength != int64(len(siteCSS)) {
		t.Errorf("FileLength = %d", found[0].FileLength)
	}
}

func TestClean(t *testing.T) {
	cfg := newProject(t)
	mustBuild(t, cfg, Options{})

	b, _ := New(cfg, Options{})
	if err := b.Clean(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.OutputPath()); !os.IsNotExist(err) {
		t.Error("output directory still exists")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "dst.txt")

	if err := os.WriteFile(src, []byte("test content"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile error: %v", err)
	}

	content, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "test content" {
		t.Errorf("Content = %q, want %q", content, "test content")
	}
	srcInfo, _ := os.Stat(src)
	dstInfo, _ := os.Stat(dst)
	if !dstInfo.ModTime().Equal(srcInfo.ModTime()) {
		t.Errorf("ModTime = %v, want %v", dstInfo.ModTime(), srcInfo.ModTime())
	}

	if err := copyFile(filepath.Join(dir, "missing"), dst); err == nil {
		t.Error("copyFile should fail for a missing source")
	}
}

func keys(m map[string][]assets.Endpoint) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

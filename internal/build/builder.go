package build

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/assetkit/internal/catalog"
	"github.com/vango-dev/assetkit/internal/compression"
	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/contenttype"
	"github.com/vango-dev/assetkit/internal/endpoints"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/fingerprint"
	"github.com/vango-dev/assetkit/internal/telemetry"
	"github.com/vango-dev/assetkit/pkg/assets"
	"github.com/vango-dev/assetkit/pkg/pathpattern"
)

// Directories inside the output directory.
const (
	PublicDir     = "public"
	CompressedDir = "compressed"
)

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Manifest is the endpoint manifest.
	Manifest *assets.Manifest

	// ManifestPath is where the manifest was written.
	ManifestPath string

	// Public is the directory files were copied to in publish mode.
	Public string

	// Assets is the number of assets in the filtered catalog.
	Assets int

	// Compressed is the number of compressed variants produced.
	Compressed int

	// Stamp is the BLAKE3 digest of the manifest.
	Stamp string

	// Unchanged is true when the manifest matched the previous stamp and
	// nothing was written.
	Unchanged bool
}

// Options configures the builder.
type Options struct {
	// Mode overrides build.mode from the config ("build" or "publish").
	Mode string

	// Force writes the manifest even when the stamp is unchanged.
	Force bool

	// DryRun computes the manifest without writing anything except
	// compressed variants.
	DryRun bool

	// Concurrency bounds parallel hashing and compression.
	// Default: GOMAXPROCS.
	Concurrency int

	// Logger receives build logs. Default: slog.Default().
	Logger *slog.Logger

	// Metrics records build metrics. Default: an unexported registry.
	Metrics *telemetry.Metrics

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder produces endpoint manifests.
type Builder struct {
	config       *config.Config
	options      Options
	fingerprints *fingerprint.Computer
	contentTypes *contenttype.Provider
	logger       *slog.Logger
	metrics      *telemetry.Metrics
}

// New creates a new builder.
func New(cfg *config.Config, options Options) (*Builder, error) {
	if options.Mode == "" {
		options.Mode = cfg.Build.Mode
	}
	if options.Concurrency <= 0 {
		options.Concurrency = runtime.GOMAXPROCS(0)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Metrics == nil {
		options.Metrics = telemetry.Discard()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if options.Mode != config.ModeBuild && options.Mode != config.ModePublish {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("mode must be \"build\" or \"publish\"").
			WithMeta("mode", options.Mode)
	}

	fp, err := fingerprint.New(cfg.Fingerprint.Patterns)
	if err != nil {
		return nil, err
	}
	ct, err := contenttype.New(cfg.ContentTypes)
	if err != nil {
		return nil, err
	}

	return &Builder{
		config:       cfg,
		options:      options,
		fingerprints: fp,
		contentTypes: ct,
		logger:       options.Logger,
		metrics:      options.Metrics,
	}, nil
}

// Build runs the pipeline and writes the manifest. On error nothing is
// written.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "assetkit.build",
		attribute.String("mode", b.options.Mode),
		attribute.String("static_dir", b.config.StaticPath()))

	result, err := b.build(ctx)
	telemetry.EndSpan(span, err)

	switch {
	case err != nil:
		b.metrics.BuildsTotal.WithLabelValues("error").Inc()
		return nil, errors.FromError(err, errors.CodeBuildFailed)
	case result.Unchanged:
		b.metrics.BuildsTotal.WithLabelValues("unchanged").Inc()
	default:
		b.metrics.BuildsTotal.WithLabelValues("ok").Inc()
	}

	result.Duration = time.Since(start)
	b.logger.Info("build complete",
		"mode", b.options.Mode,
		"assets", result.Assets,
		"endpoints", result.Manifest.Len(),
		"unchanged", result.Unchanged,
		"duration", result.Duration)
	return result, nil
}

func (b *Builder) build(ctx context.Context) (*Result, error) {
	result := &Result{ManifestPath: b.config.ManifestPath()}

	var discovered []*catalog.Asset
	err := b.stage(ctx, "discover", "Discovering assets...", func(ctx context.Context) error {
		var err error
		discovered, err = b.Discover(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = b.stage(ctx, "hash", "Fingerprinting assets...", func(ctx context.Context) error {
		return b.hash(ctx, discovered)
	})
	if err != nil {
		return nil, err
	}

	var alternatives []*catalog.Asset
	if b.config.Compression.Enabled {
		err = b.stage(ctx, "compress", "Compressing assets...", func(ctx context.Context) error {
			var err error
			alternatives, err = b.compress(ctx, discovered)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	result.Compressed = len(alternatives)

	var cat *catalog.Catalog
	err = b.stage(ctx, "catalog", "Validating catalog...", func(ctx context.Context) error {
		all, err := catalog.New(append(discovered, alternatives...)...)
		if err != nil {
			return err
		}
		if err := all.Validate(); err != nil {
			return err
		}
		cat = all.ForKind(b.kind())
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Assets = cat.Len()
	b.metrics.Assets.Set(float64(cat.Len()))

	var eps []assets.Endpoint
	err = b.stage(ctx, "resolve", "Resolving endpoints...", func(ctx context.Context) error {
		existing, err := b.predefined()
		if err != nil {
			return err
		}
		resolver := endpoints.New(
			endpoints.WithContentTypes(b.contentTypes),
			endpoints.WithLogger(b.logger),
		)
		eps, err = resolver.Resolve(cat, existing)
		if err != nil {
			return err
		}
		eps, err = compression.NewNegotiator(compression.WithNegotiatorLogger(b.logger)).Apply(cat, eps)
		return err
	})
	if err != nil {
		return nil, err
	}

	var copies map[string]string
	if b.options.Mode == config.ModePublish {
		result.Public = filepath.Join(b.config.OutputPath(), PublicDir)
		copies, err = b.relocate(cat, eps)
		if err != nil {
			return nil, err
		}
	}

	manifestType := assets.ManifestBuild
	if b.options.Mode == config.ModePublish {
		manifestType = assets.ManifestPublish
	}
	result.Manifest = assets.NewManifest(manifestType, eps)
	b.metrics.Endpoints.Set(float64(len(eps)))

	result.Stamp, err = result.Manifest.Hash()
	if err != nil {
		return nil, errors.New(errors.CodeManifestWriteFailed).Wrap(err)
	}
	if b.options.DryRun {
		return result, nil
	}
	if !b.options.Force && b.stampMatches(result.Stamp) && b.publicIntact(copies) {
		result.Unchanged = true
		return result, nil
	}

	err = b.stage(ctx, "write", "Writing manifest...", func(ctx context.Context) error {
		if copies != nil {
			if err := b.copyPublic(ctx, result.Public, copies); err != nil {
				return err
			}
		}
		if err := result.Manifest.Write(result.ManifestPath); err != nil {
			return err
		}
		return os.WriteFile(b.stampPath(), []byte(result.Stamp+"\n"), 0644)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Discover walks the static directory and returns one asset per file.
func (b *Builder) Discover(ctx context.Context) ([]*catalog.Asset, error) {
	root := b.config.StaticPath()
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.New(errors.CodeStaticDirNotFound).
			WithMeta("dir", root).
			WithSuggestion("Set static.dir in assetkit.json to the directory holding your assets")
	}

	var out []*catalog.Asset
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !b.included(rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		a, err := b.newAsset(root, p, rel, fi)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, errors.FromError(err, errors.CodeBuildFailed)
	}

	b.logger.Debug("discovered assets", "count", len(out), "dir", root)
	return out, nil
}

func (b *Builder) newAsset(root, file, rel string, fi fs.FileInfo) (*catalog.Asset, error) {
	relativePath := rel
	if b.config.Fingerprint.Enabled {
		var err error
		relativePath, err = b.fingerprints.AppendFingerprintPattern(rel, file)
		if err != nil {
			return nil, err
		}
	}

	sourceID := b.config.Name
	if sourceID == "" {
		sourceID = filepath.Base(b.config.Dir())
	}

	return &catalog.Asset{
		Identity:               file,
		SourceID:               sourceID,
		SourceType:             "Discovered",
		ContentRoot:            root,
		BasePath:               b.config.Static.BasePath,
		RelativePath:           relativePath,
		AssetMode:              catalog.ModeCurrentProject,
		AssetRole:              catalog.RolePrimary,
		CopyToOutputDirectory:  catalog.CopyPreserveNewest,
		CopyToPublishDirectory: catalog.CopyPreserveNewest,
		FileLength:             fi.Size(),
		LastWriteTime:          fi.ModTime().UTC().Truncate(time.Second),
		OriginalItemSpec:       rel,
	}, nil
}

// included applies static.include and static.exclude to a slash path.
func (b *Builder) included(rel string) bool {
	if len(b.config.Static.Include) > 0 && !matchAny(b.config.Static.Include, rel) {
		return false
	}
	return !matchAny(b.config.Static.Exclude, rel)
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// hash fingerprints assets in parallel.
func (b *Builder) hash(ctx context.Context, list []*catalog.Asset) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.Concurrency)

	for _, a := range list {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := os.Open(a.Identity)
			if err != nil {
				return errors.New(errors.CodeBuildFailed).WithMeta("asset", a.Identity).Wrap(err)
			}
			defer f.Close()

			sum, err := fingerprint.ComputeReader(f)
			if err != nil {
				return errors.New(errors.CodeBuildFailed).WithMeta("asset", a.Identity).Wrap(err)
			}
			a.Fingerprint = sum.Token
			a.Integrity = sum.Integrity
			return nil
		})
	}
	return g.Wait()
}

// compress writes compressed variants in parallel. The result is ordered by
// identity regardless of completion order.
func (b *Builder) compress(ctx context.Context, list []*catalog.Asset) ([]*catalog.Asset, error) {
	c, err := compression.NewCompressor(compression.Options{
		Formats:   b.config.Compression.Formats,
		Include:   b.config.Compression.Include,
		MinSize:   b.config.Compression.MinSize,
		OutputDir: filepath.Join(b.config.OutputPath(), CompressedDir),
	})
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var out []*catalog.Asset

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.Concurrency)
	for _, a := range list {
		g.Go(func() error {
			alts, err := c.Compress(ctx, a)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, alt := range alts {
				b.metrics.CompressedBytes.WithLabelValues(alt.AssetTraitValue).Add(float64(alt.FileLength))
				out = append(out, alt)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByIdentity(out)
	return out, nil
}

// predefined loads the configured endpoint manifests. Relative asset files
// are resolved against the static directory.
func (b *Builder) predefined() ([]assets.Endpoint, error) {
	var out []assets.Endpoint
	for _, p := range b.config.ManifestPaths() {
		m, err := assets.Load(p)
		if err != nil {
			return nil, err
		}
		for _, e := range m.Endpoints {
			if !filepath.IsAbs(e.AssetFile) {
				e.AssetFile = filepath.Join(b.config.StaticPath(), filepath.FromSlash(e.AssetFile))
			}
			out = append(out, e)
		}
	}
	return out, nil
}

func (b *Builder) kind() catalog.Kind {
	if b.options.Mode == config.ModePublish {
		return catalog.KindPublish
	}
	return catalog.KindBuild
}

// relocate points every endpoint at the asset's canonical location under
// the public directory and returns the copies to perform, keyed by
// destination.
func (b *Builder) relocate(cat *catalog.Catalog, eps []assets.Endpoint) (map[string]string, error) {
	copies := make(map[string]string)
	targets := make(map[string]string)

	for _, a := range cat.Sorted() {
		pattern, err := pathpattern.Parse(a.RelativePath, a.Identity)
		if err != nil {
			return nil, err
		}
		canonical, err := pattern.CanonicalPath(a, nil)
		if err != nil {
			return nil, err
		}
		rel := path.Join(PublicDir, catalog.JoinRoute(a.BasePath, canonical))
		if other, ok := copies[rel]; ok {
			return nil, errors.New(errors.CodeRouteConflict).
				WithDetail("two assets publish to the same file").
				WithMeta("path", rel).
				WithMeta("assets", other+", "+a.Identity)
		}
		copies[rel] = a.Identity
		targets[a.Identity] = rel
	}

	for i := range eps {
		if rel, ok := targets[eps[i].AssetFile]; ok {
			eps[i].AssetFile = rel
		}
	}
	return copies, nil
}

// copyPublic recreates the public directory from copies.
func (b *Builder) copyPublic(ctx context.Context, publicDir string, copies map[string]string) error {
	if err := os.RemoveAll(publicDir); err != nil {
		return errors.New(errors.CodeBuildFailed).Wrap(err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.Concurrency)
	for rel, src := range copies {
		dst := filepath.Join(b.config.OutputPath(), filepath.FromSlash(rel))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := copyFile(src, dst); err != nil {
				return errors.New(errors.CodeBuildFailed).
					WithMeta("from", src).
					WithMeta("to", dst).
					Wrap(err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *Builder) stampPath() string {
	return b.config.ManifestPath() + ".blake3"
}

// stampMatches reports whether the previous build wrote the same manifest.
func (b *Builder) stampMatches(stamp string) bool {
	data, err := os.ReadFile(b.stampPath())
	if err != nil {
		return false
	}
	if _, err := os.Stat(b.config.ManifestPath()); err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == stamp
}

// publicIntact reports whether every planned copy exists under the output
// directory with the size and modification time of its source.
func (b *Builder) publicIntact(copies map[string]string) bool {
	for rel, src := range copies {
		want, err := os.Stat(src)
		if err != nil {
			return false
		}
		got, err := os.Stat(filepath.Join(b.config.OutputPath(), filepath.FromSlash(rel)))
		if err != nil {
			return false
		}
		if got.Size() != want.Size() || !got.ModTime().Equal(want.ModTime()) {
			b.logger.Debug("public copy is stale", "path", rel)
			return false
		}
	}
	return true
}

// stage runs fn inside a span and records its duration.
func (b *Builder) stage(ctx context.Context, name, step string, fn func(context.Context) error) error {
	b.progress(step)
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "assetkit.build."+name, attribute.String("stage", name))
	err := fn(ctx)
	telemetry.EndSpan(span, err)

	elapsed := time.Since(start)
	b.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	b.logger.Debug("stage finished", "stage", name, "duration", elapsed, "error", err)
	return err
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// copyFile copies a file, creating parent directories. The copy keeps the
// source modification time.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}

func sortByIdentity(list []*catalog.Asset) {
	slices.SortFunc(list, func(a, b *catalog.Asset) int {
		return strings.Compare(a.Identity, b.Identity)
	})
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.OutputPath())
}

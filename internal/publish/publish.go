// Package publish uploads a built manifest and its files to object storage.
//
// Every selector-less endpoint becomes one object keyed by prefix + route,
// with Content-Type, Cache-Control and Content-Encoding copied from the
// endpoint's response headers. The manifest is uploaded last so readers
// never see routes whose files are missing.
package publish

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/telemetry"
	"github.com/vango-dev/assetkit/pkg/assets"
)

// DefaultConcurrency is the number of parallel uploads.
const DefaultConcurrency = 8

// Options configures a Publisher.
type Options struct {
	// Prefix is prepended to every object key.
	Prefix string

	// Root resolves relative asset files, normally the manifest directory.
	Root string

	// ManifestName is the key (under Prefix) of the uploaded manifest.
	// Empty skips the manifest upload.
	ManifestName string

	// Concurrency limits parallel uploads.
	Concurrency int

	// DryRun lists the objects without uploading.
	DryRun bool

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Result describes a publish run.
type Result struct {
	// Keys are the object keys, files first and the manifest last.
	Keys     []string
	Bytes    int64
	Duration time.Duration
}

// Publisher uploads manifests.
type Publisher struct {
	store ObjectStore
	opts  Options
}

// New creates a Publisher writing to store.
func New(store ObjectStore, opts Options) *Publisher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.Discard()
	}
	return &Publisher{store: store, opts: opts}
}

// Object is one planned upload.
type Object struct {
	Key  string
	File string
	Meta ObjectMeta
}

// Plan returns the objects Publish would upload for m, sorted by key.
// The manifest itself is not included.
func (p *Publisher) Plan(m *assets.Manifest) []Object {
	routes := m.Routes()
	out := make([]Object, 0, len(routes))
	for route, eps := range routes {
		for _, e := range eps {
			if !e.IsDefault() {
				continue
			}
			meta := ObjectMeta{}
			meta.ContentType, _ = e.Header(assets.HeaderContentType)
			meta.CacheControl, _ = e.Header(assets.HeaderCacheControl)
			meta.ContentEncoding, _ = e.Header(assets.HeaderContentEncoding)
			out = append(out, Object{
				Key:  p.key(route),
				File: p.resolve(e.AssetFile),
				Meta: meta,
			})
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Publish uploads the files of m, then m itself. It fails before uploading
// anything when an asset route maps to the manifest key.
func (p *Publisher) Publish(ctx context.Context, m *assets.Manifest) (result *Result, err error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "publish",
		attribute.Int("endpoints", m.Len()),
		attribute.String("prefix", p.opts.Prefix),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	plan := p.Plan(m)
	result = &Result{}
	for _, o := range plan {
		result.Keys = append(result.Keys, o.Key)
	}

	var manifest []byte
	if p.opts.ManifestName != "" {
		manifest, err = m.Marshal()
		if err != nil {
			return nil, errors.New(errors.CodePublishFailed).Wrap(err)
		}
		key := p.key(p.opts.ManifestName)
		for _, o := range plan {
			if o.Key == key {
				return nil, errors.New(errors.CodePublishFailed).
					WithDetail("an asset route uses the manifest key").
					WithMeta("key", key).
					WithMeta("asset", o.File).
					WithSuggestion("Choose another manifest name or move the asset")
			}
		}
		result.Keys = append(result.Keys, key)
	}

	if p.opts.DryRun {
		result.Duration = time.Since(start)
		return result, nil
	}

	sizes := make([]int64, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, o := range plan {
		g.Go(func() error {
			n, err := p.upload(gctx, o)
			if err != nil {
				p.opts.Metrics.PublishedObjects.WithLabelValues("error").Inc()
				return errors.New(errors.CodePublishFailed).WithMeta("key", o.Key).Wrap(err)
			}
			p.opts.Metrics.PublishedObjects.WithLabelValues("ok").Inc()
			p.opts.Logger.Debug("object uploaded", "key", o.Key, "bytes", n)
			sizes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, n := range sizes {
		result.Bytes += n
	}

	if manifest != nil {
		key := p.key(p.opts.ManifestName)
		meta := ObjectMeta{ContentType: "application/json", CacheControl: "no-cache"}
		if err := p.store.Put(ctx, key, bytes.NewReader(manifest), int64(len(manifest)), meta); err != nil {
			p.opts.Metrics.PublishedObjects.WithLabelValues("error").Inc()
			return nil, errors.New(errors.CodePublishFailed).WithMeta("key", key).Wrap(err)
		}
		p.opts.Metrics.PublishedObjects.WithLabelValues("ok").Inc()
		result.Bytes += int64(len(manifest))
	}

	result.Duration = time.Since(start)
	p.opts.Logger.Info("publish complete",
		"objects", len(result.Keys),
		"bytes", result.Bytes,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Publisher) upload(ctx context.Context, o Object) (int64, error) {
	f, err := os.Open(o.File)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := p.store.Put(ctx, o.Key, f, info.Size(), o.Meta); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (p *Publisher) key(route string) string {
	return strings.TrimPrefix(path.Join(p.opts.Prefix, route), "/")
}

func (p *Publisher) resolve(assetFile string) string {
	f := filepath.FromSlash(assetFile)
	if filepath.IsAbs(f) || p.opts.Root == "" {
		return f
	}
	return filepath.Join(p.opts.Root, f)
}

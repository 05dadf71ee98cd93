package compression

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
	"github.com/vango-dev/assetkit/internal/catalog"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/fingerprint"
)

// Supported encodings.
const (
	Gzip   = "gzip"
	Brotli = "br"
)

var extensions = map[string]string{
	Gzip:   ".gz",
	Brotli: ".br",
}

// DefaultMinSize is the smallest file worth compressing.
const DefaultMinSize = 256

// precompressed lists extensions that do not shrink further.
var precompressed = []string{
	".gz", ".br", ".zip", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif",
	".woff", ".woff2", ".mp3", ".mp4", ".webm", ".ogg", ".pdf",
}

// Options configures a Compressor.
type Options struct {
	// Formats lists encodings to produce, in order. Defaults to gzip and br.
	Formats []string

	// Include restricts compression to relative paths matching any glob.
	// Empty means every file.
	Include []string

	// MinSize skips files smaller than this many bytes.
	MinSize int64

	// OutputDir receives the compressed files, mirroring the content root.
	OutputDir string
}

// Compressor writes compressed variants of primary assets.
type Compressor struct {
	opts Options
}

// NewCompressor validates options and creates a Compressor.
func NewCompressor(opts Options) (*Compressor, error) {
	if len(opts.Formats) == 0 {
		opts.Formats = []string{Gzip, Brotli}
	}
	for _, f := range opts.Formats {
		if _, ok := extensions[f]; !ok {
			return nil, errors.New(errors.CodeInvalidConfig).
				WithDetail("unsupported compression format").
				WithMeta("format", f).
				WithSuggestion("Use \"gzip\" or \"br\"")
		}
	}
	for _, g := range opts.Include {
		if !doublestar.ValidatePattern(g) {
			return nil, errors.New(errors.CodeInvalidGlob).WithMeta("pattern", g)
		}
	}
	if opts.MinSize == 0 {
		opts.MinSize = DefaultMinSize
	}
	if opts.OutputDir == "" {
		return nil, errors.New(errors.CodeInvalidConfig).WithDetail("compression output directory is empty")
	}
	return &Compressor{opts: opts}, nil
}

// Eligible reports whether a primary asset should get compressed variants.
func (c *Compressor) Eligible(a *catalog.Asset) bool {
	if a.IsAlternative() || a.FileLength < c.opts.MinSize {
		return false
	}
	if slices.Contains(precompressed, strings.ToLower(filepath.Ext(a.Identity))) {
		return false
	}
	if len(c.opts.Include) == 0 {
		return true
	}
	rel := sourcePath(a)
	for _, g := range c.opts.Include {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

// Compress writes one variant per format for primary and returns them as
// Alternative assets related to it. Ineligible assets yield nothing. Each
// variant file gets the modification time of primary.
func (c *Compressor) Compress(ctx context.Context, primary *catalog.Asset) ([]*catalog.Asset, error) {
	if !c.Eligible(primary) {
		return nil, nil
	}

	data, err := os.ReadFile(primary.Identity)
	if err != nil {
		return nil, errors.New(errors.CodeBuildFailed).WithMeta("asset", primary.Identity).Wrap(err)
	}
	info, err := os.Stat(primary.Identity)
	if err != nil {
		return nil, errors.New(errors.CodeBuildFailed).WithMeta("asset", primary.Identity).Wrap(err)
	}

	var out []*catalog.Asset
	for _, format := range c.opts.Formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		compressed, err := encode(format, data)
		if err != nil {
			return nil, errors.New(errors.CodeBuildFailed).
				WithMeta("asset", primary.Identity).
				WithMeta("format", format).
				Wrap(err)
		}

		ext := extensions[format]
		target := filepath.Join(c.opts.OutputDir, filepath.FromSlash(sourcePath(primary))+ext)
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return nil, errors.New(errors.CodeBuildFailed).WithMeta("path", target).Wrap(err)
		}
		if err := os.WriteFile(target, compressed, 0644); err != nil {
			return nil, errors.New(errors.CodeBuildFailed).WithMeta("path", target).Wrap(err)
		}
		if err := os.Chtimes(target, info.ModTime(), info.ModTime()); err != nil {
			return nil, errors.New(errors.CodeBuildFailed).WithMeta("path", target).Wrap(err)
		}

		sum := fingerprint.ComputeFingerprint(compressed)
		out = append(out, &catalog.Asset{
			Identity:               target,
			SourceID:               primary.SourceID,
			SourceType:             primary.SourceType,
			ContentRoot:            c.opts.OutputDir,
			BasePath:               primary.BasePath,
			RelativePath:           primary.RelativePath + ext,
			AssetKind:              primary.AssetKind,
			AssetMode:              primary.AssetMode,
			AssetRole:              catalog.RoleAlternative,
			RelatedAsset:           primary.Identity,
			AssetTraitName:         catalog.TraitContentEncoding,
			AssetTraitValue:        format,
			Fingerprint:            sum.Token,
			Integrity:              sum.Integrity,
			CopyToOutputDirectory:  primary.CopyToOutputDirectory,
			CopyToPublishDirectory: primary.CopyToPublishDirectory,
			FileLength:             int64(len(compressed)),
			LastWriteTime:          primary.LastWriteTime,
			OriginalItemSpec:       primary.OriginalItemSpec,
		})
	}
	return out, nil
}

// sourcePath is the asset path relative to its content root.
func sourcePath(a *catalog.Asset) string {
	if a.ContentRoot != "" {
		if rel, err := filepath.Rel(a.ContentRoot, a.Identity); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(a.Identity)
}

func encode(format string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch format {
	case Gzip:
		gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		w = gw
	case Brotli:
		w = brotli.NewWriterLevel(&buf, brotli.BestCompression)
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}


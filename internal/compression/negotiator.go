// Package compression produces compressed asset variants and annotates the
// endpoint set so servers can negotiate Accept-Encoding.
package compression

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vango-dev/assetkit/internal/catalog"
	"github.com/vango-dev/assetkit/internal/endpoints"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/pkg/assets"
)

// Negotiator adds a Content-Encoding selector endpoint for every compressed
// alternative at every route of its primary.
type Negotiator struct {
	length endpoints.LengthResolver
	logger *slog.Logger
}

// NegotiatorOption configures a Negotiator.
type NegotiatorOption func(*Negotiator)

// WithLength replaces the compressed length lookup.
func WithLength(fn endpoints.LengthResolver) NegotiatorOption {
	return func(n *Negotiator) {
		n.length = fn
	}
}

// WithNegotiatorLogger sets the logger.
func WithNegotiatorLogger(l *slog.Logger) NegotiatorOption {
	return func(n *Negotiator) {
		n.logger = l
	}
}

// NewNegotiator creates a Negotiator.
func NewNegotiator(opts ...NegotiatorOption) *Negotiator {
	n := &Negotiator{
		length: endpoints.FileLength,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Quality ranks a compressed variant by size: 1/length with six decimals.
// Smaller files score higher. An empty file scores 1.
func Quality(length int64) string {
	if length <= 0 {
		return "1.000000"
	}
	return fmt.Sprintf("%.6f", 1/float64(length))
}

// Apply returns eps extended with negotiated endpoints.
//
// For a compressed alternative A of primary P, every selector-less endpoint
// backed by P yields an endpoint at the same route backed by A, carrying a
// Content-Encoding selector. Its headers are P's with Content-Length and
// ETag describing A, followed by Content-Encoding and Vary. P's endpoints are
// left as they are and remain the fallback. Endpoints routed directly to A
// gain a Content-Encoding header.
func (n *Negotiator) Apply(cat *catalog.Catalog, eps []assets.Endpoint) ([]assets.Endpoint, error) {
	out := make([]assets.Endpoint, len(eps))
	copy(out, eps)

	seen := make(map[string]bool, len(out))
	byFile := make(map[string][]int)
	for i := range out {
		seen[out[i].Key()] = true
		byFile[out[i].AssetFile] = append(byFile[out[i].AssetFile], i)
	}

	for _, alt := range cat.Sorted() {
		if !alt.IsCompressed() {
			continue
		}
		primary, ok := cat.Related(alt)
		if !ok {
			return nil, errors.New(errors.CodeMissingAsset).
				WithDetail("compressed asset refers to an asset that is not in the catalog").
				WithMeta("asset", alt.Identity).
				WithMeta("related", alt.RelatedAsset)
		}

		length, err := n.length(alt)
		if err != nil {
			return nil, errors.New(errors.CodeMissingAsset).WithMeta("asset", alt.Identity).Wrap(err)
		}
		encoding := alt.AssetTraitValue
		quality := Quality(length)

		for _, i := range byFile[alt.Identity] {
			e := &out[i]
			if !e.IsDefault() {
				continue
			}
			if _, ok := e.Header(assets.HeaderContentEncoding); !ok {
				e.AddHeader(assets.HeaderContentEncoding, encoding)
			}
		}

		for _, i := range byFile[primary.Identity] {
			base := out[i]
			if !base.IsDefault() {
				continue
			}

			e := base.Clone()
			e.AssetFile = alt.Identity
			e.Selectors = []assets.Selector{{
				Name:    catalog.TraitContentEncoding,
				Value:   encoding,
				Quality: quality,
			}}
			e.SetHeader(assets.HeaderContentLength, strconv.FormatInt(length, 10))
			if alt.Integrity != "" {
				e.SetHeader(assets.HeaderETag, `"`+alt.Integrity+`"`)
			}
			e.AddHeader(assets.HeaderContentEncoding, encoding)
			e.AddHeader(assets.HeaderVary, assets.HeaderContentEncoding)

			if seen[e.Key()] {
				continue
			}
			seen[e.Key()] = true
			out = append(out, e)

			n.logger.Debug("negotiated endpoint",
				"route", e.Route,
				"encoding", encoding,
				"quality", quality)
		}
	}
	return out, nil
}

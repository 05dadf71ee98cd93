// Package contenttype maps asset paths to MIME types.
package contenttype

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vango-dev/assetkit/internal/errors"
)

// Mapping associates a glob with a content type. Globs without a slash are
// matched against the file name, others against the whole relative path.
type Mapping struct {
	Pattern     string `json:"pattern"`
	Priority    int    `json:"priority,omitempty"`
	ContentType string `json:"contentType"`
}

// Defaults is the built-in table used after any configured mappings.
var Defaults = []Mapping{
	{Pattern: "*.html", ContentType: "text/html"},
	{Pattern: "*.htm", ContentType: "text/html"},
	{Pattern: "*.css", ContentType: "text/css"},
	{Pattern: "*.js", ContentType: "text/javascript"},
	{Pattern: "*.mjs", ContentType: "text/javascript"},
	{Pattern: "*.cjs", ContentType: "text/javascript"},
	{Pattern: "*.json", ContentType: "application/json"},
	{Pattern: "*.map", ContentType: "application/json"},
	{Pattern: "*.webmanifest", ContentType: "application/manifest+json"},
	{Pattern: "*.wasm", ContentType: "application/wasm"},
	{Pattern: "*.xml", ContentType: "text/xml"},
	{Pattern: "*.txt", ContentType: "text/plain"},
	{Pattern: "*.md", ContentType: "text/markdown"},
	{Pattern: "*.csv", ContentType: "text/csv"},
	{Pattern: "*.svg", ContentType: "image/svg+xml"},
	{Pattern: "*.png", ContentType: "image/png"},
	{Pattern: "*.jpg", ContentType: "image/jpeg"},
	{Pattern: "*.jpeg", ContentType: "image/jpeg"},
	{Pattern: "*.gif", ContentType: "image/gif"},
	{Pattern: "*.webp", ContentType: "image/webp"},
	{Pattern: "*.avif", ContentType: "image/avif"},
	{Pattern: "*.ico", ContentType: "image/x-icon"},
	{Pattern: "*.bmp", ContentType: "image/bmp"},
	{Pattern: "*.woff", ContentType: "font/woff"},
	{Pattern: "*.woff2", ContentType: "font/woff2"},
	{Pattern: "*.ttf", ContentType: "font/ttf"},
	{Pattern: "*.otf", ContentType: "font/otf"},
	{Pattern: "*.eot", ContentType: "application/vnd.ms-fontobject"},
	{Pattern: "*.pdf", ContentType: "application/pdf"},
	{Pattern: "*.zip", ContentType: "application/zip"},
	{Pattern: "*.mp3", ContentType: "audio/mpeg"},
	{Pattern: "*.ogg", ContentType: "audio/ogg"},
	{Pattern: "*.wav", ContentType: "audio/wav"},
	{Pattern: "*.mp4", ContentType: "video/mp4"},
	{Pattern: "*.webm", ContentType: "video/webm"},
}

// fallbacks apply when no mapping matches.
var fallbacks = map[string]string{
	".gz": "application/x-gzip",
	".br": "application/octet-stream",
}

// Provider resolves content types from an ordered mapping list.
type Provider struct {
	mappings []Mapping
}

// New creates a Provider with custom mappings ahead of Defaults.
func New(custom []Mapping) (*Provider, error) {
	mappings := make([]Mapping, 0, len(custom)+len(Defaults))
	for _, m := range custom {
		if !doublestar.ValidatePattern(m.Pattern) {
			return nil, errors.New(errors.CodeInvalidGlob).
				WithMeta("pattern", m.Pattern).
				WithMeta("contentType", m.ContentType)
		}
		mappings = append(mappings, m)
	}
	mappings = append(mappings, Defaults...)
	return &Provider{mappings: mappings}, nil
}

// Default returns a Provider with only the built-in table.
func Default() *Provider {
	return &Provider{mappings: Defaults}
}

// Resolve returns the content type for relativePath.
//
// Among matching mappings the highest priority wins, then the most specific
// pattern (most literal characters), then the earliest. Unmatched .gz and .br
// files get a generic type; anything else resolves to "" and false.
func (p *Provider) Resolve(relativePath string) (string, bool) {
	relativePath = strings.ReplaceAll(relativePath, "\\", "/")
	name := path.Base(relativePath)

	var best *Mapping
	bestSpecificity := -1
	for i := range p.mappings {
		m := &p.mappings[i]
		subject := name
		if strings.Contains(m.Pattern, "/") {
			subject = relativePath
		}
		if ok, _ := doublestar.Match(m.Pattern, subject); !ok {
			continue
		}
		s := specificity(m.Pattern)
		if best == nil || m.Priority > best.Priority || (m.Priority == best.Priority && s > bestSpecificity) {
			best, bestSpecificity = m, s
		}
	}
	if best != nil {
		return best.ContentType, true
	}

	if ct, ok := fallbacks[strings.ToLower(path.Ext(name))]; ok {
		return ct, true
	}
	return "", false
}

func specificity(pattern string) int {
	n := 0
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', ']', '{', '}', ',':
		default:
			n++
		}
	}
	return n
}

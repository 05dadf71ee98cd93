package assets

import "strings"

// Resolver provides asset path resolution.
// It combines manifest label lookup with path prefixing.
type Resolver interface {
	// Asset resolves a source asset path to its full URL path.
	// This includes any configured prefix and fingerprinted route.
	//
	// Example:
	//   resolver.Asset("js/site.js") → "/js/site.k3xq81z0ab.js"
	Asset(source string) string
}

// labelResolver maps endpoint labels to fingerprinted routes.
type labelResolver struct {
	labels map[string]string
	prefix string
}

// NewResolver creates a Resolver from a Manifest with an optional path prefix.
//
// Every selector-less endpoint carrying a label property contributes a
// mapping from the label (the unfingerprinted route) to its own route. When
// several endpoints share a label the first in manifest order wins. Sources
// without a label resolve to themselves.
//
//	manifest, _ := assets.Load("dist/endpoints.json")
//	resolver := assets.NewResolver(manifest, "/")
//	resolver.Asset("site.css") // "/site.abc123.css"
func NewResolver(m *Manifest, prefix string) Resolver {
	endpoints := append([]Endpoint(nil), m.Endpoints...)
	SortEndpoints(endpoints)

	labels := make(map[string]string)
	for _, e := range endpoints {
		if !e.IsDefault() {
			continue
		}
		label, ok := e.Property(PropertyLabel)
		if !ok {
			continue
		}
		if _, seen := labels[label]; !seen {
			labels[label] = e.Route
		}
	}
	return &labelResolver{labels: labels, prefix: prefix}
}

func (r *labelResolver) Asset(source string) string {
	key := strings.TrimPrefix(source, "/")
	if route, ok := r.labels[key]; ok {
		return r.prefix + route
	}
	return r.prefix + key
}

// passthrough returns assets unchanged (for development mode).
type passthrough struct {
	prefix string
}

// NewPassthroughResolver creates a resolver that returns paths unchanged.
// Use this in development mode where fingerprinting is disabled.
//
// The prefix is still applied, so dev and prod paths remain consistent:
//
//	// Development:
//	resolver := assets.NewPassthroughResolver("/")
//	resolver.Asset("site.css") // "/site.css"
//
//	// Production:
//	resolver := assets.NewResolver(manifest, "/")
//	resolver.Asset("site.css") // "/site.abc123.css"
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(source string) string {
	return p.prefix + strings.TrimPrefix(source, "/")
}

package assets

import "testing"

func testManifest() *Manifest {
	return NewManifest(ManifestBuild, []Endpoint{
		{Route: "site.css", AssetFile: "/w/site.css"},
		fingerprinted("site.abc123.css", "site.css", "/w/site.css"),
		fingerprinted("js/app.k9z.js", "js/app.js", "/w/js/app.js"),
		{
			Route:              "js/app.k9z.js",
			AssetFile:          "/w/js/app.js.gz",
			Selectors:          []Selector{{Name: "Content-Encoding", Value: "gzip", Quality: "0.1"}},
			EndpointProperties: []Property{{Name: PropertyLabel, Value: "js/app.js"}},
		},
	})
}

func TestResolverWithPrefix(t *testing.T) {
	r := NewResolver(testManifest(), "/static/")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"labelled css", "site.css", "/static/site.abc123.css"},
		{"nested js", "js/app.js", "/static/js/app.k9z.js"},
		{"leading slash", "/site.css", "/static/site.abc123.css"},
		{"missing entry gets prefix", "unknown.js", "/static/unknown.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Asset(tt.source)
			if got != tt.expected {
				t.Errorf("Asset(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

func TestResolverWithoutPrefix(t *testing.T) {
	r := NewResolver(testManifest(), "")

	if got := r.Asset("site.css"); got != "site.abc123.css" {
		t.Errorf("Asset(site.css) = %q, want site.abc123.css", got)
	}
}

func TestResolverFirstLabelWins(t *testing.T) {
	m := NewManifest(ManifestBuild, []Endpoint{
		fingerprinted("b.222.js", "b.js", "/w/b.js"),
		fingerprinted("b.111.js", "b.js", "/w/b.js"),
	})
	r := NewResolver(m, "/")

	if got := r.Asset("b.js"); got != "/b.111.js" {
		t.Errorf("Asset(b.js) = %q, want /b.111.js", got)
	}
}

func TestPassthroughResolver(t *testing.T) {
	r := NewPassthroughResolver("/assets/")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"js file", "site.js", "/assets/site.js"},
		{"css file", "styles.css", "/assets/styles.css"},
		{"nested path", "images/logo.png", "/assets/images/logo.png"},
		{"leading slash", "/images/logo.png", "/assets/images/logo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Asset(tt.source)
			if got != tt.expected {
				t.Errorf("Asset(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}
}

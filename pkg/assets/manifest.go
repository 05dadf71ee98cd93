// Package assets holds the endpoint manifest produced by the asset pipeline
// and provides runtime resolution of fingerprinted asset routes.
//
// The build writes a manifest listing every servable endpoint:
//
//	{
//	  "Version": 1,
//	  "ManifestType": "Build",
//	  "Endpoints": [
//	    {
//	      "Route": "site.abc123.css",
//	      "AssetFile": "/app/wwwroot/site.css",
//	      "Selectors": [],
//	      "ResponseHeaders": [{"Name": "Cache-Control", "Value": "max-age=31536000, immutable"}],
//	      "EndpointProperties": [{"Name": "label", "Value": "site.css"}]
//	    }
//	  ]
//	}
//
// This package loads that manifest and resolves labels to routes for use in
// templates:
//
//	manifest, _ := assets.Load("dist/endpoints.json")
//	resolver := assets.NewResolver(manifest, "/")
//	resolver.Asset("site.css") // "/site.abc123.css"
package assets

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/zeebo/blake3"
)

// ManifestVersion is the schema version written to new manifests.
const ManifestVersion = 1

// Manifest types.
const (
	ManifestBuild   = "Build"
	ManifestPublish = "Publish"
)

// Manifest is the serialized set of endpoints.
type Manifest struct {
	Version      int        `json:"Version"`
	ManifestType string     `json:"ManifestType,omitempty"`
	Endpoints    []Endpoint `json:"Endpoints"`
}

// NewManifest creates a manifest holding endpoints.
func NewManifest(manifestType string, endpoints []Endpoint) *Manifest {
	return &Manifest{
		Version:      ManifestVersion,
		ManifestType: manifestType,
		Endpoints:    endpoints,
	}
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidManifest).WithMeta("path", path).Wrap(err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.FromError(err, errors.CodeInvalidManifest).WithMeta("path", path)
	}
	return m, nil
}

// Parse decodes a manifest from JSON.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.CodeInvalidManifest).Wrap(err)
	}
	for i, e := range m.Endpoints {
		if e.Route == "" || e.AssetFile == "" {
			return nil, errors.New(errors.CodeInvalidManifest).
				WithDetail("endpoint is missing Route or AssetFile").
				WithMeta("index", strconv.Itoa(i))
		}
	}
	return &m, nil
}

// Sort orders endpoints by route, asset file, and selectors.
func (m *Manifest) Sort() {
	SortEndpoints(m.Endpoints)
}

// SortEndpoints orders endpoints deterministically.
func SortEndpoints(endpoints []Endpoint) {
	sort.SliceStable(endpoints, func(i, j int) bool {
		a, b := &endpoints[i], &endpoints[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.AssetFile != b.AssetFile {
			return a.AssetFile < b.AssetFile
		}
		return a.SelectorKey() < b.SelectorKey()
	})
}

// Marshal sorts the manifest and encodes it as indented JSON. Empty
// collections are written as [] rather than null.
func (m *Manifest) Marshal() ([]byte, error) {
	m.Sort()
	for i := range m.Endpoints {
		e := &m.Endpoints[i]
		if e.Selectors == nil {
			e.Selectors = []Selector{}
		}
		if e.ResponseHeaders == nil {
			e.ResponseHeaders = []ResponseHeader{}
		}
		if e.EndpointProperties == nil {
			e.EndpointProperties = []Property{}
		}
	}
	if m.Endpoints == nil {
		m.Endpoints = []Endpoint{}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write marshals the manifest to path, creating parent directories. The file
// is replaced atomically so readers never see a partial manifest.
func (m *Manifest) Write(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return errors.New(errors.CodeManifestWriteFailed).WithMeta("path", path).Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New(errors.CodeManifestWriteFailed).WithMeta("path", path).Wrap(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.New(errors.CodeManifestWriteFailed).WithMeta("path", path).Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.New(errors.CodeManifestWriteFailed).WithMeta("path", path).Wrap(err)
	}
	return nil
}

// Hash returns the hex BLAKE3 digest of the marshaled manifest. Two
// manifests with the same endpoints hash identically.
func (m *Manifest) Hash() (string, error) {
	data, err := m.Marshal()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Routes groups endpoints by route, preserving manifest order.
func (m *Manifest) Routes() map[string][]Endpoint {
	routes := make(map[string][]Endpoint)
	for _, e := range m.Endpoints {
		routes[e.Route] = append(routes[e.Route], e)
	}
	return routes
}

// Len returns the number of endpoints in the manifest.
func (m *Manifest) Len() int {
	return len(m.Endpoints)
}

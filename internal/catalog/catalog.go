package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vango-dev/assetkit/internal/errors"
)

// Catalog is an identity-indexed set of assets.
type Catalog struct {
	assets map[string]*Asset
}

// New creates a catalog holding assets.
func New(assets ...*Asset) (*Catalog, error) {
	c := &Catalog{assets: make(map[string]*Asset, len(assets))}
	for _, a := range assets {
		if err := c.Add(a); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add inserts an asset. Identities are cleaned; adding the same identity
// twice is an error.
func (c *Catalog) Add(a *Asset) error {
	if a.Identity == "" {
		return errors.New(errors.CodeMissingAsset).
			WithDetail("asset has no identity").
			WithMeta("relativePath", a.RelativePath)
	}
	a.Identity = filepath.Clean(a.Identity)
	if a.RelatedAsset != "" {
		a.RelatedAsset = filepath.Clean(a.RelatedAsset)
	}
	if _, exists := c.assets[a.Identity]; exists {
		return errors.New(errors.CodeDuplicateAsset).WithMeta("asset", a.Identity)
	}
	c.assets[a.Identity] = a
	return nil
}

// Get returns the asset with the given identity.
func (c *Catalog) Get(identity string) (*Asset, bool) {
	a, ok := c.assets[filepath.Clean(identity)]
	return a, ok
}

// Len returns the number of assets.
func (c *Catalog) Len() int {
	return len(c.assets)
}

// Sorted returns all assets ordered by identity.
func (c *Catalog) Sorted() []*Asset {
	out := make([]*Asset, 0, len(c.assets))
	for _, a := range c.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identity < out[j].Identity
	})
	return out
}

// Related returns the primary asset an alternative refers to.
func (c *Catalog) Related(a *Asset) (*Asset, bool) {
	if a.RelatedAsset == "" {
		return nil, false
	}
	return c.Get(a.RelatedAsset)
}

// Alternatives returns the assets related to primary, ordered by identity.
func (c *Catalog) Alternatives(primary *Asset) []*Asset {
	var out []*Asset
	for _, a := range c.Sorted() {
		if a.IsAlternative() && a.RelatedAsset == primary.Identity {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks that alternatives reference assets in the catalog and that
// assets sharing a target path have compatible kinds.
//
// Two assets may share a target path only when one serves Build and the other
// Publish, or when one of them is All and the other is a specific kind. Any
// other grouping is a conflict.
func (c *Catalog) Validate() error {
	for _, a := range c.Sorted() {
		if !a.IsAlternative() {
			continue
		}
		if _, ok := c.Related(a); !ok {
			return errors.New(errors.CodeMissingAsset).
				WithDetail("alternative asset refers to an asset that is not in the catalog").
				WithMeta("asset", a.Identity).
				WithMeta("related", a.RelatedAsset)
		}
	}

	for _, group := range c.groups() {
		if len(group) < 2 || compatible(group) {
			continue
		}
		return conflict(group)
	}
	return nil
}

// ForKind returns a catalog restricted to assets serving kind. When a
// kind-specific asset and an All asset share a target path, the specific one
// is kept.
func (c *Catalog) ForKind(kind Kind) *Catalog {
	out := &Catalog{assets: make(map[string]*Asset)}
	for _, group := range c.groups() {
		var specific, all *Asset
		for _, a := range group {
			switch a.Kind() {
			case kind:
				specific = a
			case KindAll:
				all = a
			}
		}
		switch {
		case specific != nil:
			out.assets[specific.Identity] = specific
		case all != nil:
			out.assets[all.Identity] = all
		}
	}
	return out
}

// groups buckets assets by target path. Groups and their members are sorted.
func (c *Catalog) groups() [][]*Asset {
	byPath := make(map[string][]*Asset)
	var keys []string
	for _, a := range c.Sorted() {
		key := a.TargetPath()
		if _, seen := byPath[key]; !seen {
			keys = append(keys, key)
		}
		byPath[key] = append(byPath[key], a)
	}
	sort.Strings(keys)

	out := make([][]*Asset, 0, len(keys))
	for _, k := range keys {
		out = append(out, byPath[k])
	}
	return out
}

func compatible(group []*Asset) bool {
	if len(group) != 2 {
		return false
	}
	a, b := group[0].Kind(), group[1].Kind()
	switch {
	case a == KindBuild && b == KindPublish, a == KindPublish && b == KindBuild:
		return true
	case a == KindAll && b != KindAll, b == KindAll && a != KindAll:
		return true
	}
	return false
}

func conflict(group []*Asset) error {
	described := make([]string, len(group))
	for i, a := range group {
		described[i] = fmt.Sprintf("%s (%s)", a.Identity, a.Kind())
	}
	return errors.New(errors.CodeAssetConflict).
		WithDetail(fmt.Sprintf("%d assets resolve to the same path", len(group))).
		WithMeta("path", group[0].TargetPath()).
		WithMeta("assets", strings.Join(described, ", ")).
		WithSuggestion("Give one asset a different relative path, or mark them Build and Publish so each pipeline sees one")
}

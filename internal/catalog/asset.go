// Package catalog holds the set of static web assets known to a build.
//
// Assets are discovered from a static directory (or supplied by callers),
// fingerprinted, and then resolved into endpoints. Compressed variants are
// Alternative assets that refer back to their Primary by identity.
package catalog

import (
	"path"
	"strings"
	"time"
)

// Kind selects which pipeline an asset participates in.
type Kind string

const (
	KindBuild   Kind = "Build"
	KindPublish Kind = "Publish"
	KindAll     Kind = "All"
)

// Mode tells whether an asset belongs to the current project or to a
// referenced one.
type Mode string

const (
	ModeCurrentProject Mode = "CurrentProject"
	ModeReference      Mode = "Reference"
	ModeAll            Mode = "All"
)

// Role distinguishes canonical content from derived variants.
type Role string

const (
	RolePrimary     Role = "Primary"
	RoleAlternative Role = "Alternative"
)

// CopyPolicy mirrors the copy-to-output and copy-to-publish settings of an
// asset.
type CopyPolicy string

const (
	CopyNever          CopyPolicy = "Never"
	CopyPreserveNewest CopyPolicy = "PreserveNewest"
	CopyAlways         CopyPolicy = "Always"
)

// TraitContentEncoding is the trait name carried by compressed alternatives.
const TraitContentEncoding = "Content-Encoding"

// Asset is a single static file known to the pipeline.
type Asset struct {
	// Identity is the absolute path of the file and the catalog key.
	Identity   string
	SourceID   string
	SourceType string

	// ContentRoot is the directory the relative path is rooted in.
	ContentRoot string

	// BasePath prefixes every route of the asset.
	BasePath string

	// RelativePath is a path pattern template such as
	// "css/site#[.{fingerprint}]?.css".
	RelativePath string

	AssetKind Kind
	AssetMode Mode
	AssetRole Role

	// RelatedAsset is the identity of the primary asset for alternatives.
	RelatedAsset string

	AssetTraitName  string
	AssetTraitValue string

	Fingerprint string
	Integrity   string

	CopyToOutputDirectory  CopyPolicy
	CopyToPublishDirectory CopyPolicy

	FileLength    int64
	LastWriteTime time.Time

	// OriginalItemSpec is the path the asset was discovered under.
	OriginalItemSpec string
}

// Token implements pathpattern.TokenResolver.
func (a *Asset) Token(name string) (string, bool) {
	switch name {
	case "fingerprint":
		return a.Fingerprint, a.Fingerprint != ""
	case "integrity":
		return a.Integrity, a.Integrity != ""
	}
	return "", false
}

// Kind returns the effective kind of the asset. See ComputeAssetKind.
func (a *Asset) Kind() Kind {
	return ComputeAssetKind(a)
}

// Role returns the asset role, defaulting to Primary.
func (a *Asset) Role() Role {
	if a.AssetRole == "" {
		return RolePrimary
	}
	return a.AssetRole
}

// IsAlternative reports whether the asset is a variant of another asset.
func (a *Asset) IsAlternative() bool {
	return a.Role() == RoleAlternative
}

// IsCompressed reports whether the asset is a Content-Encoding alternative.
func (a *Asset) IsCompressed() bool {
	return a.IsAlternative() && strings.EqualFold(a.AssetTraitName, TraitContentEncoding)
}

// TargetPath is the base path joined with the relative path template. Assets
// sharing a target path compete for the same routes.
func (a *Asset) TargetPath() string {
	return JoinRoute(a.BasePath, a.RelativePath)
}

// ComputeAssetKind derives the kind of an asset. An explicit kind wins; an
// asset never copied to the publish directory is Build; anything else is
// All.
func ComputeAssetKind(a *Asset) Kind {
	if a.AssetKind != "" {
		return a.AssetKind
	}
	if a.CopyToPublishDirectory == CopyNever {
		return KindBuild
	}
	return KindAll
}

// JoinRoute joins a base path and a relative path into a route with forward
// slashes and no leading slash. The base path "/" contributes nothing.
func JoinRoute(basePath, relative string) string {
	basePath = strings.Trim(strings.ReplaceAll(basePath, "\\", "/"), "/")
	relative = strings.TrimLeft(strings.ReplaceAll(relative, "\\", "/"), "/")
	if basePath == "" {
		return relative
	}
	if relative == "" {
		return basePath
	}
	return path.Join(basePath, relative)
}

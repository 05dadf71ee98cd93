// Package fingerprint derives content fingerprints and integrity hashes for
// static assets and injects fingerprint tokens into their path patterns.
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"io"
	"math/big"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/pkg/pathpattern"
)

// TokenName is the path pattern variable that carries the fingerprint.
const TokenName = "fingerprint"

// DefaultExpression is spliced into paths that no mapping matches.
const DefaultExpression = "#[.{fingerprint}]?"

// tokenLength is the number of base36 characters in a fingerprint.
const tokenLength = 10

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Pattern maps a file name glob to the expression spliced into matching paths.
type Pattern struct {
	// Name identifies the mapping in configuration and logs.
	Name string `json:"name,omitempty"`

	// Glob is matched against the file name. A glob of the form "*<suffix>"
	// places the expression directly before <suffix>; any other glob places
	// it before the last extension.
	Glob string `json:"pattern"`

	// Expression is the group to insert, e.g. "#[.{fingerprint}]!".
	Expression string `json:"expression"`
}

// Result is the outcome of hashing an asset's content.
type Result struct {
	// Token is a short, URL-safe fingerprint.
	Token string

	// Integrity is the standard base64 SHA-256 digest of the content.
	Integrity string
}

// SRI returns the integrity in subresource-integrity form.
func (r Result) SRI() string {
	return "sha256-" + r.Integrity
}

// Computer fingerprints assets.
type Computer struct {
	patterns []Pattern
}

// New creates a Computer using the given ordered mappings. The first
// mapping whose glob matches wins. Expressions must contain {fingerprint} and
// no tokens other than fingerprint and integrity.
func New(patterns []Pattern) (*Computer, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p.Glob) {
			return nil, errors.New(errors.CodeInvalidGlob).
				WithMeta("pattern", p.Glob).
				WithMeta("mapping", p.Name)
		}
		expr, err := pathpattern.Parse(p.Expression, p.Name)
		if err != nil {
			return nil, err
		}
		names := expr.TokenNames()
		if !slices.Contains(names, TokenName) {
			return nil, errors.New(errors.CodeInvalidPattern).
				WithDetail("a fingerprint expression must reference {fingerprint}").
				WithMeta("pattern", p.Expression).
				WithMeta("mapping", p.Name)
		}
		for _, name := range names {
			if name != TokenName && name != "integrity" {
				return nil, errors.New(errors.CodeInvalidPattern).
					WithDetail("fingerprint expressions may only use the fingerprint and integrity tokens").
					WithMeta("token", name).
					WithMeta("pattern", p.Expression).
					WithMeta("mapping", p.Name)
			}
		}
	}
	return &Computer{patterns: patterns}, nil
}

// AppendFingerprintPattern returns relativePath with a fingerprint expression
// group inserted. Paths that already contain a fingerprint token are returned
// unchanged.
func (c *Computer) AppendFingerprintPattern(relativePath, owner string) (string, error) {
	p, err := pathpattern.Parse(relativePath, owner)
	if err != nil {
		return "", err
	}
	if p.HasToken(TokenName) {
		return relativePath, nil
	}

	dir, file := path.Split(relativePath)

	for _, m := range c.patterns {
		ok, err := doublestar.Match(m.Glob, file)
		if err != nil {
			return "", errors.New(errors.CodeInvalidGlob).WithMeta("pattern", m.Glob).Wrap(err)
		}
		if !ok {
			continue
		}
		if suffix, literal := globSuffix(m.Glob); literal && len(suffix) < len(file) {
			stem := strings.TrimSuffix(file, suffix)
			return dir + stem + m.Expression + suffix, nil
		}
		return dir + insertBeforeExtension(file, m.Expression), nil
	}

	return dir + insertBeforeExtension(file, DefaultExpression), nil
}

// globSuffix reports the literal tail of a "*<suffix>" glob.
func globSuffix(glob string) (string, bool) {
	if !strings.HasPrefix(glob, "*") {
		return "", false
	}
	suffix := glob[1:]
	if suffix == "" || strings.ContainsAny(suffix, "*?[]{}\\/") {
		return "", false
	}
	return suffix, true
}

// insertBeforeExtension splices expr before the last extension of file, or
// appends it when there is none.
func insertBeforeExtension(file, expr string) string {
	ext := path.Ext(file)
	if ext == "" || ext == file {
		return file + expr
	}
	return strings.TrimSuffix(file, ext) + expr + ext
}

// ComputeFingerprint hashes data and returns its fingerprint token and
// integrity. Identical bytes always produce the same result.
func ComputeFingerprint(data []byte) Result {
	sum := sha256.Sum256(data)
	return fromSum(sum[:])
}

// ComputeReader is ComputeFingerprint over a stream.
func ComputeReader(r io.Reader) (Result, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Result{}, err
	}
	return fromHash(h), nil
}

func fromHash(h hash.Hash) Result {
	return fromSum(h.Sum(nil))
}

func fromSum(sum []byte) Result {
	return Result{
		Token:     toBase36(sum, tokenLength),
		Integrity: base64.StdEncoding.EncodeToString(sum),
	}
}

// toBase36 renders the low-order digits of sum as n base36 characters.
func toBase36(sum []byte, n int) string {
	v := new(big.Int).SetBytes(sum)
	radix := big.NewInt(36)
	mod := new(big.Int)

	out := make([]byte, n)
	for i := 0; i < n; i++ {
		v.DivMod(v, radix, mod)
		out[i] = base36[mod.Int64()]
	}
	return string(out)
}

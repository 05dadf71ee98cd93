package pathpattern

import (
	"fmt"
	"strings"

	"github.com/vango-dev/assetkit/internal/errors"
)

// TokenResolver supplies values for pattern variables.
type TokenResolver interface {
	// Token returns the value for name and whether one is available.
	Token(name string) (string, bool)
}

// Tokens is a map-backed TokenResolver.
type Tokens map[string]string

// Token implements TokenResolver.
func (t Tokens) Token(name string) (string, bool) {
	v, ok := t[name]
	return v, ok
}

// ReplaceTokens substitutes variables and returns the resolved path together
// with the names of the tokens that were written into it.
//
// Values are looked up in source first, then in extra; a variable with an
// inline default falls back to it. An optional segment with any unresolved
// variable is omitted. An unresolved variable in a required segment is an
// error naming the token and the original template.
func (p *PathPattern) ReplaceTokens(source TokenResolver, extra map[string]string) (string, []string, error) {
	return p.replace(source, extra, func(Segment) bool { return true })
}

// CanonicalPath resolves the pattern to its canonical form: preferred ("!")
// segments are kept when they resolve, plain optional ("?") segments are
// always omitted.
func (p *PathPattern) CanonicalPath(source TokenResolver, extra map[string]string) (string, error) {
	path, _, err := p.replace(source, extra, func(s Segment) bool { return s.IsPreferred })
	return path, err
}

func (p *PathPattern) replace(source TokenResolver, extra map[string]string, keepOptional func(Segment) bool) (string, []string, error) {
	lookup := func(name string) (string, bool) {
		if source != nil {
			if v, ok := source.Token(name); ok {
				return v, true
			}
		}
		if v, ok := extra[name]; ok {
			return v, true
		}
		return "", false
	}

	var b strings.Builder
	var consumed []string
	for _, seg := range p.Segments {
		if seg.IsOptional && !keepOptional(seg) {
			continue
		}

		text, names, missing := resolveSegment(seg, lookup)
		if missing != "" {
			if seg.IsOptional {
				continue
			}
			return "", nil, p.unresolved(missing)
		}
		b.WriteString(text)
		consumed = appendUnique(consumed, names...)
	}

	return b.String(), consumed, nil
}

// resolveSegment renders a segment. missing is the first variable without a
// value, in which case text is meaningless.
func resolveSegment(seg Segment, lookup func(string) (string, bool)) (text string, names []string, missing string) {
	var b strings.Builder
	for _, part := range seg.Parts {
		switch v := part.(type) {
		case Literal:
			b.WriteString(string(v))
		case Variable:
			value, ok := lookup(v.Name)
			if !ok {
				if !v.HasDefault {
					return "", nil, v.Name
				}
				value = v.Default
			}
			b.WriteString(value)
			names = appendUnique(names, v.Name)
		}
	}
	return b.String(), names, ""
}

func (p *PathPattern) unresolved(token string) *errors.Error {
	err := errors.New(errors.CodeUnresolvedToken).
		WithDetail(fmt.Sprintf("token %q has no value and no default", token)).
		WithMeta("token", token).
		WithMeta("pattern", p.Template)
	if p.Owner != "" {
		err.WithMeta("asset", p.Owner)
	}
	return err.WithSuggestion("Mark the group optional with '?' or '!', or give the token a default as {" + token + "=value}")
}

// Expand enumerates every combination of the pattern's optional segments.
//
// A pattern with k optional segments yields 2^k patterns. In each result the
// chosen optional segments become required and the others are removed. The
// order is stable: the combination with every optional segment omitted comes
// first, then single segments left to right, then pairs in lexicographic
// index order, and so on.
func (p *PathPattern) Expand() []*PathPattern {
	var optional []int
	for i, seg := range p.Segments {
		if seg.IsOptional {
			optional = append(optional, i)
		}
	}

	result := make([]*PathPattern, 0, 1<<len(optional))
	for size := 0; size <= len(optional); size++ {
		combinations(len(optional), size, func(chosen []int) {
			include := make(map[int]bool, len(chosen))
			for _, c := range chosen {
				include[optional[c]] = true
			}
			result = append(result, p.project(include))
		})
	}
	return result
}

// project builds the pattern where the optional segments in include are made
// required and all other optional segments are dropped.
func (p *PathPattern) project(include map[int]bool) *PathPattern {
	out := &PathPattern{Owner: p.Owner}
	for i, seg := range p.Segments {
		if seg.IsOptional {
			if !include[i] {
				continue
			}
			seg.IsOptional = false
			seg.IsPreferred = false
		}
		out.Segments = append(out.Segments, seg)
	}
	out.Template = out.String()
	return out
}

// combinations calls fn with every size-element subset of [0, n) in
// lexicographic order. The slice passed to fn is reused between calls.
func combinations(n, size int, fn func([]int)) {
	chosen := make([]int, 0, size)
	var walk func(start int)
	walk = func(start int) {
		if len(chosen) == size {
			fn(chosen)
			return
		}
		for i := start; i <= n-(size-len(chosen)); i++ {
			chosen = append(chosen, i)
			walk(i + 1)
			chosen = chosen[:len(chosen)-1]
		}
	}
	walk(0)
}

func errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

package pathpattern

import (
	"strings"

	"github.com/vango-dev/assetkit/internal/errors"
)

// Part is one piece of a Segment. It is either a Literal or a Variable.
type Part interface {
	isPart()
}

// Literal is text copied verbatim into the resolved path.
type Literal string

func (Literal) isPart() {}

// Variable is a named token, optionally carrying an inline default value.
type Variable struct {
	Name       string
	Default    string
	HasDefault bool
}

func (Variable) isPart() {}

// Segment is a run of literal text or a single expression group.
type Segment struct {
	Parts []Part

	// IsOptional reports whether the segment may be omitted when one of its
	// variables is unresolved.
	IsOptional bool

	// IsPreferred marks an optional segment whose resolved form is the
	// canonical one ("!" suffix).
	IsPreferred bool
}

// isGroup reports whether the segment came from a #[...] expression.
func (s Segment) isGroup() bool {
	if s.IsOptional {
		return true
	}
	for _, p := range s.Parts {
		if _, ok := p.(Variable); ok {
			return true
		}
	}
	return false
}

// PathPattern is a parsed relative path template.
type PathPattern struct {
	// Template is the source text the pattern was parsed from.
	Template string

	// Owner labels the pattern in error messages, usually an asset identity.
	Owner string

	Segments []Segment
}

// Parse parses a templated relative path. owner is only used to label errors.
func Parse(template, owner string) (*PathPattern, error) {
	p := &PathPattern{Template: template, Owner: owner}

	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			p.Segments = append(p.Segments, Segment{Parts: []Part{Literal(lit.String())}})
			lit.Reset()
		}
	}

	for i := 0; i < len(template); {
		if !strings.HasPrefix(template[i:], "#[") {
			lit.WriteByte(template[i])
			i++
			continue
		}

		end, err := groupEnd(template, i+2)
		if err != nil {
			return nil, invalidPattern(template, owner, err.Error())
		}
		parts, err := parseGroup(template[i+2 : end])
		if err != nil {
			return nil, invalidPattern(template, owner, err.Error())
		}

		flush()
		seg := Segment{Parts: parts}
		i = end + 1
		if i < len(template) {
			switch template[i] {
			case '?':
				seg.IsOptional = true
				i++
			case '!':
				seg.IsOptional = true
				seg.IsPreferred = true
				i++
			}
		}
		p.Segments = append(p.Segments, seg)
	}
	flush()

	return p, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level defaults.
func MustParse(template string) *PathPattern {
	p, err := Parse(template, "")
	if err != nil {
		panic(err)
	}
	return p
}

// groupEnd returns the index of the "]" closing a group whose content starts
// at start. Brackets inside {...} do not close the group.
func groupEnd(s string, start int) (int, error) {
	inVar := false
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			if inVar {
				return 0, errorf("nested '{' at offset %d", i)
			}
			inVar = true
		case '}':
			inVar = false
		case ']':
			if !inVar {
				return i, nil
			}
		}
	}
	if inVar {
		return 0, errorf("unclosed '{' in expression group")
	}
	return 0, errorf("unclosed expression group starting at offset %d", start-2)
}

// parseGroup splits the content of a #[...] group into parts.
func parseGroup(content string) ([]Part, error) {
	if content == "" {
		return nil, errorf("empty expression group")
	}

	var parts []Part
	var lit strings.Builder
	for i := 0; i < len(content); {
		switch content[i] {
		case '{':
			end := strings.IndexByte(content[i:], '}')
			if end < 0 {
				return nil, errorf("unclosed '{' in expression group")
			}
			body := content[i+1 : i+end]
			name, def, hasDefault := strings.Cut(body, "=")
			name = strings.TrimSpace(name)
			if name == "" {
				return nil, errorf("empty token name in %q", "{"+body+"}")
			}
			if lit.Len() > 0 {
				parts = append(parts, Literal(lit.String()))
				lit.Reset()
			}
			parts = append(parts, Variable{Name: name, Default: def, HasDefault: hasDefault})
			i += end + 1
		case '}':
			return nil, errorf("unexpected '}' in expression group")
		default:
			lit.WriteByte(content[i])
			i++
		}
	}
	if lit.Len() > 0 {
		parts = append(parts, Literal(lit.String()))
	}
	return parts, nil
}

// HasToken reports whether a variable named name appears in the pattern.
func (p *PathPattern) HasToken(name string) bool {
	for _, seg := range p.Segments {
		for _, part := range seg.Parts {
			if v, ok := part.(Variable); ok && v.Name == name {
				return true
			}
		}
	}
	return false
}

// TokenNames returns the distinct variable names in order of appearance.
func (p *PathPattern) TokenNames() []string {
	var names []string
	for _, seg := range p.Segments {
		for _, part := range seg.Parts {
			if v, ok := part.(Variable); ok {
				names = appendUnique(names, v.Name)
			}
		}
	}
	return names
}

// HasOptional reports whether any segment is optional.
func (p *PathPattern) HasOptional() bool {
	for _, seg := range p.Segments {
		if seg.IsOptional {
			return true
		}
	}
	return false
}

// Omit returns a copy of the pattern without the segments that reference the
// variable name. Other segments keep their optional flags.
func (p *PathPattern) Omit(name string) *PathPattern {
	out := &PathPattern{Owner: p.Owner}
	for _, seg := range p.Segments {
		drop := false
		for _, part := range seg.Parts {
			if v, ok := part.(Variable); ok && v.Name == name {
				drop = true
				break
			}
		}
		if !drop {
			out.Segments = append(out.Segments, seg)
		}
	}
	out.Template = out.String()
	return out
}

// String renders the pattern back into template syntax.
func (p *PathPattern) String() string {
	var b strings.Builder
	for _, seg := range p.Segments {
		if !seg.isGroup() {
			for _, part := range seg.Parts {
				if l, ok := part.(Literal); ok {
					b.WriteString(string(l))
				}
			}
			continue
		}

		b.WriteString("#[")
		for _, part := range seg.Parts {
			switch v := part.(type) {
			case Literal:
				b.WriteString(string(v))
			case Variable:
				b.WriteByte('{')
				b.WriteString(v.Name)
				if v.HasDefault {
					b.WriteByte('=')
					b.WriteString(v.Default)
				}
				b.WriteByte('}')
			}
		}
		b.WriteByte(']')
		if seg.IsOptional {
			if seg.IsPreferred {
				b.WriteByte('!')
			} else {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}

func invalidPattern(template, owner, reason string) *errors.Error {
	err := errors.New(errors.CodeInvalidPattern).
		WithDetail(reason).
		WithMeta("pattern", template)
	if owner != "" {
		err.WithMeta("asset", owner)
	}
	return err.WithSuggestion("Expression groups are written #[...] with tokens as {name} or {name=default}")
}

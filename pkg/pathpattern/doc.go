// Package pathpattern implements the templated relative path syntax used to
// describe where a static asset is served.
//
// A pattern is literal text with embedded expression groups:
//
//	css/site#[.{fingerprint}]?.css
//
// A group is written #[...]. Inside it, {name} is a variable token and
// {name=value} is a variable with an inline default; any other characters are
// literal text that is only emitted together with the group. A group may be
// suffixed with:
//
//	?  optional: the whole group is dropped when a variable is unresolved
//	!  optional, but the resolved form is the preferred (canonical) one
//
// Without a suffix the group is required, and substituting the pattern fails
// when one of its variables has no value.
//
// # Usage
//
//	p, err := pathpattern.Parse("site#[.{fingerprint}]?.css", "wwwroot/site.css")
//	if err != nil {
//	    return err
//	}
//
//	path, _, _ := p.ReplaceTokens(nil, nil)
//	// site.css
//
//	path, used, _ := p.ReplaceTokens(pathpattern.Tokens{"fingerprint": "abc123"}, nil)
//	// site.abc123.css, [fingerprint]
//
//	for _, variant := range p.Expand() {
//	    fmt.Println(variant) // site.css, then site#[.{fingerprint}].css
//	}
package pathpattern

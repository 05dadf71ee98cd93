package dev

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreRule is one compiled ignore pattern.
type ignoreRule struct {
	// glob is set for patterns with wildcards.
	glob string
	// fullPath matches the glob against the whole slash path instead of the
	// base name.
	fullPath bool
	// run is a literal "/a/b/" sequence that must appear among the path's
	// segments.
	run string
}

// ignoreSet decides whether a watched path is skipped.
//
//	.git          any path segment named .git
//	*.swp         base name glob
//	dist/**       glob over the slash path
//	/proj/dist    literal segment sequence anywhere in the path
type ignoreSet []ignoreRule

func compileIgnore(patterns []string) ignoreSet {
	set := make(ignoreSet, 0, len(patterns))
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[{") {
			set = append(set, ignoreRule{glob: p, fullPath: strings.Contains(p, "/")})
			continue
		}
		if segs := segments(p); len(segs) > 0 {
			set = append(set, ignoreRule{run: "/" + strings.Join(segs, "/") + "/"})
		}
	}
	return set
}

func (s ignoreSet) match(path string) bool {
	slashed := filepath.ToSlash(path)
	name := filepath.Base(path)
	var padded string

	for _, r := range s {
		if r.glob != "" {
			target := name
			if r.fullPath {
				target = slashed
			}
			if ok, _ := doublestar.Match(r.glob, target); ok {
				return true
			}
			continue
		}
		if padded == "" {
			padded = "/" + strings.Join(segments(slashed), "/") + "/"
		}
		if strings.Contains(padded, r.run) {
			return true
		}
	}
	return false
}

// segments splits a slash path, dropping empty and "." parts.
func segments(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

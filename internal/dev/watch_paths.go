package dev

import (
	"path/filepath"

	"github.com/vango-dev/assetkit/internal/config"
)

// CollectWatchPaths returns the normalized paths a dev server watches: the
// static directory and every predefined manifest.
func CollectWatchPaths(cfg *config.Config) []string {
	paths := append([]string{cfg.StaticPath()}, cfg.ManifestPaths()...)

	unique := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		clean := filepath.Clean(path)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}

	return unique
}

// IgnorePatterns returns the watcher ignore list for cfg. The output
// directory is ignored when it lives inside a watched path, so builds do not
// retrigger themselves.
func IgnorePatterns(cfg *config.Config) []string {
	ignore := append([]string(nil), DefaultIgnore...)
	if out := cfg.OutputPath(); out != "" {
		out = filepath.ToSlash(out)
		ignore = append(ignore, out, out+"/**")
	}
	return ignore
}

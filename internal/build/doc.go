// Package build produces endpoint manifests for a project's static assets.
//
// A build runs these stages, each traced as an OpenTelemetry span:
//   - discover: walk the static directory, applying include/exclude globs
//     and inserting fingerprint expressions into relative paths
//   - hash: fingerprint every file in parallel
//   - compress: write gzip and brotli variants as alternative assets
//   - catalog: validate kinds and keep the assets for the build mode
//   - resolve: expand routes, merge predefined endpoints, negotiate encodings
//   - write: copy files (publish mode) and write the manifest
//
// Nothing is written when a stage fails, and the manifest is left untouched
// when its BLAKE3 stamp matches the previous build.
//
// # Usage
//
//	builder, err := build.New(cfg, build.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := builder.Build(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Built %d endpoints in %s\n", result.Manifest.Len(), result.Duration)
//
// # Output Structure
//
//	dist/
//	├── compressed/             # .gz and .br variants
//	├── public/                 # publish mode only, files at canonical paths
//	├── endpoints.json          # endpoint manifest
//	└── endpoints.json.blake3   # manifest stamp
package build

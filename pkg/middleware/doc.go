// Package middleware provides net/http middleware for asset servers.
//
// This package includes:
//   - OpenTelemetry tracing of each request
//   - Structured request logging with log/slog
//
// Both take the standard func(http.Handler) http.Handler shape and compose
// with chi routers:
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry())
//	r.Use(middleware.RequestLogger(logger))
//	r.Mount("/", static.New(manifest).Routes())
//
// # OpenTelemetry
//
// Spans are named "<METHOD> <path>" and record the status code, response
// size and negotiated Content-Encoding. Skip noisy paths with a filter:
//
//	middleware.OpenTelemetry(
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/metrics"
//	    }),
//	)
//
// The tracer comes from the global provider set with otel.SetTracerProvider.
package middleware

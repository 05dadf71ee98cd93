package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/assetkit/internal/telemetry"
	"github.com/vango-dev/assetkit/pkg/middleware"
	"github.com/vango-dev/assetkit/pkg/assets"
	"github.com/vango-dev/assetkit/pkg/static"
)

type serveFlags struct {
	manifest string
	addr     string
	prefix   string
	metrics  bool
}

func serveCmd(global *globalFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a built manifest",
		Long: `Serve the endpoints of a built manifest.

Requests are matched against manifest routes and answered with the
manifest's headers. Compressed variants are chosen from the request's
Accept-Encoding.

Examples:
  assetkit serve
  assetkit serve --manifest=dist/endpoints.json --addr=:8080
  assetkit serve --metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(global, flags)
		},
	}

	cmd.Flags().StringVar(&flags.manifest, "manifest", "", "Manifest to serve (default: the project's build output)")
	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (default: dev host and port)")
	cmd.Flags().StringVar(&flags.prefix, "prefix", "", "URL prefix (default: static.basePath)")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "Expose Prometheus metrics at /metrics")

	return cmd
}

func runServe(global *globalFlags, flags *serveFlags) error {
	logger := global.logger()

	manifestPath, addr, prefix := flags.manifest, flags.addr, flags.prefix
	if manifestPath == "" || addr == "" || prefix == "" {
		cfg, err := global.loadConfig()
		if err != nil {
			return err
		}
		if manifestPath == "" {
			manifestPath = cfg.ManifestPath()
		}
		if addr == "" {
			addr = cfg.DevAddress()
		}
		if prefix == "" {
			prefix = cfg.Static.BasePath
		}
	}

	m, err := assets.Load(manifestPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(registry))

	handler := static.New(m,
		static.WithRoot(filepath.Dir(manifestPath)),
		static.WithPrefix(prefix),
		static.WithMetrics(metrics),
		static.WithLogger(logger),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.OpenTelemetry(
		middleware.WithRequestFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics"
		}),
	))
	r.Use(middleware.RequestLogger(logger))
	if flags.metrics {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/", handler.Routes())

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	success("Serving %d endpoints at http://%s%s", m.Len(), addr, prefix)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package dev

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/assetkit/internal/build"
	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/telemetry"
	"github.com/vango-dev/assetkit/pkg/middleware"
	"github.com/vango-dev/assetkit/pkg/static"
)

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	// OnBuildComplete is called after every build attempt.
	OnBuildComplete func(result *build.Result, err error)

	// OnReload is called when browsers are notified.
	OnReload func(clients int)
}

// Server is the development server. It rebuilds the manifest when the
// static directory changes and serves the newest manifest.
type Server struct {
	config       *config.Config
	options      ServerOptions
	builder      *build.Builder
	watcher      *Watcher
	reloadServer *ReloadServer
	handler      atomic.Pointer[static.Handler]
	httpServer   *http.Server
	logger       *slog.Logger
	metrics      *telemetry.Metrics
	mu           sync.Mutex
	buildMu      sync.Mutex
	running      bool
}

// NewServer creates a new development server. Dev builds always use build
// mode so edits are served from the static directory in place.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := options.Metrics
	if metrics == nil {
		metrics = telemetry.Discard()
	}

	if cfg.IsPublish() {
		logger.Info("dev server builds in build mode; build.mode=publish applies to assetkit build and publish")
	}
	builder, err := build.New(cfg, build.Options{
		Mode:    config.ModeBuild,
		Force:   true,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, err
	}

	watcher := NewWatcher(WatcherConfig{
		Paths:    CollectWatchPaths(cfg),
		Ignore:   IgnorePatterns(cfg),
		Debounce: cfg.DebounceDuration(),
		Logger:   logger,
	})

	var reloadServer *ReloadServer
	if cfg.Dev.HotReload {
		reloadServer = NewReloadServer(logger)
	}

	return &Server{
		config:       cfg,
		options:      options,
		builder:      builder,
		watcher:      watcher,
		reloadServer: reloadServer,
		logger:       logger,
		metrics:      metrics,
	}, nil
}

// Handler returns the HTTP handler of the dev server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(s.logger))
	if s.reloadEnabled() {
		r.Get(ReloadPath, s.reloadServer.HandleWebSocket)
		r.Get(ClientPath, s.reloadServer.ServeClient)
	}
	r.Handle("/*", http.HandlerFunc(s.serveStatic))
	return r
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	h := s.handler.Load()
	if h == nil {
		http.Error(w, "no successful build yet", http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}

// Rebuild runs a build and, on success, swaps in a handler for the new
// manifest. On failure the previous handler keeps serving.
func (s *Server) Rebuild(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	result, err := s.builder.Build(ctx)
	if s.options.OnBuildComplete != nil {
		s.options.OnBuildComplete(result, err)
	}
	if err != nil {
		return err
	}

	s.handler.Store(static.New(result.Manifest,
		static.WithRoot(filepath.Dir(result.ManifestPath)),
		static.WithPrefix(s.config.Static.BasePath),
		static.WithMetrics(s.metrics),
		static.WithLogger(s.logger),
	))
	return nil
}

// Start builds, starts watching and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Rebuild(ctx); err != nil {
		s.logger.Error("initial build failed", "error", err)
		s.notifyError(err)
	}

	s.watcher.OnChange(func(changes []Change) {
		s.handleChanges(ctx, changes)
	})
	go func() {
		if err := s.watcher.Start(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("watcher stopped", "error", err)
		}
	}()

	s.httpServer = &http.Server{
		Addr:              s.config.DevAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("dev server running", "url", s.config.DevURL(), "static", s.config.StaticPath())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop stops the development server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.watcher.Stop()
	if s.reloadServer != nil {
		s.reloadServer.Close()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// handleChanges rebuilds after a batch of changes and tells browsers what
// to reload. Stylesheet-only batches trigger a CSS reload.
func (s *Server) handleChanges(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}

	cssOnly := true
	var stylesheets []string
	for _, change := range changes {
		s.logger.Debug("changed", "path", change.Path, "type", change.Type)
		if change.Type != ChangeCSS {
			cssOnly = false
			continue
		}
		stylesheets = append(stylesheets, s.routeOf(change.Path))
	}

	if err := s.Rebuild(ctx); err != nil {
		s.logger.Error("rebuild failed", "error", err)
		s.notifyError(err)
		return
	}

	if !s.reloadEnabled() {
		return
	}
	s.reloadServer.ClearError()
	if cssOnly {
		s.reloadServer.NotifyCSS(stylesheets)
	} else {
		s.reloadServer.NotifyReload()
	}
	if s.options.OnReload != nil {
		s.options.OnReload(s.reloadServer.ClientCount())
	}
}

func (s *Server) notifyError(err error) {
	if !s.reloadEnabled() {
		return
	}
	msg := err.Error()
	if e, ok := errors.As(err); ok {
		msg = e.FormatCompact()
	}
	s.reloadServer.NotifyError(msg)
}

func (s *Server) reloadEnabled() bool {
	return s.reloadServer != nil
}

// routeOf maps a changed file to its slash path under the static directory.
func (s *Server) routeOf(file string) string {
	rel, err := filepath.Rel(s.config.StaticPath(), file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	return filepath.ToSlash(rel)
}

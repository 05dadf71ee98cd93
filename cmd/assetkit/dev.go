package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/assetkit/internal/build"
	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/dev"
)

func devCmd(global *globalFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with hot reload.

The dev server watches the static directory, rebuilds the manifest
on change and refreshes connected browsers. Pages opt in to hot
reload with:

  <script src="/_assetkit/client.js"></script>

Examples:
  assetkit dev
  assetkit dev --port=8080
  assetkit dev --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
			}
			return runDev(cfg, global)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from "+config.ConfigFileName+")")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from "+config.ConfigFileName+")")

	return cmd
}

func runDev(cfg *config.Config, global *globalFlags) error {
	server, err := dev.NewServer(dev.ServerOptions{
		Config: cfg,
		Logger: global.logger(),
		OnBuildComplete: func(result *build.Result, err error) {
			if err == nil {
				success("Built %d endpoints in %s", result.Manifest.Len(), result.Duration.Round(time.Millisecond))
			}
		},
		OnReload: func(clients int) {
			if clients > 0 {
				success("Reloaded %d browsers", clients)
			}
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info("Serving %s at %s", cfg.Static.Dir, cfg.DevURL())
	return server.Start(ctx)
}

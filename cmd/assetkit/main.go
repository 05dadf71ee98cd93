package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

func main() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		errors.SetColor(false)
	}
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "assetkit",
		Short: "Fingerprint, compress and serve static web assets",
		Long: `assetkit turns a directory of static files into a deterministic
endpoint manifest: every URL a file is reachable at, the response
headers to send, and which compressed variant to pick for a client.

  • Content fingerprints in file names for immutable caching
  • gzip and brotli variants negotiated by Accept-Encoding
  • Build and publish layouts from the same sources
  • Development server with hot reload
  • Upload to S3-compatible storage`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to "+config.ConfigFileName+" (default: search upward from the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		initCmd(),
		explainCmd(),
		buildCmd(flags),
		devCmd(flags),
		serveCmd(flags),
		publishCmd(flags),
		routesCmd(flags),
		fingerprintCmd(),
		versionCmd(),
	)
	return rootCmd
}

// logger returns the process logger for the flags.
func (f *globalFlags) logger() *slog.Logger {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the project configuration.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	if f.configPath != "" {
		return config.LoadFile(f.configPath)
	}
	return config.LoadFromWorkingDir()
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

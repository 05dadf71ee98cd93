package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/assetkit/internal/build"
	"github.com/vango-dev/assetkit/internal/config"
)

type buildFlags struct {
	mode        string
	output      string
	force       bool
	dryRun      bool
	clean       bool
	concurrency int
}

func buildCmd(global *globalFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the endpoint manifest",
		Long: `Build the endpoint manifest for the static directory.

This command:
  • Fingerprints every asset
  • Writes gzip and brotli variants
  • Resolves routes, headers and content negotiation
  • Writes the manifest (skipped when nothing changed)
  • In publish mode, copies files under public/

Examples:
  assetkit build
  assetkit build --mode=publish
  assetkit build --dry-run --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "", "Build mode: build or publish (default from "+config.ConfigFileName+")")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory (default from "+config.ConfigFileName+")")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Write the manifest even when unchanged")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Compute the manifest without writing it")
	cmd.Flags().BoolVar(&flags.clean, "clean", false, "Clean output directory before build")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "Parallel hashing and compression (default: GOMAXPROCS)")

	return cmd
}

func runBuild(global *globalFlags, flags *buildFlags) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	if flags.output != "" {
		cfg.Build.Output = flags.output
	}

	builder, err := build.New(cfg, build.Options{
		Mode:        flags.mode,
		Force:       flags.force,
		DryRun:      flags.dryRun,
		Concurrency: flags.concurrency,
		Logger:      global.logger(),
		OnProgress: func(step string) {
			info("%s", step)
		},
	})
	if err != nil {
		return err
	}

	if flags.clean {
		info("Cleaning output directory...")
		if err := builder.Clean(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	switch {
	case flags.dryRun:
		success("Dry run complete in %s", result.Duration.Round(time.Millisecond))
	case result.Unchanged:
		success("Manifest unchanged (%s)", result.Duration.Round(time.Millisecond))
	default:
		success("Build complete in %s", result.Duration.Round(time.Millisecond))
	}
	fmt.Println()
	info("Assets:     %d", result.Assets)
	info("Compressed: %d", result.Compressed)
	info("Endpoints:  %d", result.Manifest.Len())
	info("Stamp:      %s", result.Stamp[:16])
	if !flags.dryRun {
		info("Manifest:   %s", relativeToWD(result.ManifestPath))
	}
	if result.Public != "" {
		info("Public:     %s", relativeToWD(result.Public))
	}
	fmt.Println()

	return nil
}

// relativeToWD shortens p for display.
func relativeToWD(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	if rel, err := filepath.Rel(wd, p); err == nil && !filepath.IsAbs(rel) && len(rel) < len(p) {
		return rel
	}
	return p
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

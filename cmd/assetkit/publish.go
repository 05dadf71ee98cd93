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
	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/publish"
	"github.com/vango-dev/assetkit/pkg/assets"
)

type publishFlags struct {
	bucket  string
	prefix  string
	skip    bool
	dryRun  bool
	workers int
}

func publishCmd(global *globalFlags) *cobra.Command {
	flags := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Build in publish mode and upload to S3",
		Long: `Build the manifest in publish mode and upload it to S3.

Each route becomes one object with the route's Content-Type,
Cache-Control and Content-Encoding. The manifest is uploaded last.
Credentials come from AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.

Examples:
  assetkit publish
  assetkit publish --bucket=my-assets --prefix=v2
  assetkit publish --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(global, flags)
		},
	}

	cmd.Flags().StringVar(&flags.bucket, "bucket", "", "Target bucket (default from "+config.ConfigFileName+")")
	cmd.Flags().StringVar(&flags.prefix, "prefix", "", "Key prefix (default from "+config.ConfigFileName+")")
	cmd.Flags().BoolVar(&flags.skip, "skip-build", false, "Upload the existing manifest without building")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List objects without uploading")
	cmd.Flags().IntVar(&flags.workers, "concurrency", publish.DefaultConcurrency, "Parallel uploads")

	return cmd
}

func runPublish(global *globalFlags, flags *publishFlags) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	if flags.bucket != "" {
		cfg.Publish.Bucket = flags.bucket
	}
	if flags.prefix != "" {
		cfg.Publish.Prefix = flags.prefix
	}
	if cfg.Publish.Bucket == "" && !flags.dryRun {
		return errors.New(errors.CodeInvalidConfig).
			WithDetail("No bucket configured").
			WithSuggestion("Set publish.bucket in " + config.ConfigFileName + " or pass --bucket")
	}

	logger := global.logger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !flags.skip {
		builder, err := build.New(cfg, build.Options{
			Mode:   config.ModePublish,
			Logger: logger,
			OnProgress: func(step string) {
				info("%s", step)
			},
		})
		if err != nil {
			return err
		}
		if _, err := builder.Build(ctx); err != nil {
			return err
		}
	}

	manifestPath := cfg.ManifestPath()
	m, err := assets.Load(manifestPath)
	if err != nil {
		return err
	}
	if m.ManifestType != assets.ManifestPublish {
		warn("%s was built in %s mode; its files may not be under public/", filepath.Base(manifestPath), m.ManifestType)
	}

	var store publish.ObjectStore
	if !flags.dryRun {
		store = publish.NewS3Store(publish.NewS3Client(cfg.Publish), cfg.Publish.Bucket)
	}
	publisher := publish.New(store, publish.Options{
		Prefix:       cfg.Publish.Prefix,
		Root:         filepath.Dir(manifestPath),
		ManifestName: cfg.Build.Manifest,
		Concurrency:  flags.workers,
		DryRun:       flags.dryRun,
		Logger:       logger,
	})

	result, err := publisher.Publish(ctx, m)
	if err != nil {
		return err
	}

	fmt.Println()
	if flags.dryRun {
		for _, key := range result.Keys {
			info("%s", key)
		}
		fmt.Println()
		success("Dry run: %d objects", len(result.Keys))
		return nil
	}
	success("Published %d objects (%s) to s3://%s in %s",
		len(result.Keys), formatBytes(result.Bytes), cfg.Publish.Bucket, result.Duration.Round(time.Millisecond))
	return nil
}

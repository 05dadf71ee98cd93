package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/assetkit/internal/config"
	"github.com/vango-dev/assetkit/internal/templates"
)

func initCmd() *cobra.Command {
	var (
		template string
		name     string
		basePath string
		bucket   string
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a new assetkit project",
		Long: `Create an assetkit.json and a starter static directory.

Templates:
  ` + templateList() + `

Examples:
  assetkit init
  assetkit init docs --template=site
  assetkit init --base-path=/static/ --bucket=my-assets`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(abs)
			}

			tmpl, err := templates.Get(template)
			if err != nil {
				return err
			}
			if err := tmpl.Create(abs, templates.Config{
				ProjectName: name,
				BasePath:    basePath,
				Bucket:      bucket,
			}); err != nil {
				return err
			}

			success("Created %s project in %s", tmpl.Name, relativeToWD(abs))
			fmt.Println()
			info("Next steps:")
			if dir != "." {
				info("  cd %s", dir)
			}
			info("  assetkit dev")
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "minimal", "Project template")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name (default: directory name)")
	cmd.Flags().StringVar(&basePath, "base-path", "/", "URL prefix for assets")
	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket for "+config.ConfigFileName)

	return cmd
}

func templateList() string {
	var b strings.Builder
	for i, name := range templates.List() {
		if i > 0 {
			b.WriteString("\n  ")
		}
		tmpl, _ := templates.Get(name)
		fmt.Fprintf(&b, "%-9s %s", name, tmpl.Description)
	}
	return b.String()
}

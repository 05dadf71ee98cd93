package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/assetkit/pkg/assets"
)

func routesCmd(global *globalFlags) *cobra.Command {
	var (
		manifestPath string
		asJSON       bool
		headers      bool
		labels       []string
		prefix       string
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the endpoints of a manifest",
		Long: `Print every endpoint of a built manifest: its route, the selector
that picks it and the file it serves.

Examples:
  assetkit routes
  assetkit routes --headers
  assetkit routes --json --manifest=dist/endpoints.json
  assetkit routes --resolve css/site.css --resolve js/app.js --prefix=/static/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifestPath == "" {
				cfg, err := global.loadConfig()
				if err != nil {
					return err
				}
				manifestPath = cfg.ManifestPath()
			}
			m, err := assets.Load(manifestPath)
			if err != nil {
				return err
			}
			if len(labels) > 0 {
				return printResolved(cmd.OutOrStdout(), assets.NewResolver(m, prefix), labels)
			}
			if asJSON {
				data, err := m.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return printRoutes(cmd.OutOrStdout(), m, headers)
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Manifest to read (default: the project's build output)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the manifest as JSON")
	cmd.Flags().BoolVar(&headers, "headers", false, "Include response headers")
	cmd.Flags().StringArrayVar(&labels, "resolve", nil, "Print the fingerprinted URL for an asset label (repeatable)")
	cmd.Flags().StringVar(&prefix, "prefix", "/", "URL prefix for --resolve")

	return cmd
}

func printRoutes(w io.Writer, m *assets.Manifest, headers bool) error {
	m.Sort()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tSELECTOR\tFILE")
	for _, e := range m.Endpoints {
		selector := e.SelectorKey()
		if selector == "" {
			selector = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Route, selector, e.AssetFile)
		if headers {
			for _, h := range e.ResponseHeaders {
				fmt.Fprintf(tw, "\t\t  %s: %s\n", h.Name, h.Value)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d endpoints, %d routes\n", m.Len(), len(m.Routes()))
	return err
}

// printResolved writes one "label  url" line per label.
func printResolved(w io.Writer, r assets.Resolver, labels []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, label := range labels {
		fmt.Fprintf(tw, "%s\t%s\n", label, r.Asset(label))
	}
	return tw.Flush()
}

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/assetkit/internal/errors"
)

func explainCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe an error code",
		Long: `Describe an assetkit error code, or list every code when none is given.

Examples:
  assetkit explain
  assetkit explain E201
  assetkit explain e206 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return listCodes(out)
			}

			code := strings.ToUpper(args[0])
			if _, ok := errors.GetTemplate(code); !ok {
				return errors.Newf(errors.CategoryCLI, "unknown error code %s", code)
			}
			e := errors.New(code)
			if asJSON {
				_, err := fmt.Fprintln(out, e.FormatJSON())
				return err
			}
			_, err := fmt.Fprintf(out, "%s  %s\ncategory: %s\ndocs:     %s\n", e.Code, e.Message, e.Category, e.DocURL)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the code as JSON")
	return cmd
}

func listCodes(w io.Writer) error {
	codes := errors.GetAllCodes()
	slices.Sort(codes)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tCATEGORY\tMESSAGE")
	for _, code := range codes {
		t, _ := errors.GetTemplate(code)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", code, t.Category, t.Message)
	}
	return tw.Flush()
}

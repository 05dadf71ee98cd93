package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/assetkit/internal/errors"
	"github.com/vango-dev/assetkit/internal/fingerprint"
	"github.com/vango-dev/assetkit/pkg/pathpattern"
)

func fingerprintCmd() *cobra.Command {
	var expression string

	cmd := &cobra.Command{
		Use:   "fingerprint <file>...",
		Short: "Print the fingerprint and integrity of files",
		Long: `Print the fingerprint token, the subresource integrity and the
fingerprinted file name of each file.

Examples:
  assetkit fingerprint wwwroot/site.css
  assetkit fingerprint --expression='#[-{fingerprint}]!' app.js`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			computer, err := fingerprint.New([]fingerprint.Pattern{{
				Name:       "cli",
				Glob:       "*",
				Expression: expression,
			}})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tFINGERPRINT\tINTEGRITY\tNAME")
			for _, file := range args {
				f, err := os.Open(file)
				if err != nil {
					return errors.New(errors.CodeBuildFailed).WithMeta("file", file).Wrap(err)
				}
				result, err := fingerprint.ComputeReader(f)
				f.Close()
				if err != nil {
					return errors.New(errors.CodeBuildFailed).WithMeta("file", file).Wrap(err)
				}

				name, err := fingerprintedName(computer, file, result.Token)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", file, result.Token, result.SRI(), name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&expression, "expression", "e", fingerprint.DefaultExpression, "Expression spliced into the file name")

	return cmd
}

// fingerprintedName returns the file name of file with every fingerprint
// segment filled in.
func fingerprintedName(c *fingerprint.Computer, file, token string) (string, error) {
	base := filepath.Base(file)
	template, err := c.AppendFingerprintPattern(base, file)
	if err != nil {
		return "", err
	}
	pattern, err := pathpattern.Parse(template, file)
	if err != nil {
		return "", err
	}
	name, _, err := pattern.ReplaceTokens(pathpattern.Tokens{fingerprint.TokenName: token}, nil)
	return name, err
}

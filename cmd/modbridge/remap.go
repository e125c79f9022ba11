// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/modbridge/modbridge/internal/scan"
)

func newRemapCommand(app *App, global *globalOptions) *cobra.Command {
	var over remapOverrides

	cmd := &cobra.Command{
		Use:   "remap <jar>...",
		Short: "Remap individual mod archives",
		Long: `Remap the given archives into the cache directory.

Outputs are reused while the input archive is unchanged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := app.newSession(ctx, global, over)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			results := make([]scan.Result, 0, len(args))
			for _, input := range args {
				if err := ctx.Err(); err != nil {
					return err
				}
				res, err := sess.remapper.Remap(ctx, input)
				r := scan.NewResult(input, res, err)
				renderResult(out, r, global.verbose)
				results = append(results, r)
			}
			if len(results) > 1 {
				renderSummary(out, results)
			}

			return failedError(results)
		},
	}

	addRemapFlags(cmd, &over)

	return cmd
}

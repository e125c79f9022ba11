// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modbridge/modbridge/internal/scan"
	"github.com/modbridge/modbridge/internal/watch"
)

// addRemapFlags registers the flags shared by scan and remap.
func addRemapFlags(cmd *cobra.Command, over *remapOverrides) {
	cmd.Flags().StringVar(&over.mappings, "mappings", "", "Tiny mappings file (overrides 'mappings')")
	cmd.Flags().StringVar(&over.cacheDir, "cache-dir", "", "directory for remapped archives (default <mods_dir>/connector)")
	cmd.Flags().StringVarP(&over.target, "target", "t", "", "namespace to remap to (overrides 'target_namespace')")
	cmd.Flags().StringVar(&over.gameVersion, "game-version", "", "game version appended to remapped archive names")
}

func newScanCommand(app *App, global *globalOptions) *cobra.Command {
	var over remapOverrides

	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Remap every mod archive in a directory",
		Long: `Remap every .jar archive in the mods directory.

Archives without a mod descriptor are skipped. A failing archive does not
stop the scan; the command exits non-zero when any archive failed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, app, global, over, args)
		},
	}

	addRemapFlags(cmd, &over)
	cmd.Flags().BoolVarP(&over.watch, "watch", "w", false, "keep running and rescan when archives change")
	cmd.Flags().IntVarP(&over.workers, "workers", "j", 0, "concurrent remaps (default one per CPU)")
	cmd.Flags().StringSliceVarP(&over.exclude, "exclude", "x", nil, "glob of archive names to skip (repeatable)")

	return cmd
}

func runScan(cmd *cobra.Command, app *App, global *globalOptions, over remapOverrides, args []string) error {
	ctx := cmd.Context()
	sess, err := app.newSession(ctx, global, over)
	if err != nil {
		return err
	}

	dir := sess.cfg.ModsDir
	if len(args) == 1 {
		dir = args[0]
	}

	scanner, err := scan.New(sess.remapper, scan.Options{
		Exclude: sess.cfg.Exclude,
		Workers: sess.cfg.Workers,
	}, sess.logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	scanOnce := func(ctx context.Context) ([]scan.Result, error) {
		results, err := scanner.Scan(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		for _, r := range results {
			renderResult(out, r, global.verbose)
		}
		renderSummary(out, results)
		return results, nil
	}

	results, err := scanOnce(ctx)
	if err != nil {
		return err
	}
	if !over.watch {
		return failedError(results)
	}

	w, err := watch.New(watch.Config{
		Dir:     dir,
		Exclude: sess.cfg.Exclude,
		Logger:  sess.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintf(out, "\n%s %s\n", SubtitleStyle.Render("changed:"), strings.Join(changed, ", "))
			_, err := scanOnce(ctx)
			return err
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, SubtitleStyle.Render("Watching "+dir+" for changes (Ctrl+C to stop)"))
	return w.Run(ctx)
}

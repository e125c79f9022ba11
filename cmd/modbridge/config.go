// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modbridge/modbridge/internal/config"
	"github.com/modbridge/modbridge/internal/issue"
)

// newConfigCommand creates the `modbridge config` command tree.
func newConfigCommand(app *App, global *globalOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modbridge configuration",
		Long: `Manage modbridge configuration.

Configuration is stored in:
  - Linux: ~/.config/modbridge/config.cue
  - macOS: ~/Library/Application Support/modbridge/config.cue
  - Windows: %APPDATA%\modbridge\config.cue

Every key can be overridden with a MODBRIDGE_<KEY> environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, global, cmd.OutOrStdout())
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: global.configPath})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(loaded.Config))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, global *globalOptions, w io.Writer) error {
	loaded, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: global.configPath})
	if err != nil {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, global.verbose))
		renderIssue(app.stderr, issueOf(err, issue.ConfigLoadFailedId))
		return &ExitError{Code: 1, Err: err}
	}
	cfg := loaded.Config

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	source := SubtitleStyle.Render("(using defaults)")
	if loaded.Path != "" {
		source = loaded.Path
	}
	fmt.Fprintf(w, "%s: %s\n\n", KeyStyle.Render("Config file"), source)

	cacheDir := cfg.ResolvedCacheDir()
	if cfg.CacheDir == "" {
		cacheDir += " " + SubtitleStyle.Render("(default)")
	}

	rows := []struct{ key, value string }{
		{"mods_dir", cfg.ModsDir},
		{"cache_dir", cacheDir},
		{"mappings", orUnset(cfg.Mappings)},
		{"source_namespace", cfg.SourceNamespace.String()},
		{"target_namespace", cfg.TargetNamespace.String()},
		{"refmap_namespace", cfg.RefmapNamespace.String()},
		{"game_version", orUnset(cfg.GameVersion)},
		{"workers", workersValue(cfg.Workers)},
		{"exclude", orUnset(strings.Join(cfg.Exclude, ", "))},
		{"log_level", cfg.LogLevel.String()},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render(row.key), SuccessStyle.Render(row.value))
	}

	return nil
}

func orUnset(v string) string {
	if v == "" {
		return SubtitleStyle.Render("(not set)")
	}
	return v
}

func workersValue(n int) string {
	if n == 0 {
		return "0 " + SubtitleStyle.Render("(one per CPU)")
	}
	return strconv.Itoa(n)
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	global := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "modbridge",
		Short: "Remap mod archives between mapping namespaces",
		Long: TitleStyle.Render("modbridge") + SubtitleStyle.Render(" - remap mod archives between mapping namespaces") + `

modbridge rewrites the class files, mixin configs, reference maps and
access wideners of mod archives from the namespace they were built
against to the namespace of the running game. Remapped archives are
cached next to the mods and reused until the input changes.

` + SubtitleStyle.Render("Examples:") + `
  modbridge scan                      Remap every archive in the mods directory
  modbridge scan ./mods -x 'opt*.jar' Skip archives matching a glob
  modbridge remap ./mods/foo.jar      Remap a single archive
  modbridge config show               Show the effective configuration
  modbridge explain                   List the issue catalog`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&global.configPath, "config", "", "config file (default is $HOME/.config/modbridge/config.cue)")

	rootCmd.AddCommand(newScanCommand(app, global))
	rootCmd.AddCommand(newRemapCommand(app, global))
	rootCmd.AddCommand(newConfigCommand(app, global))
	rootCmd.AddCommand(newExplainCommand(app))

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the resulting status. It is called by main.main.
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modbridge/modbridge/internal/issue"
)

func newExplainCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "explain [issue-id]",
		Short: "Describe a problem from the issue catalog",
		Long: `Without an argument, list the catalog of known problems.
With an issue number, print its description and fixes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, entry := range issue.Values() {
					fmt.Fprintf(out, "%s %s\n", KeyStyle.Render(fmt.Sprintf("%3d", entry.Id())), issueTitle(entry))
				}
				return nil
			}

			n, err := strconv.Atoi(args[0])
			if err != nil || issue.Get(issue.Id(n)) == nil {
				return fmt.Errorf("unknown issue %q; run 'modbridge explain' for the list", args[0])
			}
			renderIssue(out, issue.Id(n))
			return nil
		},
	}
}

// issueTitle is the first heading of the entry's Markdown.
func issueTitle(entry *issue.Issue) string {
	for line := range strings.Lines(string(entry.MarkdownMsg())) {
		if title, ok := strings.CutPrefix(strings.TrimSpace(line), "#"); ok {
			return strings.TrimSpace(strings.TrimLeft(title, "#"))
		}
	}
	return ""
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/modbridge/modbridge/internal/issue"
	"github.com/modbridge/modbridge/internal/remap"
	"github.com/modbridge/modbridge/internal/scan"
	"github.com/modbridge/modbridge/internal/transform"
)

// issueStyle is the glamour style used for catalog entries.
const issueStyle = "dark"

// failure is the user-facing breakdown of a remap error.
type failure struct {
	stage string
	entry string
	cause error
}

// describeFailure extracts the step, archive entry and cause of err.
func describeFailure(err error) failure {
	f := failure{cause: err}
	var remapErr *remap.Error
	if errors.As(err, &remapErr) {
		f.stage = string(remapErr.Stage)
		f.cause = remapErr.Err
	}
	var stageErr *transform.StageError
	if errors.As(err, &stageErr) {
		f.stage += "/" + string(stageErr.Stage)
		f.entry = stageErr.Entry
		f.cause = stageErr.Cause
	}
	return f
}

func statusLabel(s scan.Status) string {
	label := statusLabelStyle.Render(string(s))
	switch s {
	case scan.StatusRemapped:
		return SuccessStyle.Render(label)
	case scan.StatusSkipped:
		return WarningStyle.Render(label)
	default:
		return ErrorStyle.Render(label)
	}
}

// renderResult prints the outcome for one archive. Failures list the stage
// and cause; verbose output adds the error chain and the catalog entry.
func renderResult(w io.Writer, r scan.Result, verbose bool) {
	name := filepath.Base(r.Input)
	switch r.Status {
	case scan.StatusRemapped:
		fmt.Fprintf(w, "%s %s %s %s\n", statusLabel(r.Status), name,
			SubtitleStyle.Render("->"), KeyStyle.Render(r.Remap.Output))
	case scan.StatusSkipped:
		fmt.Fprintf(w, "%s %s %s\n", statusLabel(r.Status), name,
			SubtitleStyle.Render("(no mod descriptor)"))
	default:
		fmt.Fprintf(w, "%s %s\n", statusLabel(r.Status), name)
		f := describeFailure(r.Err)
		if f.stage != "" {
			fmt.Fprintf(w, "    %s %s\n", VerboseStyle.Render("stage:"), f.stage)
		}
		if f.entry != "" {
			fmt.Fprintf(w, "    %s %s\n", VerboseStyle.Render("entry:"), f.entry)
		}
		fmt.Fprintf(w, "    %s %v\n", VerboseStyle.Render("cause:"), f.cause)
		if verbose {
			renderVerbose(w, r)
		}
	}
}

func renderVerbose(w io.Writer, r scan.Result) {
	if ae := issue.Actionable(r.Err, "remap", r.Input); ae != nil {
		fmt.Fprintln(w, VerboseStyle.Render(ae.Format(true)))
	}
	renderIssue(w, r.Issue)
}

// renderIssue prints the catalog entry for id, if any.
func renderIssue(w io.Writer, id issue.Id) {
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(issueStyle)
	if err != nil {
		// Fall back to the raw Markdown.
		fmt.Fprintln(w, string(entry.MarkdownMsg()))
		return
	}
	fmt.Fprint(w, rendered)
}

// renderSummary prints per-status counts.
func renderSummary(w io.Writer, results []scan.Result) {
	counts := scan.Summary(results)
	fmt.Fprintf(w, "\n%s %s, %s, %s\n",
		TitleStyle.Render(fmt.Sprintf("%d archives:", len(results))),
		SuccessStyle.Render(fmt.Sprintf("%d remapped", counts[scan.StatusRemapped])),
		WarningStyle.Render(fmt.Sprintf("%d skipped", counts[scan.StatusSkipped])),
		ErrorStyle.Render(fmt.Sprintf("%d failed", counts[scan.StatusFailed])),
	)
}

// failedError turns failed results into the command's exit status.
func failedError(results []scan.Result) error {
	failed := scan.Summary(results)[scan.StatusFailed]
	if failed == 0 {
		return nil
	}
	return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d archives failed to remap", failed, len(results))}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// issueOf returns the catalog entry attached to err, or fallback.
func issueOf(err error, fallback issue.Id) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}
	return fallback
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Adaptive palette: the first value is used on light terminals.
var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#57534E", Dark: "#A8A29E"}
	colorRemap   = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	colorFailure = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorSkip    = lipgloss.AdaptiveColor{Light: "#A16207", Dark: "#FACC15"}
	colorKey     = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#93C5FD"}
)

var (
	// TitleStyle marks headings and summary totals.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	// SubtitleStyle is for secondary text such as "(using defaults)".
	SubtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)
	// SuccessStyle marks remapped archives.
	SuccessStyle = lipgloss.NewStyle().Foreground(colorRemap)
	// ErrorStyle marks failed archives and error prefixes.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFailure)
	// WarningStyle marks skipped archives.
	WarningStyle = lipgloss.NewStyle().Foreground(colorSkip)
	// KeyStyle is for config keys, paths and command names.
	KeyStyle = lipgloss.NewStyle().Foreground(colorKey)
	// VerboseStyle is for error chains and other --verbose detail.
	VerboseStyle = lipgloss.NewStyle().Faint(true)

	statusLabelStyle = lipgloss.NewStyle().Width(10)
)

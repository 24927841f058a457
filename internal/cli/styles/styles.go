// Package styles holds the lipgloss styles shared by the CLI's
// human-readable output.
package styles

import (
	"charm.land/lipgloss/v2"
)

var (
	// Card styles
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			Width(80)

	// Text styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// Status styles
	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))
)

// Package watch implements the `pushgate watch` TUI: a live view of server
// health and the most recent dispatch output.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes styling for the watch TUI.
type Theme struct {
	Title    lipgloss.Style
	Healthy  lipgloss.Style
	Degraded lipgloss.Style
	Label    lipgloss.Style
	Dim      lipgloss.Style
	Section  lipgloss.Style
	ErrText  lipgloss.Style
}

func NewDefaultTheme() Theme {
	return Theme{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#874BFD")),
		Healthy:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Degraded: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Label:    lipgloss.NewStyle().Bold(true),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Section:  lipgloss.NewStyle().Bold(true).Underline(true),
		ErrText:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
	}
}

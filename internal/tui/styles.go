package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary  = lipgloss.Color("#7C3AED")
	colorMuted    = lipgloss.Color("#6C7086")
	colorBorder   = lipgloss.Color("#45475A")
	colorPositive = lipgloss.Color("#A6E3A1")
	colorNegative = lipgloss.Color("#F38BA8")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	labelStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle = lipgloss.NewStyle().Foreground(colorNegative)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

// sentimentStyle colours a local sentiment label.
func sentimentStyle(label string) lipgloss.Style {
	switch label {
	case "positive":
		return lipgloss.NewStyle().Foreground(colorPositive)
	case "negative":
		return lipgloss.NewStyle().Foreground(colorNegative)
	default:
		return mutedStyle
	}
}

package ui

import "github.com/charmbracelet/lipgloss"

// Color palette shared by every panel.
var (
	cyan      = lipgloss.Color("#7DD3FC")
	mintGreen = lipgloss.Color("#A8E6CF")
	amber     = lipgloss.Color("#FDE68A")
	salmon    = lipgloss.Color("#FFB3BA")
	mutedGray = lipgloss.Color("#6B7280")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(cyan).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	bulletStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	hintStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorGold  = lipgloss.Color("178")
	ColorGreen = lipgloss.Color("42")
	ColorRed   = lipgloss.Color("196")
	ColorGray  = lipgloss.Color("245")
	ColorBlue  = lipgloss.Color("39")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGold)

	statusLiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGreen)

	statusPendingStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorBlue)

	countdownStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorRed)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGold).
			Underline(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)
)

package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#E8A87C")
	secondaryColor = lipgloss.Color("#85DCB0")
	errorColor     = lipgloss.Color("#E85D75")
	mutedColor     = lipgloss.Color("#6B7280")
	textColor      = lipgloss.Color("#F3F4F6")
	dimTextColor   = lipgloss.Color("#9CA3AF")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Italic(true)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(secondaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(mutedColor).
			MarginTop(1).
			MarginBottom(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	activeStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Bold(true)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(dimTextColor).
			Width(12)

	statValueStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor).
			Padding(1, 2).
			MarginTop(1)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true).
			MarginTop(2)

	iconDisc    = "💿"
	iconPending = "○"
	iconSuccess = "✓"
	iconError   = "✗"
	iconArrow   = "→"
)

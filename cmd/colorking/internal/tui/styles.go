package tui

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	colorMuted   = lipgloss.Color("8")
	colorAccent  = lipgloss.Color("4")
	colorError   = lipgloss.Color("1")
	colorSuccess = lipgloss.Color("2")
	colorWarning = lipgloss.Color("3")
	colorMagenta = lipgloss.Color("5")
)

// Centralized style definitions for the TUI.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorMagenta)
	stepStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	stepCurStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headingStyle = lipgloss.NewStyle().Bold(true)

	selStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dimStyle = lipgloss.NewStyle().Foreground(colorMuted)

	spinnerStyle = lipgloss.NewStyle().Foreground(colorMagenta)

	infoStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	retryStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(colorWarning)
	alertStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(colorError)

	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(0, 1)
)

package main

import "github.com/charmbracelet/lipgloss"

// Styling for the status output.
var (
	styleTitle = lipgloss.NewStyle().Bold(true)
	styleKey   = lipgloss.NewStyle().Faint(true).Width(12)

	styleOK       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")) // green
	styleWarn     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")) // yellow
	styleBad      = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")) // red
	styleDisabled = lipgloss.NewStyle().Faint(true)
)

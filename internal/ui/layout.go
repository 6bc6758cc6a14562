package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout joins the map panel and control panel horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, mapPanel, controlPanel, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, controlPanel)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scanmap.klederson.com/internal/config"
)

// RenderMenuBar renders the top menu bar. keys is the rendered short help.
func RenderMenuBar(width int, source string, polling bool, keys string) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	status := ""
	if polling {
		status = StyleStatusPolling.Render("POLLING")
	} else {
		status = StyleStatusPaused.Render("PAUSED")
	}

	sourceInfo := StyleMenuLabel.Render(fmt.Sprintf("Source: %s", source))

	left := StyleMenuKey.Render(title) + "  " + keys
	right := status + "  " + sourceInfo + " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
)

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, polling bool, state string, locations int, refresh time.Duration, view orb.Bound) string {
	status := ""
	if polling {
		status = StyleStatusPolling.Render("[POLLING]")
	} else {
		status = StyleStatusPaused.Render("[PAUSED]")
	}

	info := fmt.Sprintf(" Locations: %d  Refresh: %ds  Cycle: %s  View: %.4f,%.4f .. %.4f,%.4f",
		locations, int(refresh/time.Second), state,
		view.Min.Lat(), view.Min.Lon(), view.Max.Lat(), view.Max.Lon())

	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := width - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}

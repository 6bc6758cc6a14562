package ui

import (
	"fmt"
	"strings"
	"time"

	"scanmap.klederson.com/internal/config"
	"scanmap.klederson.com/internal/mapview"
)

// ControlState is everything the control panel shows.
type ControlState struct {
	Overlay    mapview.Overlay
	Follow     mapview.Follow
	HeatRadius int
	Refresh    time.Duration
	Running    bool
	Busy       bool
	Spinner    string // rendered busy indicator
	Info       mapview.Info
	History    []float64 // location counts, oldest first
	LastError  string
}

// RenderControlPanel renders the right-hand panel: layers, info, settings and
// refresh sections. Output is clamped to exactly height lines.
func RenderControlPanel(s ControlState, width, height int) string {
	innerW := width - 4
	if innerW < 12 {
		innerW = 12
	}
	innerH := height - 2
	if innerH < 1 {
		innerH = 1
	}

	sep := StyleHelp.Render(strings.Repeat("-", innerW))

	lines := []string{
		StylePanelTitle.Render("LAYERS"),
		checkbox(s.Overlay.ShowLast, "1", "Last location"),
		checkbox(s.Overlay.ShowLocations, "2", "Locations"),
		checkbox(s.Overlay.ShowHeatmap, "3", "Location heatmap"),
		sep,
		StylePanelTitle.Render("INFO"),
		field("Locations", s.Info.Locations),
		field("Last", s.Info.LastLocation),
	}

	if len(s.History) > 0 {
		lines = append(lines, "  "+StyleHelp.Render(renderSparkline(s.History, innerW-2)))
	}
	if s.LastError != "" {
		lines = append(lines, "  "+StyleError.Render(truncRaw(s.LastError, innerW-2)))
	}

	lines = append(lines,
		sep,
		StylePanelTitle.Render("SETTINGS"),
		checkbox(s.Follow.FollowLast, "l", "Zoom to last fix"),
		checkbox(s.Follow.FollowLocations, "f", "Zoom to locations"),
		"  "+StyleLabel.Render("Heat radius [ ]"),
		"  "+slider(s.HeatRadius, config.HeatRadiusMin, config.HeatRadiusMax, innerW-8, s.Overlay.ShowHeatmap),
		sep,
		StylePanelTitle.Render("REFRESH"),
		"  "+buttons(s.Running)+"  "+busy(s),
		"  "+StyleLabel.Render("Interval - +"),
		"  "+slider(int(s.Refresh/time.Second), int(config.RefreshMin/time.Second), int(config.RefreshMax/time.Second), innerW-8, true)+StyleLabel.Render("s"),
	)

	if len(lines) > innerH {
		lines = lines[:innerH]
	}
	for len(lines) < innerH {
		lines = append(lines, "")
	}

	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(lines, "\n"))

	// lipgloss Height() only sets a minimum; it won't truncate overflow.
	outLines := strings.Split(rendered, "\n")
	if len(outLines) > height {
		outLines = outLines[:height]
	}
	for len(outLines) < height {
		outLines = append(outLines, "")
	}
	return strings.Join(outLines, "\n")
}

func checkbox(on bool, key, label string) string {
	if on {
		return StyleCheckOn.Render(fmt.Sprintf("  [x] %s %s", key, label))
	}
	return StyleCheckOff.Render(fmt.Sprintf("  [ ] %s %s", key, label))
}

func field(label, value string) string {
	return StyleLabel.Render(fmt.Sprintf("  %-10s", label)) + StyleValue.Render(value)
}

func buttons(running bool) string {
	play, pause := StyleButtonOff, StyleButtonOn
	if !running {
		play, pause = StyleButtonOn, StyleButtonOff
	}
	return play.Render("[p Play]") + " " + pause.Render("[space Pause]")
}

func busy(s ControlState) string {
	if !s.Busy {
		return ""
	}
	return StyleSpinner.Render(s.Spinner)
}

func slider(value, lo, hi, width int, enabled bool) string {
	if width < 5 {
		width = 5
	}
	pos := 0
	if hi > lo {
		pos = (value - lo) * (width - 1) / (hi - lo)
	}
	if pos < 0 {
		pos = 0
	}
	if pos > width-1 {
		pos = width - 1
	}
	bar := strings.Repeat("=", pos) + "|" + strings.Repeat("-", width-1-pos)
	text := fmt.Sprintf("%s %d", bar, value)
	if !enabled {
		return StyleHelp.Render(text)
	}
	return StyleValue.Render(text)
}

func renderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	rng := maxV - minV
	if rng < 1 {
		rng = 1
	}

	// Take last `width` values
	start := 0
	if len(values) > width {
		start = len(values) - width
	}

	var sb strings.Builder
	for i := start; i < len(values); i++ {
		idx := int((values[i] - minV) / rng * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		sb.WriteByte(chars[idx])
	}

	return sb.String()
}

// truncRaw truncates a raw string to at most w bytes.
func truncRaw(s string, w int) string {
	if w < 0 {
		return ""
	}
	if len(s) > w {
		return s[:w]
	}
	return s
}

package ui

// RenderMapPanel wraps map content with a styled border.
// The map itself is rasterised by mapview to avoid import cycles.
func RenderMapPanel(width, height int, mapContent, legend string) string {
	content := mapContent + "\n" + legend
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(content)
}

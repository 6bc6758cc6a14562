package mapview

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scanmap.klederson.com/internal/config"
)

var (
	colorGrid     = lipgloss.Color("#004A0A")
	colorLocation = lipgloss.Color("#00FFAA")
	colorLast     = lipgloss.Color("#FF3300")
	colorLegend   = lipgloss.Color("#008F11")

	styleGrid     = lipgloss.NewStyle().Foreground(colorGrid)
	styleLocation = lipgloss.NewStyle().Foreground(colorLocation).Bold(true)
	styleLast     = lipgloss.NewStyle().Foreground(colorLast).Bold(true)
	styleLegend   = lipgloss.NewStyle().Foreground(colorLegend)

	heatRamp = []struct {
		min   float64
		ch    rune
		color lipgloss.Color
	}{
		{0.75, '█', lipgloss.Color("#FF3300")},
		{0.50, '▓', lipgloss.Color("#FF8800")},
		{0.25, '▒', lipgloss.Color("#FFCC00")},
		{0.05, '░', lipgloss.Color("#AAFF00")},
	}
)

// CellKind is what occupies a map cell, in increasing draw priority.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellGrid
	CellHeat
	CellLocation
	CellLast
)

// Cell is one character of the rasterised map.
type Cell struct {
	Kind CellKind
	Ch   rune
	Heat float64 // normalised density [0, 1]
}

// Raster draws the attached layers of m into a width x height grid.
func Raster(m *Map, width, height int) [][]Cell {
	if width < 2 || height < 2 {
		return nil
	}

	grid := make([][]Cell, height)
	for row := range grid {
		grid[row] = make([]Cell, width)
		for col := range grid[row] {
			grid[row][col] = backgroundCell(col, row)
		}
	}

	pr := newProjector(m.viewport, width, height)

	if m.heatmap.Attached && len(m.heatmap.Data) > 0 {
		density := heatDensity(m.heatmap, pr)
		for row := range density {
			for col, v := range density[row] {
				if ch, ok := heatChar(v); ok {
					grid[row][col] = Cell{Kind: CellHeat, Ch: ch, Heat: v}
				}
			}
		}
	}

	for _, mk := range m.locations {
		plotMarker(grid, pr, mk, CellLocation)
	}
	for _, mk := range m.last {
		plotMarker(grid, pr, mk, CellLast)
	}

	return grid
}

// Render produces the complete map display as a styled string.
func Render(m *Map, width, height int) string {
	grid := Raster(m, width, height)
	if grid == nil {
		return ""
	}

	var sb strings.Builder
	for row, cells := range grid {
		for _, c := range cells {
			sb.WriteString(renderCell(c))
		}
		if row < len(grid)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// RenderLegend produces the map legend line.
func RenderLegend(width int) string {
	legend := styleLocation.Render("o") + styleLegend.Render(" Locations  ") +
		styleLast.Render("+") + styleLegend.Render(" Last  ") +
		lipgloss.NewStyle().Foreground(heatRamp[2].color).Render("░▒▓") + styleLegend.Render(" Heatmap")

	pad := (width - lipgloss.Width(legend)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + legend
}

func backgroundCell(col, row int) Cell {
	if col%6 == 0 && row%3 == 0 {
		return Cell{Kind: CellGrid, Ch: '.'}
	}
	return Cell{Kind: CellEmpty, Ch: ' '}
}

func plotMarker(grid [][]Cell, pr projector, mk *Marker, kind CellKind) {
	if !mk.Attached {
		return
	}
	col, row, ok := pr.cell(mk.Position)
	if !ok {
		return
	}
	if grid[row][col].Kind > kind {
		return
	}
	grid[row][col] = Cell{Kind: kind, Ch: mk.Icon.Symbol()}
}

// heatDensity accumulates a Gaussian kernel per point and normalises the
// result to [0, 1]. The radius is given in screen pixels.
func heatDensity(h Heatmap, pr projector) [][]float64 {
	density := make([][]float64, pr.height)
	for row := range density {
		density[row] = make([]float64, pr.width)
	}

	radius := float64(h.Radius) / config.HeatCellPixels
	if radius < 1 {
		radius = 1
	}
	sigma := radius / 2
	rowReach := int(math.Ceil(radius * config.AspectRatio))
	colReach := int(math.Ceil(radius))

	peak := 0.0
	for _, p := range h.Data {
		x, y := pr.position(p)
		cx, cy := int(math.Round(x)), int(math.Round(y))
		for row := cy - rowReach; row <= cy+rowReach; row++ {
			if row < 0 || row >= pr.height {
				continue
			}
			for col := cx - colReach; col <= cx+colReach; col++ {
				if col < 0 || col >= pr.width {
					continue
				}
				d := CellDistance(float64(col), float64(row), x, y)
				if d > radius {
					continue
				}
				density[row][col] += math.Exp(-(d * d) / (2 * sigma * sigma))
				if density[row][col] > peak {
					peak = density[row][col]
				}
			}
		}
	}

	if peak > 0 {
		for row := range density {
			for col := range density[row] {
				density[row][col] /= peak
			}
		}
	}
	return density
}

func heatChar(v float64) (rune, bool) {
	for _, r := range heatRamp {
		if v >= r.min {
			return r.ch, true
		}
	}
	return 0, false
}

func heatStyle(v float64) lipgloss.Style {
	for _, r := range heatRamp {
		if v >= r.min {
			return lipgloss.NewStyle().Foreground(r.color)
		}
	}
	return styleGrid
}

func renderCell(c Cell) string {
	s := string(c.Ch)
	switch c.Kind {
	case CellLast:
		return styleLast.Render(s)
	case CellLocation:
		return styleLocation.Render(s)
	case CellHeat:
		return heatStyle(c.Heat).Render(s)
	case CellGrid:
		return styleGrid.Render(s)
	default:
		return " "
	}
}

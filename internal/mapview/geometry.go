package mapview

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"scanmap.klederson.com/internal/config"
	"scanmap.klederson.com/internal/geo"
)

// projector maps coordinates onto a width x height cell grid. The viewport is
// projected to web mercator and fitted into the grid, keeping its aspect.
type projector struct {
	width, height int
	midX, midY    float64 // mercator meters
	scale         float64 // columns per meter
}

func newProjector(view orb.Bound, width, height int) projector {
	view = padBound(view)
	lo := project.WGS84.ToMercator(view.Min)
	hi := project.WGS84.ToMercator(view.Max)

	spanX := hi[0] - lo[0]
	spanY := hi[1] - lo[1]

	// Rows are taller than columns, so a row covers 1/AspectRatio column units.
	usableW := float64(width - 1)
	usableH := float64(height-1) / config.AspectRatio
	scale := math.Min(usableW/spanX, usableH/spanY)

	return projector{
		width:  width,
		height: height,
		midX:   (lo[0] + hi[0]) / 2,
		midY:   (lo[1] + hi[1]) / 2,
		scale:  scale,
	}
}

// position returns the fractional cell position of p; it may lie outside the grid.
func (pr projector) position(p geo.Point) (x, y float64) {
	m := project.WGS84.ToMercator(p.Orb())
	x = float64(pr.width-1)/2 + (m[0]-pr.midX)*pr.scale
	y = float64(pr.height-1)/2 - (m[1]-pr.midY)*pr.scale*config.AspectRatio
	return x, y
}

// cell returns the grid cell of p and whether it is inside the grid.
func (pr projector) cell(p geo.Point) (col, row int, ok bool) {
	x, y := pr.position(p)
	col = int(math.Round(x))
	row = int(math.Round(y))
	ok = col >= 0 && col < pr.width && row >= 0 && row < pr.height
	return col, row, ok
}

// padBound widens a degenerate extent so that it can be drawn. The stored
// viewport is not modified.
func padBound(b orb.Bound) orb.Bound {
	half := config.MinSpanDeg / 2
	if b.Max[0]-b.Min[0] < config.MinSpanDeg {
		c := (b.Min[0] + b.Max[0]) / 2
		b.Min[0], b.Max[0] = c-half, c+half
	}
	if b.Max[1]-b.Min[1] < config.MinSpanDeg {
		c := (b.Min[1] + b.Max[1]) / 2
		b.Min[1], b.Max[1] = c-half, c+half
	}
	return b
}

// CellDistance computes the distance between two cells in column units,
// accounting for terminal aspect ratio.
func CellDistance(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := (y1 - y2) / config.AspectRatio
	return math.Sqrt(dx*dx + dy*dy)
}

package mapview

import (
	"strconv"

	"github.com/paulmach/orb"

	"scanmap.klederson.com/internal/config"
	"scanmap.klederson.com/internal/geo"
)

// Icon selects how a marker is drawn.
type Icon int

const (
	IconPin       Icon = iota // ordinary scan location
	IconCrosshair             // last receiver fix
)

// Symbol returns the map character for the icon.
func (i Icon) Symbol() rune {
	if i == IconCrosshair {
		return '+'
	}
	return 'o'
}

// Marker is a single point drawn on the map. A detached marker keeps its
// position but is not drawn.
type Marker struct {
	Position geo.Point
	Icon     Icon
	Attached bool
}

// Heatmap is the density layer built from the scan locations.
type Heatmap struct {
	Data     []geo.Point
	Radius   int // pixels
	Attached bool
}

// Overlay selects which layers are attached to the map.
type Overlay struct {
	ShowLast      bool
	ShowLocations bool
	ShowHeatmap   bool
}

// Follow selects what the viewport is fitted to after each render.
type Follow struct {
	FollowLast      bool
	FollowLocations bool
}

// DefaultOverlay shows every layer.
func DefaultOverlay() Overlay {
	return Overlay{ShowLast: true, ShowLocations: true, ShowHeatmap: true}
}

// DefaultFollow follows both the locations and the last fix.
func DefaultFollow() Follow {
	return Follow{FollowLast: true, FollowLocations: true}
}

// Info is the text readout shown next to the map.
type Info struct {
	Locations    string
	LastLocation string
}

// InfoFor builds the readout for a snapshot.
func InfoFor(snap geo.Snapshot) Info {
	info := Info{Locations: strconv.Itoa(len(snap.Points))}
	if snap.Last != nil {
		info.LastLocation = snap.Last.String()
	}
	return info
}

// World is the viewport before anything has been followed.
var World = orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}}

// Map holds the layers and the viewport. It is owned by the update loop and
// is not safe for concurrent use.
type Map struct {
	locations []*Marker
	last      []*Marker
	heatmap   Heatmap
	viewport  orb.Bound
}

// NewMap creates an empty map showing the whole world.
func NewMap() *Map {
	return &Map{
		heatmap:  Heatmap{Radius: config.HeatRadiusDefault},
		viewport: World,
	}
}

// Render rebuilds every layer from snap and applies overlay and follow.
// Markers are recreated on every call, which costs O(n) allocations per
// refresh; fine for receiver tracks.
func (m *Map) Render(snap geo.Snapshot, ov Overlay, fo Follow) {
	clearMarkers(&m.locations)
	for _, p := range snap.Points {
		m.locations = append(m.locations, &Marker{Position: p, Icon: IconPin})
	}

	clearMarkers(&m.last)
	if snap.Last != nil {
		m.last = append(m.last, &Marker{Position: *snap.Last, Icon: IconCrosshair})
	}

	m.heatmap.Data = append([]geo.Point(nil), snap.Points...)

	m.ShowLayers(ov)
	m.Zoom(snap, fo)
}

// ShowLayers attaches or detaches each layer. Detached layers keep their data.
func (m *Map) ShowLayers(ov Overlay) {
	setMarkers(m.locations, ov.ShowLocations)
	setMarkers(m.last, ov.ShowLast)
	m.heatmap.Attached = ov.ShowHeatmap
}

// Zoom fits the viewport to the followed data. It returns false and leaves
// the viewport alone when there is nothing to follow.
func (m *Map) Zoom(snap geo.Snapshot, fo Follow) bool {
	bound, ok := geo.Extent(snap.Points, snap.Last, fo.FollowLocations, fo.FollowLast)
	if !ok {
		return false
	}
	m.viewport = bound
	return true
}

// SetHeatRadius clamps and stores the heatmap radius, returning the stored value.
func (m *Map) SetHeatRadius(r int) int {
	if r < config.HeatRadiusMin {
		r = config.HeatRadiusMin
	}
	if r > config.HeatRadiusMax {
		r = config.HeatRadiusMax
	}
	m.heatmap.Radius = r
	return r
}

// Viewport returns the current map extent in [lon, lat] order.
func (m *Map) Viewport() orb.Bound {
	return m.viewport
}

// Locations returns copies of the location markers in render order.
func (m *Map) Locations() []Marker {
	return copyMarkers(m.locations)
}

// LastMarkers returns copies of the last-fix markers (zero or one).
func (m *Map) LastMarkers() []Marker {
	return copyMarkers(m.last)
}

// Heatmap returns a copy of the heatmap layer.
func (m *Map) Heatmap() Heatmap {
	h := m.heatmap
	h.Data = append([]geo.Point(nil), m.heatmap.Data...)
	return h
}

func clearMarkers(markers *[]*Marker) {
	setMarkers(*markers, false)
	*markers = (*markers)[:0]
}

func setMarkers(markers []*Marker, attached bool) {
	for _, mk := range markers {
		mk.Attached = attached
	}
}

func copyMarkers(markers []*Marker) []Marker {
	out := make([]Marker, len(markers))
	for i, mk := range markers {
		out[i] = *mk
	}
	return out
}

package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Point is a coordinate pair in degrees. Go code always orders it
// (latitude, longitude); GeoJSON's [lon, lat] order only exists on the wire.
type Point struct {
	Lat float64
	Lon float64
}

// FromOrb converts an orb point ([lon, lat]) to a Point.
func FromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// Orb returns the point in orb's [lon, lat] layout.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// String formats the point as "lat°lon°" with 5 decimals.
func (p Point) String() string {
	return fmt.Sprintf("%.5f°%.5f°", p.Lat, p.Lon)
}

// Snapshot is the result of one successful fetch. It is replaced as a whole,
// never patched.
type Snapshot struct {
	Points []Point // Server order, duplicates kept
	Last   *Point  // Most recent receiver fix, nil when none reported
}

// HasLast reports whether a last point is present.
func (s Snapshot) HasLast() bool {
	return s.Last != nil
}

// Extent returns the bounds of the selected points. ok is false when nothing
// was selected.
func Extent(points []Point, last *Point, withPoints, withLast bool) (bound orb.Bound, ok bool) {
	extend := func(p Point) {
		if !ok {
			bound = p.Orb().Bound()
			ok = true
			return
		}
		bound = bound.Extend(p.Orb())
	}

	if withPoints {
		for _, p := range points {
			extend(p)
		}
	}
	if withLast && last != nil {
		extend(*last)
	}
	return bound, ok
}

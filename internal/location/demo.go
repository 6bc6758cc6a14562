package location

import (
	"context"
	"math"
	"math/rand"
	"time"

	"scanmap.klederson.com/internal/geo"
)

var demoStarts = []geo.Point{
	{Lat: 51.5074, Lon: -0.1278},  // London
	{Lat: 52.3676, Lon: 4.9041},   // Amsterdam
	{Lat: 48.8566, Lon: 2.3522},   // Paris
	{Lat: 40.7128, Lon: -74.0060}, // New York
	{Lat: -23.5505, Lon: -46.6333},
}

// DemoSource walks a simulated receiver around a city for demo mode.
type DemoSource struct {
	interval time.Duration
	rng      *rand.Rand

	pos     geo.Point
	heading float64 // radians
	speed   float64 // degrees per step
	phase   float64
}

// NewDemoSource creates a walker starting in a random city, emitting one fix
// per interval.
func NewDemoSource(interval time.Duration) *DemoSource {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &DemoSource{
		interval: interval,
		rng:      rng,
		pos:      demoStarts[rng.Intn(len(demoStarts))],
		heading:  rng.Float64() * 2 * math.Pi,
		speed:    0.0002 + rng.Float64()*0.0003,
		phase:    rng.Float64() * 2 * math.Pi,
	}
}

func (s *DemoSource) Name() string { return "demo" }

func (s *DemoSource) Run(ctx context.Context, emit func(geo.Point)) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	t := 0.0
	emit(s.pos)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t += 1
			emit(s.step(t))
		}
	}
}

// step advances the walker: a slowly meandering heading plus jitter.
func (s *DemoSource) step(t float64) geo.Point {
	s.heading += 0.3*math.Sin(t*0.1+s.phase) + (s.rng.Float64()-0.5)*0.2

	s.pos.Lat += s.speed * math.Cos(s.heading)
	// Keep the walk roughly isotropic on the ground.
	s.pos.Lon += s.speed * math.Sin(s.heading) / math.Max(math.Cos(s.pos.Lat*math.Pi/180), 0.1)

	return s.pos
}

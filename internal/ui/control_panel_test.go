package ui

import (
	"strings"
	"testing"
	"time"

	"scanmap.klederson.com/internal/mapview"
)

func TestRenderControlPanelHeight(t *testing.T) {
	s := ControlState{
		Overlay:    mapview.DefaultOverlay(),
		Follow:     mapview.DefaultFollow(),
		HeatRadius: 30,
		Refresh:    5 * time.Second,
		Running:    true,
		Info:       mapview.Info{Locations: "2", LastLocation: "51.55000°-0.15000°"},
		History:    []float64{1, 2, 3},
		LastError:  "fetch unavailable: connection refused",
	}
	for _, h := range []int{5, 20, 60} {
		out := RenderControlPanel(s, 36, h)
		if got := len(strings.Split(out, "\n")); got != h {
			t.Fatalf("height %d: got %d lines", h, got)
		}
	}
	out := RenderControlPanel(s, 36, 60)
	if !strings.Contains(out, "51.55000°-0.15000°") {
		t.Fatal("last location missing from the info section")
	}
}

func TestSlider(t *testing.T) {
	if got := slider(10, 10, 100, 10, true); !strings.Contains(got, "|---------") {
		t.Fatalf("minimum must put the knob first: %q", got)
	}
	if got := slider(100, 10, 100, 10, true); !strings.Contains(got, "=========|") {
		t.Fatalf("maximum must put the knob last: %q", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := renderSparkline([]float64{0, 4, 8}, 10); got != "_-^" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := renderSparkline([]float64{1, 2, 3, 4}, 2); len(got) != 2 {
		t.Fatalf("sparkline must keep the newest values only, got %q", got)
	}
}

package config

import "time"

const (
	// Location server
	LocationPort    = 7786
	GJSONPath       = "/gjson"
	KMLPath         = "/kml"
	DefaultURL      = "http://localhost:7786/gjson"
	NMEATCPPort     = 10110
	FixTimeout      = 15 * time.Second // Warn when the receiver goes quiet this long
	SourceRetry     = 5 * time.Second  // Pause before reopening a failed source
	DemoFixInterval = time.Second

	// KML LookAt range limits in meters
	LookAtMinRange = 100.0
	LookAtMaxRange = 50000.0

	// Refresh
	RefreshDefault = 5 * time.Second
	RefreshMin     = 1 * time.Second
	RefreshMax     = 100 * time.Second
	RefreshStep    = 1 * time.Second
	FetchTimeout   = 10 * time.Second
	MaxBodyBytes   = 10 << 20

	// Heatmap
	HeatRadiusDefault = 30
	HeatRadiusMin     = 10
	HeatRadiusMax     = 100
	HeatRadiusStep    = 5
	HeatCellPixels    = 10 // Screen pixels represented by one map cell

	// Map display
	AspectRatio = 0.5   // Terminal char aspect correction (chars are ~2:1 tall)
	MinSpanDeg  = 0.002 // Drawn span around a single-point viewport
	HistorySize = 60    // Location count samples kept for the sparkline

	// App
	AppName    = "SCAN-MAP"
	AppVersion = "1.0"
)

// Dashboard holds the runtime settings of the map dashboard.
type Dashboard struct {
	URL     string
	Refresh time.Duration
	Timeout time.Duration
	LogFile string
	Demo    bool
}

// Server holds the runtime settings of the location server.
type Server struct {
	Listen     string
	Source     string
	SerialPort string
	BaudRate   uint
	TCPAddr    string
	MQTTBroker string
	MQTTTopic  string
	FixTimeout time.Duration
}

// ClampRefresh limits d to the accepted refresh range.
func ClampRefresh(d time.Duration) time.Duration {
	if d < RefreshMin {
		return RefreshMin
	}
	if d > RefreshMax {
		return RefreshMax
	}
	return d
}

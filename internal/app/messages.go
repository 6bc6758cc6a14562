package app

// Intent is a user action decoded from a key press. Every control change
// flows through Update as an IntentMsg.
type Intent int

const (
	ToggleLast Intent = iota
	ToggleLocations
	ToggleHeatmap
	ToggleFollowLast
	ToggleFollowLocations
	HeatRadiusUp
	HeatRadiusDown
	RefreshUp
	RefreshDown
	Play
	Pause
	ToggleHelp
	Quit
)

// IntentMsg delivers an Intent to the update loop.
type IntentMsg struct {
	Intent Intent
}

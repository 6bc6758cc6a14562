package app

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Last        key.Binding
	Locations   key.Binding
	Heatmap     key.Binding
	FollowLast  key.Binding
	FollowLocs  key.Binding
	HeatUp      key.Binding
	HeatDown    key.Binding
	RefreshUp   key.Binding
	RefreshDown key.Binding
	Play        key.Binding
	Pause       key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Last:        key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "last")),
		Locations:   key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "locations")),
		Heatmap:     key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "heatmap")),
		FollowLast:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "zoom last")),
		FollowLocs:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "zoom locations")),
		HeatUp:      key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "radius+")),
		HeatDown:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "radius-")),
		RefreshUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "slower")),
		RefreshDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "faster")),
		Play:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		Pause:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// intents pairs each binding with the intent it produces, in match order.
func (k keyMap) intents() []struct {
	binding key.Binding
	intent  Intent
} {
	return []struct {
		binding key.Binding
		intent  Intent
	}{
		{k.Last, ToggleLast},
		{k.Locations, ToggleLocations},
		{k.Heatmap, ToggleHeatmap},
		{k.FollowLast, ToggleFollowLast},
		{k.FollowLocs, ToggleFollowLocations},
		{k.HeatUp, HeatRadiusUp},
		{k.HeatDown, HeatRadiusDown},
		{k.RefreshUp, RefreshUp},
		{k.RefreshDown, RefreshDown},
		{k.Play, Play},
		{k.Pause, Pause},
		{k.Help, ToggleHelp},
		{k.Quit, Quit},
	}
}

// setRunning keeps play and pause mutually exclusive.
func (k *keyMap) setRunning(running bool) {
	k.Play.SetEnabled(!running)
	k.Pause.SetEnabled(running)
}

// setHeatmap enables the radius slider only while the heatmap is shown.
func (k *keyMap) setHeatmap(shown bool) {
	k.HeatUp.SetEnabled(shown)
	k.HeatDown.SetEnabled(shown)
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Pause, k.Last, k.Locations, k.Heatmap, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Last, k.Locations, k.Heatmap},
		{k.FollowLast, k.FollowLocs},
		{k.HeatDown, k.HeatUp, k.RefreshDown, k.RefreshUp},
		{k.Play, k.Pause, k.Help, k.Quit},
	}
}

package app

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"scanmap.klederson.com/internal/config"
	"scanmap.klederson.com/internal/geo"
	"scanmap.klederson.com/internal/mapview"
	"scanmap.klederson.com/internal/poll"
	"scanmap.klederson.com/internal/ui"
)

// shared holds state shared between the Bubble Tea model copies.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	scheduler *poll.Scheduler
	view      *mapview.Map
	history   *Ring
	log       logrus.FieldLogger
}

// AppModel is the root Bubble Tea model of the map dashboard.
type AppModel struct {
	width  int
	height int

	source     string
	overlay    mapview.Overlay
	follow     mapview.Follow
	heatRadius int

	snapshot geo.Snapshot
	lastErr  string

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	shared *shared
}

// New creates an AppModel polling with fetch every refresh. source is only
// displayed.
func New(source string, fetch poll.FetchFunc, refresh time.Duration, log logrus.FieldLogger) AppModel {
	keys := newKeyMap()
	keys.setRunning(true)
	keys.setHeatmap(true)

	return AppModel{
		source:     source,
		overlay:    mapview.DefaultOverlay(),
		follow:     mapview.DefaultFollow(),
		heatRadius: config.HeatRadiusDefault,
		keys:       keys,
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(ui.StyleSpinner)),
		shared: &shared{
			scheduler: poll.New(fetch, refresh),
			view:      mapview.NewMap(),
			history:   NewRing(config.HistorySize),
			log:       log,
		},
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.shared.scheduler.Start(),
		m.spinner.Tick,
	)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case IntentMsg:
		return m.apply(msg.Intent)

	case poll.ResultMsg:
		return m.handleResult(msg)

	case poll.FireMsg:
		return m, m.shared.scheduler.Fire(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	for _, ki := range m.keys.intents() {
		if key.Matches(msg, ki.binding) {
			return m.apply(ki.intent)
		}
	}
	return m, nil
}

// handleResult stores a successful snapshot and re-renders. A failed fetch
// keeps the previous snapshot; either way the scheduler re-arms.
func (m AppModel) handleResult(msg poll.ResultMsg) (tea.Model, tea.Cmd) {
	log := m.shared.log
	if msg.Err != nil {
		log.WithError(msg.Err).Warn("location fetch failed")
		m.lastErr = msg.Err.Error()
		return m, m.shared.scheduler.Done()
	}

	m.snapshot = msg.Snapshot
	m.lastErr = ""
	m.shared.view.Render(m.snapshot, m.overlay, m.follow)
	m.shared.history.Push(float64(len(m.snapshot.Points)))

	log.WithFields(logrus.Fields{
		"locations": len(m.snapshot.Points),
		"last":      m.snapshot.HasLast(),
	}).Debug("locations updated")

	return m, m.shared.scheduler.Done()
}

func (m AppModel) apply(intent Intent) (tea.Model, tea.Cmd) {
	sched := m.shared.scheduler
	view := m.shared.view

	switch intent {
	case ToggleLast:
		m.overlay.ShowLast = !m.overlay.ShowLast
		view.ShowLayers(m.overlay)

	case ToggleLocations:
		m.overlay.ShowLocations = !m.overlay.ShowLocations
		view.ShowLayers(m.overlay)

	case ToggleHeatmap:
		m.overlay.ShowHeatmap = !m.overlay.ShowHeatmap
		m.keys.setHeatmap(m.overlay.ShowHeatmap)
		view.ShowLayers(m.overlay)

	case ToggleFollowLast:
		m.follow.FollowLast = !m.follow.FollowLast
		view.Zoom(m.snapshot, m.follow)

	case ToggleFollowLocations:
		m.follow.FollowLocations = !m.follow.FollowLocations
		view.Zoom(m.snapshot, m.follow)

	case HeatRadiusUp, HeatRadiusDown:
		if !m.overlay.ShowHeatmap {
			return m, nil
		}
		step := config.HeatRadiusStep
		if intent == HeatRadiusDown {
			step = -step
		}
		m.heatRadius = view.SetHeatRadius(m.heatRadius + step)

	case RefreshUp, RefreshDown:
		step := config.RefreshStep
		if intent == RefreshDown {
			step = -step
		}
		next := config.ClampRefresh(sched.Interval() + step)
		if next == sched.Interval() {
			return m, nil
		}
		cmd, err := sched.SetInterval(next)
		if err != nil {
			m.shared.log.WithError(err).Warn("refresh interval rejected")
			return m, nil
		}
		m.shared.log.WithField("interval", next).Info("refresh interval changed")
		return m, cmd

	case Play:
		if sched.Running() {
			return m, nil
		}
		cmd := sched.Start()
		m.keys.setRunning(true)
		m.shared.log.Info("polling resumed")
		return m, cmd

	case Pause:
		if !sched.Running() {
			return m, nil
		}
		sched.Pause()
		m.keys.setRunning(false)
		m.shared.log.Info("polling paused")

	case ToggleHelp:
		m.help.ShowAll = !m.help.ShowAll

	case Quit:
		return m, tea.Quit
	}

	return m, nil
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing map..."
	}

	sched := m.shared.scheduler

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 5 {
		bodyH = 5
	}

	mapW := m.width * 3 / 4
	if mapW < 30 {
		mapW = 30
	}
	panelW := m.width - mapW
	if panelW < 28 {
		panelW = 28
		mapW = m.width - panelW
	}

	menuBar := ui.RenderMenuBar(m.width, m.source, sched.Running(), m.help.View(m.keys))

	innerW := mapW - 4
	innerH := bodyH - 4
	if innerW < 5 {
		innerW = 5
	}
	if innerH < 3 {
		innerH = 3
	}
	mapContent := mapview.Render(m.shared.view, innerW, innerH)
	legend := mapview.RenderLegend(innerW)
	mapPanel := ui.RenderMapPanel(mapW, bodyH, mapContent, legend)

	controls := ui.RenderControlPanel(ui.ControlState{
		Overlay:    m.overlay,
		Follow:     m.follow,
		HeatRadius: m.heatRadius,
		Refresh:    sched.Interval(),
		Running:    sched.Running(),
		Busy:       sched.Fetching(),
		Spinner:    m.spinner.View(),
		Info:       mapview.InfoFor(m.snapshot),
		History:    m.shared.history.Values(),
		LastError:  m.lastErr,
	}, panelW, bodyH)

	statusBar := ui.RenderStatusBar(m.width, sched.Running(), sched.State().String(),
		len(m.snapshot.Points), sched.Interval(), m.shared.view.Viewport())

	return ui.ComposeLayout(menuBar, mapPanel, controls, statusBar)
}

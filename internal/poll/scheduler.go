package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"scanmap.klederson.com/internal/config"
	"scanmap.klederson.com/internal/geo"
)

// State is the scheduler's position in the fetch cycle.
type State int

const (
	Idle State = iota
	Fetching
	ArmedToRefire
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case ArmedToRefire:
		return "armed"
	default:
		return "idle"
	}
}

// ErrInterval is returned for a refresh interval outside the accepted range.
var ErrInterval = errors.New("refresh interval out of range")

// FetchFunc performs one fetch.
type FetchFunc func(ctx context.Context) (geo.Snapshot, error)

// ResultMsg carries a completed fetch back into the update loop.
type ResultMsg struct {
	Snapshot geo.Snapshot
	Err      error
}

// FireMsg is delivered when a re-arm timer expires. Only the timer whose Tag
// matches the scheduler's current tag is live.
type FireMsg struct {
	Tag int
}

// Scheduler chains fetches: the next one is armed only after the previous
// one completed. It is driven from a single bubbletea Update loop and is not
// safe for concurrent use.
type Scheduler struct {
	fetch    FetchFunc
	interval time.Duration
	running  bool
	state    State
	tag      int
	deadline time.Time

	// replaceable in tests
	timer func(d time.Duration, tag int) tea.Cmd
	now   func() time.Time
}

// New creates a running scheduler. The interval is clamped to the accepted range.
func New(fetch FetchFunc, interval time.Duration) *Scheduler {
	return &Scheduler{
		fetch:    fetch,
		interval: config.ClampRefresh(interval),
		running:  true,
		timer:    tickCmd,
		now:      time.Now,
	}
}

func tickCmd(d time.Duration, tag int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return FireMsg{Tag: tag}
	})
}

// State returns the current cycle state.
func (s *Scheduler) State() State { return s.state }

// Running reports whether automatic re-arming is enabled.
func (s *Scheduler) Running() bool { return s.running }

// Interval returns the interval used for the next re-arm.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Fetching reports whether a fetch is outstanding.
func (s *Scheduler) Fetching() bool { return s.state == Fetching }

// Pending returns the deadline and tag of the live timer, if one is armed.
func (s *Scheduler) Pending() (deadline time.Time, tag int, ok bool) {
	if s.state != ArmedToRefire {
		return time.Time{}, 0, false
	}
	return s.deadline, s.tag, true
}

// Start enables re-arming and fetches immediately unless a fetch is already
// outstanding. A pending timer is cancelled.
func (s *Scheduler) Start() tea.Cmd {
	s.running = true
	if s.state == Fetching {
		return nil
	}
	s.cancel()
	s.state = Fetching
	return s.fetchCmd()
}

// Pause stops re-arming. An outstanding fetch still completes.
func (s *Scheduler) Pause() {
	s.running = false
	if s.state == ArmedToRefire {
		s.cancel()
		s.state = Idle
	}
}

// SetInterval changes the interval for the next re-arm. A timer that is
// already waiting is replaced by one for d from now.
func (s *Scheduler) SetInterval(d time.Duration) (tea.Cmd, error) {
	if d < config.RefreshMin || d > config.RefreshMax {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", ErrInterval, d, config.RefreshMin, config.RefreshMax)
	}
	s.interval = d
	if s.state == ArmedToRefire {
		return s.arm(), nil
	}
	return nil, nil
}

// Done records the completion of the outstanding fetch, successful or not,
// and re-arms when running.
func (s *Scheduler) Done() tea.Cmd {
	if s.state != Fetching {
		return nil
	}
	if !s.running {
		s.state = Idle
		return nil
	}
	return s.arm()
}

// Fire handles an expired timer. Stale timers are ignored.
func (s *Scheduler) Fire(msg FireMsg) tea.Cmd {
	if s.state != ArmedToRefire || msg.Tag != s.tag {
		return nil
	}
	s.state = Fetching
	return s.fetchCmd()
}

func (s *Scheduler) arm() tea.Cmd {
	s.tag++
	s.state = ArmedToRefire
	s.deadline = s.now().Add(s.interval)
	return s.timer(s.interval, s.tag)
}

// cancel invalidates any pending timer.
func (s *Scheduler) cancel() {
	s.tag++
}

func (s *Scheduler) fetchCmd() tea.Cmd {
	fetch := s.fetch
	return func() tea.Msg {
		snap, err := fetch(context.Background())
		return ResultMsg{Snapshot: snap, Err: err}
	}
}

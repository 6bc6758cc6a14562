package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"scanmap.klederson.com/internal/geo"
)

type armCall struct {
	d   time.Duration
	tag int
}

type harness struct {
	s       *Scheduler
	arms    []armCall
	fetches int
	clock   time.Time
}

func newHarness(interval time.Duration) *harness {
	h := &harness{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	h.s = New(func(context.Context) (geo.Snapshot, error) {
		h.fetches++
		return geo.Snapshot{Points: []geo.Point{{Lat: 1, Lon: 2}}}, nil
	}, interval)
	h.s.timer = func(d time.Duration, tag int) tea.Cmd {
		h.arms = append(h.arms, armCall{d, tag})
		return func() tea.Msg { return FireMsg{Tag: tag} }
	}
	h.s.now = func() time.Time { return h.clock }
	return h
}

// run executes a fetch command the way the bubbletea runtime would.
func (h *harness) run(t *testing.T, cmd tea.Cmd) ResultMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	msg, ok := cmd().(ResultMsg)
	if !ok {
		t.Fatal("fetch command did not produce a ResultMsg")
	}
	return msg
}

func TestStartFetchesThenArms(t *testing.T) {
	h := newHarness(5 * time.Second)

	cmd := h.s.Start()
	if h.s.State() != Fetching {
		t.Fatalf("expected fetching, got %s", h.s.State())
	}
	if again := h.s.Start(); again != nil {
		t.Fatal("a second fetch must not start while one is outstanding")
	}
	h.run(t, cmd)
	if h.fetches != 1 {
		t.Fatalf("expected one fetch, got %d", h.fetches)
	}

	if h.s.Done() == nil {
		t.Fatal("expected a re-arm timer")
	}
	deadline, _, ok := h.s.Pending()
	if !ok || h.s.State() != ArmedToRefire {
		t.Fatal("expected scheduler to be armed")
	}
	if len(h.arms) != 1 || h.arms[0].d != 5*time.Second {
		t.Fatalf("expected one 5s timer, got %+v", h.arms)
	}
	if !deadline.Equal(h.clock.Add(5 * time.Second)) {
		t.Fatalf("unexpected deadline %v", deadline)
	}
}

func TestSetIntervalReplacesPendingTimer(t *testing.T) {
	h := newHarness(5 * time.Second)
	h.run(t, h.s.Start())
	h.s.Done()
	_, staleTag, _ := h.s.Pending()

	h.clock = h.clock.Add(1500 * time.Millisecond)
	cmd, err := h.s.SetInterval(2 * time.Second)
	if err != nil {
		t.Fatalf("set interval: %v", err)
	}
	if cmd == nil {
		t.Fatal("expected the timer to be re-armed")
	}

	deadline, liveTag, ok := h.s.Pending()
	if !ok || liveTag == staleTag {
		t.Fatal("expected a new live timer")
	}
	if !deadline.Equal(h.clock.Add(2 * time.Second)) {
		t.Fatalf("new timer must fire 2s after the call, got %v", deadline)
	}
	if last := h.arms[len(h.arms)-1]; last.d != 2*time.Second {
		t.Fatalf("expected a 2s timer, got %s", last.d)
	}

	if h.s.Fire(FireMsg{Tag: staleTag}) != nil {
		t.Fatal("stale timer must be ignored")
	}
	if h.s.State() != ArmedToRefire {
		t.Fatal("stale timer must not change state")
	}
	h.run(t, h.s.Fire(FireMsg{Tag: liveTag}))
	if h.fetches != 2 {
		t.Fatalf("expected the live timer to fetch, fetches=%d", h.fetches)
	}
}

func TestSetIntervalWhileIdleOnlyStores(t *testing.T) {
	h := newHarness(5 * time.Second)
	h.s.Pause()
	cmd, err := h.s.SetInterval(7 * time.Second)
	if err != nil || cmd != nil {
		t.Fatalf("expected silent store, cmd=%v err=%v", cmd != nil, err)
	}
	if h.s.Interval() != 7*time.Second {
		t.Fatalf("interval not stored: %s", h.s.Interval())
	}
}

func TestSetIntervalRange(t *testing.T) {
	h := newHarness(5 * time.Second)
	for _, d := range []time.Duration{999 * time.Millisecond, 101 * time.Second} {
		if _, err := h.s.SetInterval(d); !errors.Is(err, ErrInterval) {
			t.Fatalf("expected ErrInterval for %s, got %v", d, err)
		}
	}
	if h.s.Interval() != 5*time.Second {
		t.Fatal("rejected interval must not be stored")
	}
}

func TestPauseDuringFetch(t *testing.T) {
	h := newHarness(5 * time.Second)
	cmd := h.s.Start()
	h.s.Pause()

	msg := h.run(t, cmd)
	if len(msg.Snapshot.Points) != 1 {
		t.Fatal("in-flight fetch must still deliver its result")
	}
	if h.s.Done() != nil {
		t.Fatal("paused scheduler must not re-arm")
	}
	if h.s.State() != Idle || len(h.arms) != 0 {
		t.Fatalf("expected idle with no timers, state=%s arms=%d", h.s.State(), len(h.arms))
	}

	h.run(t, h.s.Start())
	if h.fetches != 2 {
		t.Fatal("start must fetch again after a pause")
	}
}

func TestPauseCancelsPendingTimer(t *testing.T) {
	h := newHarness(5 * time.Second)
	h.run(t, h.s.Start())
	h.s.Done()
	_, tag, _ := h.s.Pending()

	h.s.Pause()
	if _, _, ok := h.s.Pending(); ok {
		t.Fatal("pause must cancel the pending timer")
	}
	if h.s.Fire(FireMsg{Tag: tag}) != nil {
		t.Fatal("cancelled timer must not fetch")
	}

	cmd := h.s.Start()
	if h.s.Fire(FireMsg{Tag: tag}) != nil {
		t.Fatal("old timer must stay dead after restart")
	}
	h.run(t, cmd)
}

func TestErrorCycleRearms(t *testing.T) {
	s := New(func(context.Context) (geo.Snapshot, error) {
		return geo.Snapshot{}, errors.New("boom")
	}, 3*time.Second)
	var armed []time.Duration
	s.timer = func(d time.Duration, tag int) tea.Cmd {
		armed = append(armed, d)
		return nil
	}

	msg := s.Start()().(ResultMsg)
	if msg.Err == nil {
		t.Fatal("expected the fetch error to be reported")
	}
	s.Done()
	if len(armed) != 1 || armed[0] != 3*time.Second {
		t.Fatalf("failed fetch must re-arm like a successful one, got %v", armed)
	}
}

func TestNewClampsInterval(t *testing.T) {
	if got := New(nil, 0).Interval(); got != time.Second {
		t.Fatalf("expected clamp to 1s, got %s", got)
	}
	if got := New(nil, time.Hour).Interval(); got != 100*time.Second {
		t.Fatalf("expected clamp to 100s, got %s", got)
	}
}

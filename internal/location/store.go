package location

import (
	"sort"
	"sync"
	"time"

	"scanmap.klederson.com/internal/geo"
)

// Fix is a single position reported by a source.
type Fix struct {
	Point geo.Point
	Time  time.Time
}

// Store is a thread-safe store for received fixes. Sources write, HTTP
// handlers read.
type Store struct {
	mu      sync.RWMutex
	fixes   []Fix
	current *Fix
	now     func() time.Time
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Add records p as the current fix and appends it to the track, keeping the
// track in time order.
func (s *Store) Add(p geo.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fix := Fix{Point: p, Time: s.now()}
	s.current = &fix

	i := sort.Search(len(s.fixes), func(i int) bool {
		return s.fixes[i].Time.After(fix.Time)
	})
	s.fixes = append(s.fixes, Fix{})
	copy(s.fixes[i+1:], s.fixes[i:])
	s.fixes[i] = fix
}

// Snapshot returns a copy of the track (oldest first) and the current fix,
// which is nil until the first fix arrives.
func (s *Store) Snapshot() ([]Fix, *Fix) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fixes := make([]Fix, len(s.fixes))
	copy(fixes, s.fixes)

	var current *Fix
	if s.current != nil {
		cp := *s.current
		current = &cp
	}
	return fixes, current
}

// Count returns the number of fixes in the track.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fixes)
}

// LastSeen returns the time of the current fix, or the zero time.
func (s *Store) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return time.Time{}
	}
	return s.current.Time
}

package reactor

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// SeenFilter collapses repeated deliveries of the same message id
type SeenFilter struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration // How long an id is remembered (0 = forever)
	seen   map[string]*seenEntry
}

type seenEntry struct {
	count     int
	firstSeen time.Time
	lastSeen  time.Time
}

// NewSeenFilter creates a new de-duplication filter
// window=0 means ids are remembered for the life of the process
// window>0 means ids are forgotten once unseen for the window
func NewSeenFilter(clk clock.Clock, window time.Duration) *SeenFilter {
	if clk == nil {
		clk = clock.New()
	}
	return &SeenFilter{
		clock:  clk,
		window: window,
		seen:   make(map[string]*seenEntry),
	}
}

// SeenResult holds the result of a check
type SeenResult struct {
	First     bool      // Whether this is the first delivery
	Count     int       // Number of deliveries (1 = first)
	FirstSeen time.Time // First delivery timestamp
}

// Check records a delivery of key and reports whether it was new
func (f *SeenFilter) Check(key string) SeenResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	if f.window > 0 {
		f.cleanOldEntries(now)
	}

	if existing, ok := f.seen[key]; ok {
		existing.count++
		existing.lastSeen = now
		return SeenResult{
			First:     false,
			Count:     existing.count,
			FirstSeen: existing.firstSeen,
		}
	}

	f.seen[key] = &seenEntry{
		count:     1,
		firstSeen: now,
		lastSeen:  now,
	}
	return SeenResult{First: true, Count: 1, FirstSeen: now}
}

// Forget drops key so that a later delivery counts as new again
func (f *SeenFilter) Forget(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, key)
}

// Len returns the number of remembered ids
func (f *SeenFilter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

// cleanOldEntries removes entries outside the time window
func (f *SeenFilter) cleanOldEntries(now time.Time) {
	cutoff := now.Add(-f.window)
	for key, entry := range f.seen {
		if entry.lastSeen.Before(cutoff) {
			delete(f.seen, key)
		}
	}
}

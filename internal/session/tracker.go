package session

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vburojevic/lurk/internal/domain"
)

// Tracker numbers session attempts and keeps per-attempt counters
type Tracker struct {
	mu             sync.Mutex
	clock          clock.Clock
	currentAttempt int
	attemptStart   time.Time
	opened         bool
	messageCount   int
	statusCount    int
	saveCount      int
	active         bool
}

// NewTracker creates a new attempt tracker
func NewTracker(clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{clock: clk}
}

// Begin starts the next attempt and returns its start event
func (t *Tracker) Begin(version domain.Version, registered bool, previousCause string) *domain.AttemptStart {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.currentAttempt++
	t.attemptStart = t.clock.Now()
	t.opened = false
	t.messageCount = 0
	t.statusCount = 0
	t.saveCount = 0
	t.active = true

	return domain.NewAttemptStart(t.currentAttempt, previousCause, version, registered)
}

// Opened marks the current attempt as having reached the open state
func (t *Tracker) Opened() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opened = true
}

// AddMessages counts inbound messages and acknowledged statuses
func (t *Tracker) AddMessages(messages, statusRead int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageCount += messages
	t.statusCount += statusRead
}

// AddCredentialSave counts a credential update
func (t *Tracker) AddCredentialSave() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saveCount++
}

// End closes the current attempt and returns its summary event. It returns
// nil when no attempt is active.
func (t *Tracker) End(outcome domain.Outcome, code int) *domain.AttemptEnd {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.active {
		return nil
	}
	t.active = false

	return domain.NewAttemptEnd(t.currentAttempt, outcome, code, domain.AttemptSummary{
		Opened:          t.opened,
		Messages:        t.messageCount,
		StatusRead:      t.statusCount,
		CredentialSaves: t.saveCount,
		DurationSeconds: int(t.clock.Since(t.attemptStart).Seconds()),
	})
}

// CurrentAttempt returns the current attempt number
func (t *Tracker) CurrentAttempt() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentAttempt
}

// Stats returns current attempt statistics
func (t *Tracker) Stats() (attempt int, opened bool, messages, statusRead int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentAttempt, t.opened, t.messageCount, t.statusCount
}

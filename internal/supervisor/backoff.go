package supervisor

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// BackoffConfig bounds how fast the supervisor reconnects.
type BackoffConfig struct {
	MinDelay    time.Duration // spacing between attempt starts
	MaxDelay    time.Duration // cap for the doubling delay
	MaxAttempts int           // attempts allowed per Window, 0 = unlimited
	Window      time.Duration
}

// DefaultBackoff is one attempt per second, doubling to 30s, at most 10 a minute.
var DefaultBackoff = BackoffConfig{
	MinDelay:    time.Second,
	MaxDelay:    30 * time.Second,
	MaxAttempts: 10,
	Window:      time.Minute,
}

// Backoff spaces connect attempts. The delay doubles after every attempt that
// never opened and drops back to MinDelay once one does. Independently, no
// more than MaxAttempts may start inside any Window.
type Backoff struct {
	cfg     BackoffConfig
	clock   clock.Clock
	delay   time.Duration
	last    time.Time
	history []time.Time
}

// NewBackoff returns a backoff that lets the first attempt through at once.
func NewBackoff(cfg BackoffConfig, clk clock.Clock) *Backoff {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	return &Backoff{cfg: cfg, clock: clk, delay: cfg.MinDelay}
}

// Next returns how long the next attempt has to wait.
func (b *Backoff) Next() time.Duration {
	now := b.clock.Now()
	b.prune(now)

	var wait time.Duration
	if !b.last.IsZero() {
		wait = b.last.Add(b.delay).Sub(now)
	}
	if n := b.cfg.MaxAttempts; n > 0 && b.cfg.Window > 0 && len(b.history) >= n {
		if until := b.history[len(b.history)-n].Add(b.cfg.Window).Sub(now); until > wait {
			wait = until
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Wait blocks until the next attempt may start and records it.
func (b *Backoff) Wait(ctx context.Context) error {
	if wait := b.Next(); wait > 0 {
		t := b.clock.Timer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	now := b.clock.Now()
	b.last = now
	b.history = append(b.history, now)
	return nil
}

// Failed doubles the delay, up to MaxDelay.
func (b *Backoff) Failed() {
	b.delay *= 2
	if b.delay > b.cfg.MaxDelay {
		b.delay = b.cfg.MaxDelay
	}
	if b.delay == 0 {
		b.delay = b.cfg.MinDelay
	}
}

// Reset drops the delay back to MinDelay.
func (b *Backoff) Reset() {
	b.delay = b.cfg.MinDelay
}

// Delay returns the current spacing.
func (b *Backoff) Delay() time.Duration { return b.delay }

func (b *Backoff) prune(now time.Time) {
	if b.cfg.Window <= 0 {
		b.history = b.history[:0]
		return
	}
	cutoff := now.Add(-b.cfg.Window)
	i := 0
	for i < len(b.history) && !b.history[i].After(cutoff) {
		i++
	}
	b.history = b.history[i:]
}

package creds

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/lurk/internal/domain"
)

// ErrPersisterClosed is returned when an update arrives after Close.
var ErrPersisterClosed = errors.New("credential persister closed")

const (
	maxSaveAttempts = 3
	saveRetryDelay  = 200 * time.Millisecond
	queueSize       = 64
)

type request struct {
	creds   *domain.Credentials
	flushed chan struct{}
}

// Persister applies credential updates to a Store one at a time, in the order
// they were enqueued. Updates are never coalesced.
type Persister struct {
	store  Store
	clock  clock.Clock
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	reqs   chan request
	done   chan struct{}

	saved  atomic.Int64
	failed atomic.Int64
}

// NewPersister starts the worker goroutine. Callers must Close it.
func NewPersister(store Store, clk clock.Clock, logger *zap.Logger) *Persister {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Persister{
		store:  store,
		clock:  clk,
		logger: logger.Named("creds"),
		reqs:   make(chan request, queueSize),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Enqueue queues c for saving. It blocks while the queue is full.
func (p *Persister) Enqueue(c domain.Credentials) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPersisterClosed
	}
	p.reqs <- request{creds: &c}
	return nil
}

// Flush waits until every update enqueued before the call has been handled.
func (p *Persister) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil
	}
	p.reqs <- request{flushed: flushed}
	p.mu.RUnlock()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the worker. It is safe to call twice.
func (p *Persister) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.reqs)
	}
	p.mu.Unlock()
	<-p.done
}

// Saved returns how many updates were persisted.
func (p *Persister) Saved() int64 { return p.saved.Load() }

// Failed returns how many updates were dropped after exhausting retries.
func (p *Persister) Failed() int64 { return p.failed.Load() }

func (p *Persister) run() {
	defer close(p.done)
	for req := range p.reqs {
		if req.flushed != nil {
			close(req.flushed)
			continue
		}
		p.save(*req.creds)
	}
}

func (p *Persister) save(c domain.Credentials) {
	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.logger.Error("credential save panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	var err error
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		if err = p.store.Save(c); err == nil {
			p.saved.Add(1)
			p.logger.Debug("credentials saved", zap.Bool("registered", c.Registered))
			return
		}
		p.logger.Warn("credential save failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxSaveAttempts {
			p.clock.Sleep(saveRetryDelay)
		}
	}
	p.failed.Add(1)
	p.logger.Error("credential update lost", zap.Error(err))
}

// Package supervisor owns the single live session: it connects, reacts to
// the connection lifecycle and decides after every disconnect whether to
// reconnect or stop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/lurk/internal/creds"
	"github.com/vburojevic/lurk/internal/disconnect"
	"github.com/vburojevic/lurk/internal/domain"
	"github.com/vburojevic/lurk/internal/msgcache"
	"github.com/vburojevic/lurk/internal/pairing"
	"github.com/vburojevic/lurk/internal/reactor"
	"github.com/vburojevic/lurk/internal/session"
	"github.com/vburojevic/lurk/internal/transport"
)

// DefaultSettleDelay lets a fresh socket settle before a pairing code is requested.
const DefaultSettleDelay = 3 * time.Second

// Config holds the supervisor's tunables.
type Config struct {
	PairingNumber  string
	Browser        transport.Browser
	ConnectTimeout time.Duration // 0 = no timeout on Dial
	SettleDelay    time.Duration
	Ephemeral      time.Duration
	Backoff        BackoffConfig
}

// Notifier receives the operator-facing events of the supervisor.
type Notifier interface {
	StateChanged(state domain.State)
	AttemptStarted(start *domain.AttemptStart)
	AttemptEnded(end *domain.AttemptEnd)
	PairingCode(p pairing.Pending)
	LoggedOut(outcome domain.Outcome)
}

type nopNotifier struct{}

func (nopNotifier) StateChanged(domain.State)          {}
func (nopNotifier) AttemptStarted(*domain.AttemptStart) {}
func (nopNotifier) AttemptEnded(*domain.AttemptEnd)     {}
func (nopNotifier) PairingCode(pairing.Pending)         {}
func (nopNotifier) LoggedOut(domain.Outcome)            {}

// Options wires the supervisor to its collaborators.
type Options struct {
	Config     Config
	Dialer     transport.Dialer
	Versions   transport.VersionFetcher
	Store      creds.Store
	Classifier disconnect.Classifier
	Cache      *msgcache.Cache // nil disables replay lookups
	Notifier   Notifier
	Clock      clock.Clock
	Logger     *zap.Logger
}

// Supervisor runs connect cycles until the session is invalidated or the
// context is cancelled. Only the Run goroutine touches the session.
type Supervisor struct {
	cfg        Config
	dialer     transport.Dialer
	versions   transport.VersionFetcher
	store      creds.Store
	classifier disconnect.Classifier
	cache      *msgcache.Cache
	notifier   Notifier
	clock      clock.Clock
	logger     *zap.Logger

	backoff   *Backoff
	tracker   *session.Tracker
	seen      *reactor.SeenFilter
	persister *creds.Persister

	state    atomic.Int32
	commands chan command
}

type command int

const cmdReconnect command = iota

// New builds a supervisor. Dialer, Versions and Store are required.
func New(opts Options) *Supervisor {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Config.SettleDelay <= 0 {
		opts.Config.SettleDelay = DefaultSettleDelay
	}
	if opts.Config.Ephemeral <= 0 {
		opts.Config.Ephemeral = reactor.DefaultEphemeral
	}
	if opts.Config.Browser == (transport.Browser{}) {
		opts.Config.Browser = transport.DefaultBrowser
	}
	return &Supervisor{
		cfg:        opts.Config,
		dialer:     opts.Dialer,
		versions:   opts.Versions,
		store:      opts.Store,
		classifier: opts.Classifier,
		cache:      opts.Cache,
		notifier:   opts.Notifier,
		clock:      opts.Clock,
		logger:     opts.Logger.Named("supervisor"),
		backoff:    NewBackoff(opts.Config.Backoff, opts.Clock),
		tracker:    session.NewTracker(opts.Clock),
		seen:       reactor.NewSeenFilter(opts.Clock, 24*time.Hour),
		commands:   make(chan command, 1),
	}
}

// State returns the current connection state.
func (s *Supervisor) State() domain.State {
	return domain.State(s.state.Load())
}

// Attempt returns the number of the current session attempt.
func (s *Supervisor) Attempt() int {
	return s.tracker.CurrentAttempt()
}

// Reconnect asks the run loop to drop the current session and start over.
// It never blocks; repeated requests before the loop reacts collapse into one.
func (s *Supervisor) Reconnect() {
	select {
	case s.commands <- cmdReconnect:
	default:
	}
}

func (s *Supervisor) setState(st domain.State) {
	if domain.State(s.state.Swap(int32(st))) == st {
		return
	}
	s.logger.Debug("state changed", zap.Stringer("state", st))
	s.notifier.StateChanged(st)
}

// Run connects and keeps reconnecting until the session is invalidated
// (ErrLoggedOut), a stricter policy stops it (ErrTerminated), the
// configuration is unusable (*ConfigError) or ctx is cancelled (nil).
func (s *Supervisor) Run(ctx context.Context) error {
	s.persister = creds.NewPersister(s.store, s.clock, s.logger)
	defer s.persister.Close()
	defer s.setState(domain.StateIdle)

	previousCause := ""
	for {
		if err := s.backoff.Wait(ctx); err != nil {
			return nil
		}

		end, outcome, err := s.cycle(ctx, previousCause)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if end != nil && !end.Summary.Opened {
			s.backoff.Failed()
		}

		switch outcome.Action {
		case domain.ActionRetry:
			if outcome.Known {
				s.logger.Info(outcome.Diagnostic, zap.String("reason", outcome.Reason), zap.Duration("next_delay", s.backoff.Next()))
			} else {
				s.logger.Error(outcome.Diagnostic, zap.String("reason", "unknown-retry"), zap.Duration("next_delay", s.backoff.Next()))
			}
			previousCause = outcome.Reason

		case domain.ActionTerminateClean:
			s.logger.Error(outcome.Diagnostic, zap.String("reason", outcome.Reason))
			s.persister.Close()
			if err := s.store.Destroy(); err != nil {
				return errors.Join(ErrLoggedOut, fmt.Errorf("destroy credentials: %w", err))
			}
			s.notifier.LoggedOut(outcome)
			return ErrLoggedOut

		case domain.ActionTerminateUnknown:
			s.logger.Error(outcome.Diagnostic, zap.String("reason", outcome.Reason))
			return fmt.Errorf("%w: %s", ErrTerminated, outcome.Reason)
		}
	}
}

// cycle runs one session attempt from Connecting to Closed. Errors are fatal;
// every recoverable failure comes back as an outcome.
func (s *Supervisor) cycle(ctx context.Context, previousCause string) (*domain.AttemptEnd, domain.Outcome, error) {
	s.setState(domain.StateConnecting)
	select {
	case <-s.commands:
	default:
	}

	if err := s.persister.Flush(ctx); err != nil {
		return nil, domain.Outcome{}, err
	}
	c, err := s.store.Load()
	if err != nil {
		return nil, domain.Outcome{}, fmt.Errorf("load credentials: %w", err)
	}

	var phone string
	if s.cfg.PairingNumber != "" && !c.Registered {
		if phone, err = pairing.Validate(s.cfg.PairingNumber); err != nil {
			return nil, domain.Outcome{}, &ConfigError{Field: "pairing number", Err: err}
		}
	}

	version, latest, err := s.versions.FetchVersion(ctx)
	if err != nil {
		s.logger.Warn("version negotiation failed, using default", zap.Error(err))
	}
	s.logger.Info("using protocol version", zap.Stringer("version", version), zap.Bool("isLatest", latest))

	start := s.tracker.Begin(version, c.Registered, previousCause)
	s.notifier.AttemptStarted(start)

	dialCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.cfg.ConnectTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	}
	sess, err := s.dialer.Dial(dialCtx, transport.DialOptions{
		Version:             version,
		Credentials:         c,
		Browser:             s.cfg.Browser,
		MarkOnlineOnConnect: false,
		GetMessage:          s.cache.Lookup,
	})
	cancel()

	var outcome domain.Outcome
	var code int
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.Outcome{}, ctx.Err()
		}
		outcome = domain.Outcome{
			Action:     domain.ActionRetry,
			Reason:     "dial-failed",
			Diagnostic: "Could not reach gateway, retrying: " + err.Error(),
			Known:      true,
		}
	} else {
		outcome, code, err = s.loop(ctx, sess, phone)
		sess.Close()
		if err != nil {
			s.tracker.End(domain.Outcome{Reason: "stopped"}, 0)
			return nil, domain.Outcome{}, err
		}
	}

	s.setState(domain.StateClosed)
	end := s.tracker.End(outcome, code)
	s.notifier.AttemptEnded(end)
	return end, outcome, nil
}

type pairingResult struct {
	code string
	err  error
}

// loop consumes the session's events until it closes.
func (s *Supervisor) loop(ctx context.Context, sess transport.Session, phone string) (domain.Outcome, int, error) {
	var settle <-chan time.Time
	if phone != "" {
		s.setState(domain.StateAuthenticating)
		t := s.clock.Timer(s.cfg.SettleDelay)
		defer t.Stop()
		settle = t.C
	}
	paired := make(chan pairingResult, 1)
	r := reactor.New(sess, s.seen, s.cfg.Ephemeral, s.logger)

	for {
		select {
		case <-ctx.Done():
			return domain.Outcome{}, 0, ctx.Err()

		case <-s.commands:
			s.logger.Info("reconnect requested")
			return domain.Outcome{
				Action:     domain.ActionRetry,
				Reason:     "reconnect-requested",
				Diagnostic: "Reconnect requested, restarting...",
				Known:      true,
			}, 0, nil

		case <-settle:
			settle = nil
			go func() {
				var res pairingResult
				defer func() {
					if p := recover(); p != nil {
						res = pairingResult{err: fmt.Errorf("pairing request panicked: %v", p)}
					}
					paired <- res
				}()
				res.code, res.err = sess.RequestPairingCode(ctx, phone)
			}()

		case res := <-paired:
			if res.err != nil {
				s.logger.Error("pairing code request failed", zap.Error(res.err))
				continue
			}
			p := pairing.Pending{Phone: phone, Code: res.code}
			s.logger.Info("pairing code issued", zap.String("code", p.Display()))
			s.notifier.PairingCode(p)

		case ev, ok := <-sess.Events():
			if !ok {
				sig := domain.DisconnectSignal{Code: disconnect.CodeConnectionLost, Message: "event stream ended"}
				return s.classifier.Classify(sig), sig.Code, nil
			}
			if closed, outcome, code := s.handle(ctx, sess, r, ev); closed {
				return outcome, code, nil
			}
		}
	}
}

// handle dispatches one event and reports whether it closed the session.
func (s *Supervisor) handle(ctx context.Context, sess transport.Session, r *reactor.Reactor, ev domain.Event) (bool, domain.Outcome, int) {
	switch e := ev.(type) {
	case domain.ConnectionUpdate:
		if e.State != "" {
			s.logger.Info("connection status", zap.String("connection", string(e.State)))
		}
		if e.QR != "" {
			s.logger.Info("login QR received, scan it on the remote device or configure a pairing number", zap.String("qr", e.QR))
		}
		switch e.State {
		case domain.ConnectionOpen:
			s.backoff.Reset()
			s.tracker.Opened()
			s.setState(domain.StateOpen)
			s.guard("connection.open", func() error { return s.announce(ctx, sess) })
		case domain.ConnectionClose:
			sig := domain.DisconnectSignal{Code: disconnect.CodeConnectionLost}
			if e.Disconnect != nil {
				sig = *e.Disconnect
			}
			return true, s.classifier.Classify(sig), sig.Code
		}

	case domain.CredentialsUpdate:
		s.tracker.AddCredentialSave()
		if err := s.persister.Enqueue(e.Credentials); err != nil {
			s.logger.Error("credential update dropped", zap.Error(err))
		}

	case domain.PresenceQuery:
		s.guard("presence.update", func() error { return r.HandlePresence(ctx, e) })

	case domain.MessagesUpsert:
		s.cache.Record(e)
		before := r.Stats().StatusRead
		s.guard("messages.upsert", func() error { return r.HandleMessages(ctx, e) })
		s.tracker.AddMessages(len(e.Messages), r.Stats().StatusRead-before)

	default:
		s.logger.Debug("ignoring event", zap.String("event", domain.EventName(ev)))
	}
	return false, domain.Outcome{}, 0
}

// announce hides the client and tells its owner it is connected. Presence
// must go out before the message.
func (s *Supervisor) announce(ctx context.Context, sess transport.Session) error {
	if err := sess.SetPresence(ctx, domain.PresenceUnavailable); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	user := sess.User()
	if user.ID == "" {
		return errors.New("connected without a user identity")
	}
	return sess.SendMessage(ctx, user.ID.Normalized(), domain.OutgoingMessage{
		Text:      fmt.Sprintf("%s has Connected...", user.Name),
		Ephemeral: s.cfg.Ephemeral,
	})
}

// guard runs an event handler, logging its error or panic instead of letting
// it reach the loop.
func (s *Supervisor) guard(name string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("event handler panicked", zap.String("handler", name), zap.Any("panic", p), zap.Stack("stack"))
		}
	}()
	if err := fn(); err != nil {
		s.logger.Error("event handler failed", zap.String("handler", name), zap.Error(err))
	}
}

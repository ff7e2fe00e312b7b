package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vburojevic/lurk/internal/creds"
	"github.com/vburojevic/lurk/internal/disconnect"
	"github.com/vburojevic/lurk/internal/msgcache"
	"github.com/vburojevic/lurk/internal/pairing"
	"github.com/vburojevic/lurk/internal/supervisor"
	"github.com/vburojevic/lurk/internal/transport"
)

// RunCmd connects and keeps the session alive
type RunCmd struct {
	Store         bool   `help:"Keep an in-memory message store to answer replay requests"`
	PairingNumber string `name:"pairing-number" help:"Pair by phone number instead of QR (digits with country code)"`
	SessionDir    string `name:"session-dir" type:"path" help:"Identity directory holding the credentials"`
	Gateway       string `help:"Gateway websocket URL"`
}

// Run executes the run command
func (c *RunCmd) Run(globals *Globals) error {
	if err := validateFlags(globals); err != nil {
		return err
	}
	cfg := globals.Config

	durations, err := cfg.Durations()
	if err != nil {
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error(), "durations look like 500ms, 3s or 24h")
	}

	logger, err := newLogger(globals)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_FLAGS", err.Error(), "use --level debug, info, warn or error")
	}
	defer logger.Sync()

	sessionDir := lo.Ternary(c.SessionDir != "", c.SessionDir, cfg.Session.Dir)
	store, err := creds.NewFileStore(sessionDir)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_SESSION_DIR", err.Error(), "set session.dir or pass --session-dir")
	}
	gateway := lo.Ternary(c.Gateway != "", c.Gateway, cfg.Gateway.URL)
	pairingNumber := lo.Ternary(c.PairingNumber != "", c.PairingNumber, cfg.Session.PairingNumber)
	useStore := c.Store || cfg.Session.UseStore

	var cache *msgcache.Cache
	if useStore {
		cache = msgcache.New(cfg.Session.StoreCapacity)
	}

	statePath, err := defaultRunStatePath(sessionDir)
	if err != nil {
		logger.Warn("run state disabled", zap.Error(err))
		statePath = ""
	}

	clk := clock.New()
	n := newNotifier(globals, clk, logger, sessionDir, statePath)

	registered := false
	if current, err := store.Load(); err == nil {
		registered = current.Registered
	}

	sup := supervisor.New(supervisor.Options{
		Config: supervisor.Config{
			PairingNumber:  pairingNumber,
			Browser:        transport.DefaultBrowser,
			ConnectTimeout: durations.ConnectTimeout,
			SettleDelay:    durations.SettleDelay,
			Ephemeral:      durations.Ephemeral,
			Backoff: supervisor.BackoffConfig{
				MinDelay:    durations.MinDelay,
				MaxDelay:    durations.MaxDelay,
				MaxAttempts: cfg.Reconnect.MaxAttempts,
				Window:      durations.Window,
			},
		},
		Dialer:     transport.NewWSDialer(gateway, cfg.Gateway.Token, logger),
		Versions:   transport.NewHTTPVersionFetcher(cfg.Gateway.VersionURL),
		Store:      store,
		Classifier: disconnect.Classifier{Policy: disconnect.Policy{ReplacedIsTerminal: cfg.Reconnect.ReplacedIsTerminal}},
		Cache:      cache,
		Notifier:   n,
		Clock:      clk,
		Logger:     logger,
	})
	n.attempt = sup.Attempt

	n.ready(sessionDir, gateway, registered, useStore)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runSupervised(ctx, sup, logger)
	return c.result(globals, err)
}

// runSupervised runs the supervisor next to a SIGHUP watcher that asks it to
// reconnect. Both stop when the supervisor returns.
func runSupervised(ctx context.Context, sup *supervisor.Supervisor, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return sup.Run(gctx)
	})
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info("SIGHUP received, reconnecting")
				sup.Reconnect()
			}
		}
	})
	return g.Wait()
}

func (c *RunCmd) result(globals *Globals, err error) error {
	var cfgErr *supervisor.ConfigError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, supervisor.ErrLoggedOut):
		// Credentials are gone; the next run pairs again.
		return nil
	case errors.Is(err, pairing.ErrInvalidNumber):
		return outputErrorCommon(globals, "INVALID_PAIRING_NUMBER", err.Error(), "Start with your country's WhatsApp code, Example : 62xxx")
	case errors.As(err, &cfgErr):
		return outputErrorCommon(globals, "INVALID_CONFIG", err.Error())
	case errors.Is(err, supervisor.ErrTerminated):
		return outputErrorCommon(globals, "SESSION_TERMINATED", err.Error(), "credentials were kept; run again once the other client is gone")
	default:
		return outputErrorCommon(globals, "RUN_FAILED", err.Error())
	}
}

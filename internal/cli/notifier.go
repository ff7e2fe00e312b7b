package cli

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/lurk/internal/domain"
	"github.com/vburojevic/lurk/internal/output"
	"github.com/vburojevic/lurk/internal/pairing"
)

// notifier renders supervisor events for the operator and keeps the run
// state file current.
type notifier struct {
	globals   *Globals
	ndjson    *output.NDJSONWriter
	text      *output.TextWriter
	clock     clock.Clock
	logger    *zap.Logger
	statePath string
	attempt   func() int

	mu    sync.Mutex
	state runState
}

func newNotifier(globals *Globals, clk clock.Clock, logger *zap.Logger, sessionDir, statePath string) *notifier {
	return &notifier{
		globals:   globals,
		ndjson:    output.NewNDJSONWriter(globals.Stdout),
		text:      output.NewTextWriter(globals.Stdout),
		clock:     clk,
		logger:    logger,
		statePath: statePath,
		attempt:   func() int { return 0 },
		state: runState{
			Type:          "run_state",
			SchemaVersion: output.SchemaVersion,
			SessionDir:    sessionDir,
		},
	}
}

func (n *notifier) now() string {
	return n.clock.Now().UTC().Format(time.RFC3339)
}

func (n *notifier) ndjsonMode() bool { return n.globals.Format == "ndjson" }

// ready announces startup.
func (n *notifier) ready(sessionDir, gateway string, registered, store bool) {
	if n.globals.Quiet {
		return
	}
	if n.ndjsonMode() {
		n.ndjson.WriteReady(n.now(), Version, sessionDir, gateway, registered, store)
		return
	}
	n.text.WriteReady(Version, sessionDir, gateway, registered, store)
}

func (n *notifier) StateChanged(state domain.State) {
	attempt := n.attempt()
	n.update(func(st *runState) {
		st.State = state.String()
		st.Attempt = attempt
		if state == domain.StateOpen {
			st.LastOpenedAt = n.now()
		}
	})
	if n.globals.Quiet {
		return
	}
	if n.ndjsonMode() {
		n.ndjson.WriteState(n.now(), state, attempt)
		return
	}
	n.text.WriteState(state, attempt)
}

func (n *notifier) AttemptStarted(start *domain.AttemptStart) {
	if n.globals.Quiet {
		return
	}
	if n.ndjsonMode() {
		n.ndjson.WriteAttemptStart(start)
		return
	}
	n.text.WriteAttemptStart(start)
}

func (n *notifier) AttemptEnded(end *domain.AttemptEnd) {
	n.update(func(st *runState) {
		st.Attempt = end.Attempt
		st.LastOutcome = end.Outcome
		st.LastReason = end.Reason
		st.LastCode = end.Code
	})
	if n.globals.Quiet {
		return
	}
	if n.ndjsonMode() {
		n.ndjson.WriteAttemptEnd(end)
		return
	}
	n.text.WriteAttemptEnd(end)
}

// PairingCode is shown even in quiet mode; the operator cannot pair without it.
func (n *notifier) PairingCode(p pairing.Pending) {
	if n.ndjsonMode() {
		n.ndjson.WritePairingCode(n.now(), p)
		return
	}
	n.text.WritePairingCode(p)
}

func (n *notifier) LoggedOut(outcome domain.Outcome) {
	n.update(func(st *runState) {
		st.State = "logged_out"
		st.LastOutcome = outcome.Action.String()
		st.LastReason = outcome.Reason
	})
	if n.ndjsonMode() {
		n.ndjson.WriteLoggedOut(n.now(), outcome)
		return
	}
	n.text.WriteLoggedOut(outcome)
}

func (n *notifier) update(fn func(*runState)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn(&n.state)
	if n.statePath == "" {
		return
	}
	n.state.UpdatedAt = n.now()
	st := n.state
	if err := saveRunState(n.statePath, &st); err != nil {
		n.logger.Warn("failed to save run state", zap.String("path", n.statePath), zap.Error(err))
	}
}

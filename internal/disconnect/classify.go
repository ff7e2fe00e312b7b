// Package disconnect maps gateway disconnect codes to supervisor actions.
package disconnect

import (
	"fmt"

	"github.com/vburojevic/lurk/internal/domain"
)

// Disconnect codes reported by the gateway.
const (
	CodeLoggedOut           = 401
	CodeConnectionLost      = 408
	CodeTimedOut            = 408
	CodeMultideviceMismatch = 411
	CodeConnectionClosed    = 428
	CodeConnectionReplaced  = 440
	CodeBadSession          = 500
	CodeRestartRequired     = 515
)

type category struct {
	reason     string
	action     domain.Action
	diagnostic string
}

var categories = map[int]category{
	CodeBadSession:          {"bad-session", domain.ActionRetry, "Bad Session File, Restart Required"},
	CodeConnectionClosed:    {"connection-closed", domain.ActionRetry, "Connection Closed, Restart Required"},
	CodeConnectionLost:      {"connection-lost", domain.ActionRetry, "Connection Lost from Server, Reconnecting..."},
	CodeConnectionReplaced:  {"connection-replaced", domain.ActionRetry, "Connection Replaced, Restart Required"},
	CodeRestartRequired:     {"restart-required", domain.ActionRetry, "Restart Required, Restarting..."},
	CodeLoggedOut:           {"logged-out", domain.ActionTerminateClean, "Device has Logged Out, please re-authenticate"},
	CodeMultideviceMismatch: {"multidevice-mismatch", domain.ActionTerminateClean, "Multi-device version mismatch, please update and re-authenticate"},
}

// Policy holds the deployment choices the classifier cannot infer.
type Policy struct {
	// ReplacedIsTerminal stops instead of reconnecting when another client
	// instance took over the identity.
	ReplacedIsTerminal bool
}

// Classifier is a pure mapping from signal to outcome.
type Classifier struct {
	Policy Policy
}

// Classify returns the outcome for a signal. Unrecognized codes retry with
// Known set to false.
func (c Classifier) Classify(sig domain.DisconnectSignal) domain.Outcome {
	cat, ok := categories[sig.Code]
	if !ok {
		return domain.Outcome{
			Action:     domain.ActionRetry,
			Reason:     "unknown",
			Diagnostic: fmt.Sprintf("Unrecognized disconnect (%s), reconnecting", sig.Error()),
			Known:      false,
		}
	}
	out := domain.Outcome{
		Action:     cat.action,
		Reason:     cat.reason,
		Diagnostic: cat.diagnostic,
		Known:      true,
	}
	if sig.Code == CodeConnectionReplaced && c.Policy.ReplacedIsTerminal {
		out.Action = domain.ActionTerminateUnknown
		out.Diagnostic = "Connection Replaced by another client, stopping"
	}
	return out
}

// Classify uses the default policy.
func Classify(sig domain.DisconnectSignal) domain.Outcome {
	return Classifier{}.Classify(sig)
}

package disconnect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vburojevic/lurk/internal/domain"
)

func TestClassifyTransientSignalsRetry(t *testing.T) {
	tests := []struct {
		code   int
		reason string
	}{
		{CodeBadSession, "bad-session"},
		{CodeConnectionClosed, "connection-closed"},
		{CodeConnectionLost, "connection-lost"},
		{CodeTimedOut, "connection-lost"},
		{CodeConnectionReplaced, "connection-replaced"},
		{CodeRestartRequired, "restart-required"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			out := Classify(domain.DisconnectSignal{Code: tt.code})
			assert.Equal(t, domain.ActionRetry, out.Action)
			assert.Equal(t, tt.reason, out.Reason)
			assert.True(t, out.Known)
			assert.NotEmpty(t, out.Diagnostic)
		})
	}
}

func TestClassifyInvalidSessionTerminatesClean(t *testing.T) {
	for _, code := range []int{CodeLoggedOut, CodeMultideviceMismatch} {
		out := Classify(domain.DisconnectSignal{Code: code})
		assert.Equal(t, domain.ActionTerminateClean, out.Action, "code %d", code)
		assert.True(t, out.Known)
	}
}

func TestClassifyUnknownRetries(t *testing.T) {
	for _, code := range []int{0, -1, 403, 503, 999999} {
		var out domain.Outcome
		assert.NotPanics(t, func() {
			out = Classify(domain.DisconnectSignal{Code: code, Message: "boom"})
		})
		assert.Equal(t, domain.ActionRetry, out.Action, "code %d", code)
		assert.False(t, out.Known)
		assert.Equal(t, "unknown", out.Reason)
		assert.Contains(t, out.Diagnostic, "boom")
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	sig := domain.DisconnectSignal{Code: CodeConnectionLost}
	assert.Equal(t, Classify(sig), Classify(sig))
}

func TestReplacedIsTerminalPolicy(t *testing.T) {
	c := Classifier{Policy: Policy{ReplacedIsTerminal: true}}

	out := c.Classify(domain.DisconnectSignal{Code: CodeConnectionReplaced})
	assert.Equal(t, domain.ActionTerminateUnknown, out.Action)
	assert.Equal(t, "connection-replaced", out.Reason)

	// other codes are unaffected
	out = c.Classify(domain.DisconnectSignal{Code: CodeConnectionLost})
	assert.Equal(t, domain.ActionRetry, out.Action)
}

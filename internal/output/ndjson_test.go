package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vburojevic/lurk/internal/domain"
	"github.com/vburojevic/lurk/internal/pairing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line, err := buf.ReadBytes('\n')
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &m))
	return m
}

func TestWriteReady(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	err := w.WriteReady("2026-01-02T10:00:00Z", "v1.2.0", "./sessions", "ws://gw/ws", true, false)
	require.NoError(t, err)

	m := decodeLine(t, buf)
	require.Equal(t, "ready", m["type"])
	require.EqualValues(t, 1, m["schemaVersion"])
	require.Equal(t, "./sessions", m["session_dir"])
	require.Equal(t, "ws://gw/ws", m["gateway"])
	require.Equal(t, true, m["registered"])
	require.Equal(t, false, m["store"])
}

func TestWriteState(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	require.NoError(t, w.WriteState("2026-01-02T10:00:00Z", domain.StateAuthenticating, 3))

	m := decodeLine(t, buf)
	require.Equal(t, "state", m["type"])
	require.Equal(t, domain.StateAuthenticating.String(), m["state"])
	require.EqualValues(t, 3, m["attempt"])
}

func TestWritePairingCodeUsesDisplayForm(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	require.NoError(t, w.WritePairingCode("2026-01-02T10:00:00Z", pairing.Pending{Phone: "14155552671", Code: "ABCD1234"}))

	m := decodeLine(t, buf)
	require.Equal(t, "pairing_code", m["type"])
	require.Equal(t, "14155552671", m["phone"])
	require.Equal(t, "ABCD-1234", m["code"])
}

func TestWriteAttemptEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	start := domain.NewAttemptStart(2, "connection-lost", domain.Version{2, 3000, 1}, true)
	require.NoError(t, w.WriteAttemptStart(start))
	end := domain.NewAttemptEnd(2, domain.Outcome{Action: domain.ActionRetry, Reason: "restart-required"}, 515, domain.AttemptSummary{Opened: true, Messages: 4})
	require.NoError(t, w.WriteAttemptEnd(end))

	m := decodeLine(t, buf)
	require.Equal(t, "attempt_start", m["type"])
	require.Equal(t, "RECONNECTING", m["alert"])
	require.Equal(t, "connection-lost", m["previous_cause"])

	m = decodeLine(t, buf)
	require.Equal(t, "attempt_end", m["type"])
	require.Equal(t, "restart-required", m["reason"])
	require.EqualValues(t, 515, m["code"])
	summary, ok := m["summary"].(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, 4, summary["messages"])
}

func TestWriteLoggedOut(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	outcome := domain.Outcome{Action: domain.ActionTerminateClean, Reason: "logged-out", Diagnostic: "Device has Logged Out"}
	require.NoError(t, w.WriteLoggedOut("2026-01-02T10:00:00Z", outcome))

	m := decodeLine(t, buf)
	require.Equal(t, "logged_out", m["type"])
	require.Equal(t, "logged-out", m["reason"])
	require.Equal(t, "Device has Logged Out", m["message"])
}

func TestWriteError(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewNDJSONWriter(buf)

	require.NoError(t, w.WriteError("INVALID_PAIRING_NUMBER", "bad number", "start with your country code"))
	require.NoError(t, w.WriteError("LOAD_FAILED", "boom"))

	m := decodeLine(t, buf)
	require.Equal(t, "error", m["type"])
	require.Equal(t, "INVALID_PAIRING_NUMBER", m["code"])
	require.Equal(t, "start with your country code", m["hint"])

	m = decodeLine(t, buf)
	require.NotContains(t, m, "hint")
}

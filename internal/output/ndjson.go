// Package output renders operator-facing events as NDJSON or text.
package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/vburojevic/lurk/internal/domain"
	"github.com/vburojevic/lurk/internal/pairing"
)

// SchemaVersion is stamped on every NDJSON line.
const SchemaVersion = 1

// Ready is emitted once when the client starts.
type Ready struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	Version       string `json:"version"`
	SessionDir    string `json:"session_dir"`
	Registered    bool   `json:"registered"`
	Gateway       string `json:"gateway"`
	Store         bool   `json:"store"`
}

// StateChange is emitted on every connection state transition.
type StateChange struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	State         string `json:"state"`
	Attempt       int    `json:"attempt"`
}

// PairingCode carries a code the operator must enter on the remote device.
type PairingCode struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	Phone         string `json:"phone"`
	Code          string `json:"code"`
}

// LoggedOut is emitted after the credentials were destroyed.
type LoggedOut struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Timestamp     string `json:"timestamp"`
	Reason        string `json:"reason"`
	Message       string `json:"message"`
}

// ErrorOutput is a machine-readable failure.
type ErrorOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	Hint          string `json:"hint,omitempty"`
}

// NDJSONWriter writes one JSON object per line. It is safe for concurrent use.
type NDJSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewNDJSONWriter creates a writer on w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{enc: json.NewEncoder(w)}
}

func (w *NDJSONWriter) encode(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(v)
}

// WriteReady writes the startup line.
func (w *NDJSONWriter) WriteReady(timestamp, version, sessionDir, gateway string, registered, store bool) error {
	return w.encode(&Ready{
		Type:          "ready",
		SchemaVersion: SchemaVersion,
		Timestamp:     timestamp,
		Version:       version,
		SessionDir:    sessionDir,
		Registered:    registered,
		Gateway:       gateway,
		Store:         store,
	})
}

// WriteState writes a state transition.
func (w *NDJSONWriter) WriteState(timestamp string, state domain.State, attempt int) error {
	return w.encode(&StateChange{
		Type:          "state",
		SchemaVersion: SchemaVersion,
		Timestamp:     timestamp,
		State:         state.String(),
		Attempt:       attempt,
	})
}

// WritePairingCode writes a pairing code in its display form.
func (w *NDJSONWriter) WritePairingCode(timestamp string, p pairing.Pending) error {
	return w.encode(&PairingCode{
		Type:          "pairing_code",
		SchemaVersion: SchemaVersion,
		Timestamp:     timestamp,
		Phone:         p.Phone,
		Code:          p.Display(),
	})
}

// WriteAttemptStart writes the start of a session attempt.
func (w *NDJSONWriter) WriteAttemptStart(start *domain.AttemptStart) error {
	return w.encode(start)
}

// WriteAttemptEnd writes the end of a session attempt.
func (w *NDJSONWriter) WriteAttemptEnd(end *domain.AttemptEnd) error {
	return w.encode(end)
}

// WriteLoggedOut writes the logged-out notice.
func (w *NDJSONWriter) WriteLoggedOut(timestamp string, outcome domain.Outcome) error {
	return w.encode(&LoggedOut{
		Type:          "logged_out",
		SchemaVersion: SchemaVersion,
		Timestamp:     timestamp,
		Reason:        outcome.Reason,
		Message:       outcome.Diagnostic,
	})
}

// WriteError writes an error line. Only the first hint is kept.
func (w *NDJSONWriter) WriteError(code, message string, hint ...string) error {
	out := &ErrorOutput{
		Type:          "error",
		SchemaVersion: SchemaVersion,
		Code:          code,
		Message:       message,
	}
	if len(hint) > 0 {
		out.Hint = hint[0]
	}
	return w.encode(out)
}

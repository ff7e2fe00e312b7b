package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vburojevic/lurk/internal/domain"
	"github.com/vburojevic/lurk/internal/pairing"
)

func TestTextWriterIsPlainOffTerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf)

	assert.False(t, IsTerminal(buf))
	assert.NoError(t, w.WritePairingCode(pairing.Pending{Phone: "14155552671", Code: "ABCD1234"}))
	assert.Equal(t, "Your Pairing Code : ABCD-1234\n", buf.String())
}

func TestTextWriterLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf)

	assert.NoError(t, w.WriteState(domain.StateOpen, 1))
	assert.NoError(t, w.WriteAttemptStart(domain.NewAttemptStart(2, "connection-lost", domain.Version{2, 3000, 1}, true)))
	assert.NoError(t, w.WriteError("LOAD_FAILED", "boom", "check permissions"))

	out := buf.String()
	assert.Contains(t, out, "Connection Status : "+domain.StateOpen.String())
	assert.Contains(t, out, "RECONNECTING after connection-lost")
	assert.Contains(t, out, "using version 2.3000.1")
	assert.Contains(t, out, "Error [LOAD_FAILED]: boom (hint: check permissions)")
}

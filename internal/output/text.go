package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/vburojevic/lurk/internal/domain"
	"github.com/vburojevic/lurk/internal/pairing"
)

var (
	codeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// TextWriter prints human-readable lines.
type TextWriter struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewTextWriter creates a writer on w, colored when w is a terminal.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w, color: IsTerminal(w)}
}

// SetColor forces coloring on or off.
func (t *TextWriter) SetColor(on bool) { t.color = on }

func (t *TextWriter) render(style lipgloss.Style, s string) string {
	if !t.color {
		return s
	}
	return style.Render(s)
}

func (t *TextWriter) printf(format string, args ...any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, format, args...)
	return err
}

// WriteReady prints the startup banner.
func (t *TextWriter) WriteReady(version, sessionDir, gateway string, registered, store bool) error {
	pairedState := "not paired"
	if registered {
		pairedState = "paired"
	}
	return t.printf("lurk %s: session %s (%s), gateway %s, message store %v\n", version, sessionDir, pairedState, gateway, store)
}

// WriteState prints a state transition.
func (t *TextWriter) WriteState(state domain.State, attempt int) error {
	return t.printf("Connection Status : %s (attempt %d)\n", state, attempt)
}

// WriteAttemptStart prints an attempt banner; reconnects are highlighted.
func (t *TextWriter) WriteAttemptStart(start *domain.AttemptStart) error {
	line := fmt.Sprintf("using version %s, registered: %v", start.Version, start.Registered)
	if start.Alert != "" {
		line = t.render(alertStyle, fmt.Sprintf("%s after %s", start.Alert, start.PreviousCause)) + ", " + line
	}
	return t.printf("%s\n", line)
}

// WriteAttemptEnd prints the attempt summary.
func (t *TextWriter) WriteAttemptEnd(end *domain.AttemptEnd) error {
	return t.printf("attempt %d ended: %s (%s, code %d), %d messages, %d statuses read\n",
		end.Attempt, end.Outcome, end.Reason, end.Code, end.Summary.Messages, end.Summary.StatusRead)
}

// WritePairingCode prints the code in green.
func (t *TextWriter) WritePairingCode(p pairing.Pending) error {
	return t.printf("Your Pairing Code : %s\n", t.render(codeStyle, p.Display()))
}

// WriteLoggedOut prints the logged-out notice.
func (t *TextWriter) WriteLoggedOut(outcome domain.Outcome) error {
	return t.printf("%s\n", t.render(errorStyle, outcome.Diagnostic))
}

// WriteError prints "Error [CODE]: message (hint: ...)".
func (t *TextWriter) WriteError(code, message string, hint ...string) error {
	line := fmt.Sprintf("Error [%s]: %s", code, message)
	if len(hint) > 0 && hint[0] != "" {
		line += fmt.Sprintf(" (hint: %s)", hint[0])
	}
	return t.printf("%s\n", t.render(errorStyle, line))
}

package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/vburojevic/lurk/internal/creds"
	"github.com/vburojevic/lurk/internal/output"
)

// StatusCmd shows the local identity and how its last run went
type StatusCmd struct {
	SessionDir string `name:"session-dir" type:"path" help:"Identity directory holding the credentials"`
}

// StatusOutput is the NDJSON form of the status
type StatusOutput struct {
	Type          string    `json:"type"`
	SchemaVersion int       `json:"schemaVersion"`
	SessionDir    string    `json:"session_dir"`
	Paired        bool      `json:"paired"`
	Me            string    `json:"me,omitempty"`
	LastRun       *runState `json:"last_run,omitempty"`
}

// Run executes the status command
func (c *StatusCmd) Run(globals *Globals) error {
	sessionDir := lo.Ternary(c.SessionDir != "", c.SessionDir, globals.Config.Session.Dir)
	store, err := creds.NewFileStore(sessionDir)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_SESSION_DIR", err.Error(), "set session.dir or pass --session-dir")
	}
	current, err := store.Load()
	if err != nil {
		return outputErrorCommon(globals, "LOAD_FAILED", err.Error(), "run 'lurk logout' to start over")
	}

	var last *runState
	if path, err := defaultRunStatePath(sessionDir); err == nil {
		last, _ = loadRunState(path)
	}

	out := StatusOutput{
		Type:          "status",
		SchemaVersion: output.SchemaVersion,
		SessionDir:    sessionDir,
		Paired:        current.Registered,
		Me:            current.Me.Normalized().String(),
		LastRun:       last,
	}
	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(&out)
	}
	return c.outputText(globals, &out)
}

func (c *StatusCmd) outputText(globals *Globals, out *StatusOutput) error {
	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("Field", "Value")

	rows := [][]string{
		{"Session directory", out.SessionDir},
		{"Paired", strconv.FormatBool(out.Paired)},
	}
	if out.Me != "" {
		rows = append(rows, []string{"Account", out.Me})
	}
	if st := out.LastRun; st != nil {
		rows = append(rows,
			[]string{"State", st.State},
			[]string{"Attempts", strconv.Itoa(st.Attempt)},
		)
		if st.LastReason != "" {
			rows = append(rows, []string{"Last disconnect", fmt.Sprintf("%s (%s, code %d)", st.LastReason, st.LastOutcome, st.LastCode)})
		}
		if t, err := parseRFC3339Any(st.LastOpenedAt); err == nil && !t.IsZero() {
			rows = append(rows, []string{"Last opened", fmt.Sprintf("%s (%s ago)", st.LastOpenedAt, time.Since(t).Round(time.Second))})
		}
	} else {
		rows = append(rows, []string{"State", "never run"})
	}

	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

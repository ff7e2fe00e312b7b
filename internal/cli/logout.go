package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"

	"github.com/vburojevic/lurk/internal/creds"
	"github.com/vburojevic/lurk/internal/output"
)

// LogoutCmd destroys the local credentials of an identity
type LogoutCmd struct {
	SessionDir string `name:"session-dir" type:"path" help:"Identity directory holding the credentials"`
	KeepState  bool   `help:"Keep the run state shown by 'lurk status'"`
}

// LogoutOutput is the NDJSON result of a logout
type LogoutOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	SessionDir    string `json:"session_dir"`
	Existed       bool   `json:"existed"`
}

// Run executes the logout command
func (c *LogoutCmd) Run(globals *Globals) error {
	sessionDir := lo.Ternary(c.SessionDir != "", c.SessionDir, globals.Config.Session.Dir)
	store, err := creds.NewFileStore(sessionDir)
	if err != nil {
		return outputErrorCommon(globals, "INVALID_SESSION_DIR", err.Error(), "set session.dir or pass --session-dir")
	}

	existed := store.Exists()
	if err := store.Destroy(); err != nil {
		return outputErrorCommon(globals, "LOGOUT_FAILED", err.Error())
	}
	if !c.KeepState {
		if path, err := defaultRunStatePath(sessionDir); err == nil {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return outputErrorCommon(globals, "LOGOUT_FAILED", err.Error())
			}
		}
	}

	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(&LogoutOutput{
			Type:          "logout",
			SchemaVersion: output.SchemaVersion,
			SessionDir:    sessionDir,
			Existed:       existed,
		})
	}
	if existed {
		fmt.Fprintf(globals.Stdout, "Removed credentials in %s; the next run pairs again.\n", sessionDir)
	} else {
		fmt.Fprintf(globals.Stdout, "No credentials in %s.\n", sessionDir)
	}
	return nil
}

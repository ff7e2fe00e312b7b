package cli

import (
	"errors"

	"github.com/vburojevic/lurk/internal/output"
)

// outputErrorCommon normalizes error emission across commands, respecting
// ndjson vs text formats so failures stay machine-readable.
func outputErrorCommon(globals *Globals, code, message string, hint ...string) error {
	if globals != nil && globals.Format == "ndjson" {
		output.NewNDJSONWriter(globals.Stdout).WriteError(code, message, hint...)
	} else if globals != nil {
		output.NewTextWriter(globals.Stderr).WriteError(code, message, hint...)
	}
	return errors.New(message)
}

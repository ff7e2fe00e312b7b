package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/vburojevic/lurk/internal/output"
	"github.com/vburojevic/lurk/internal/transport"
)

// VersionCmd shows version information and how to upgrade
type VersionCmd struct{}

// VersionOutput represents the NDJSON output for version information
type VersionOutput struct {
	Type            string `json:"type"`
	SchemaVersion   int    `json:"schemaVersion"`
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	GoVersion       string `json:"go_version"`
	ProtocolDefault string `json:"protocol_default"`
	GoInstall       string `json:"go_install"`
}

const goInstallCmd = "go install github.com/vburojevic/lurk/cmd/lurk@latest"

// Run executes the version command
func (c *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(VersionOutput{
			Type:            "version",
			SchemaVersion:   output.SchemaVersion,
			Version:         Version,
			Commit:          Commit,
			GoVersion:       runtime.Version(),
			ProtocolDefault: transport.DefaultVersion.String(),
			GoInstall:       goInstallCmd,
		})
	}

	fmt.Fprintf(globals.Stdout, "lurk version %s (%s)\n", Version, Commit)
	fmt.Fprintf(globals.Stdout, "Built with %s, default protocol version %s\n", runtime.Version(), transport.DefaultVersion)
	fmt.Fprintln(globals.Stdout)
	fmt.Fprintln(globals.Stdout, "To upgrade via Go:")
	fmt.Fprintf(globals.Stdout, "  %s\n", goInstallCmd)
	return nil
}

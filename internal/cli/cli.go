// Package cli implements the lurk command line.
package cli

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/lurk/internal/config"
)

// Set by the linker.
var (
	Version = "dev"
	Commit  = "none"
)

// CLI is the root command.
type CLI struct {
	Format     string `short:"f" default:"${config_format}" enum:"ndjson,text" help:"Output format (ndjson or text)"`
	Level      string `short:"l" default:"${config_level}" enum:"debug,info,warn,error" help:"Minimum log level"`
	Quiet      bool   `short:"q" help:"Suppress state and attempt lines"`
	Verbose    bool   `short:"v" help:"Debug logging (overrides --level)"`
	ConfigFile string `name:"config" type:"path" help:"Config file to load instead of the search path"`

	Run        RunCmd        `cmd:"" default:"withargs" help:"Connect and keep the session alive (default)"`
	Logout     LogoutCmd     `cmd:"" help:"Destroy the local session credentials"`
	Status     StatusCmd     `cmd:"" help:"Show the local session and last run"`
	Config     ConfigCmd     `cmd:"" help:"Inspect or generate configuration"`
	Version    VersionCmd    `cmd:"" help:"Show version information"`
	Completion CompletionCmd `cmd:"" help:"Generate shell completions"`
}

// Globals is handed to every command's Run.
type Globals struct {
	Format     string
	Level      string
	Quiet      bool
	Verbose    bool
	Stdout     io.Writer
	Stderr     io.Writer
	Config     *config.Config
	ConfigPath string // file the config came from, empty for defaults
}

// KongVars exposes configured defaults to the flag definitions.
func KongVars(cfg *config.Config) kong.Vars {
	return kong.Vars{
		"config_format": cfg.Format,
		"config_level":  cfg.Level,
	}
}

// NewGlobalsWithConfig merges parsed flags with the loaded configuration.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	path := c.ConfigFile
	if path == "" {
		path = config.ConfigFile()
	}
	return &Globals{
		Format:     c.Format,
		Level:      c.Level,
		Quiet:      c.Quiet || cfg.Quiet,
		Verbose:    c.Verbose || cfg.Verbose,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Config:     cfg,
		ConfigPath: path,
	}
}

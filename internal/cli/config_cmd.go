package cli

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/vburojevic/lurk/internal/config"
	"github.com/vburojevic/lurk/internal/output"
)

// ConfigCmd groups the configuration subcommands
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show the effective configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show which config file is used"`
	Generate ConfigGenerateCmd `cmd:"" help:"Print a sample config file"`
}

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct{}

// ConfigOutput is the NDJSON form of the configuration
type ConfigOutput struct {
	Type          string                 `json:"type"`
	SchemaVersion int                    `json:"schemaVersion"`
	File          string                 `json:"file,omitempty"`
	Format        string                 `json:"format"`
	Level         string                 `json:"level"`
	Quiet         bool                   `json:"quiet"`
	Verbose       bool                   `json:"verbose"`
	Session       config.SessionConfig   `json:"session"`
	Gateway       gatewayOutput          `json:"gateway"`
	Reconnect     config.ReconnectConfig `json:"reconnect"`
	Pairing       config.PairingConfig   `json:"pairing"`
	Notify        config.NotifyConfig    `json:"notify"`
}

type gatewayOutput struct {
	URL            string `json:"url"`
	VersionURL     string `json:"version_url,omitempty"`
	ConnectTimeout string `json:"connect_timeout"`
	TokenSet       bool   `json:"token_set"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(&ConfigOutput{
			Type:          "config",
			SchemaVersion: output.SchemaVersion,
			File:          globals.ConfigPath,
			Format:        cfg.Format,
			Level:         cfg.Level,
			Quiet:         cfg.Quiet,
			Verbose:       cfg.Verbose,
			Session:       cfg.Session,
			Gateway: gatewayOutput{
				URL:            cfg.Gateway.URL,
				VersionURL:     cfg.Gateway.VersionURL,
				ConnectTimeout: cfg.Gateway.ConnectTimeout,
				TokenSet:       cfg.Gateway.Token != "",
			},
			Reconnect: cfg.Reconnect,
			Pairing:   cfg.Pairing,
			Notify:    cfg.Notify,
		})
	}

	w := globals.Stdout
	fmt.Fprintln(w, "Current Configuration:")
	if globals.ConfigPath != "" {
		fmt.Fprintf(w, "  (from %s)\n", globals.ConfigPath)
	}
	fmt.Fprintf(w, "  format: %s\n", cfg.Format)
	fmt.Fprintf(w, "  level: %s\n", cfg.Level)
	fmt.Fprintf(w, "  quiet: %v\n", cfg.Quiet)
	fmt.Fprintf(w, "  verbose: %v\n", cfg.Verbose)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Session:")
	fmt.Fprintf(w, "  dir: %s\n", cfg.Session.Dir)
	fmt.Fprintf(w, "  use_store: %v (capacity %d)\n", cfg.Session.UseStore, cfg.Session.StoreCapacity)
	if cfg.Session.PairingNumber != "" {
		fmt.Fprintf(w, "  pairing_number: %s\n", cfg.Session.PairingNumber)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Gateway:")
	fmt.Fprintf(w, "  url: %s\n", cfg.Gateway.URL)
	if cfg.Gateway.VersionURL != "" {
		fmt.Fprintf(w, "  version_url: %s\n", cfg.Gateway.VersionURL)
	}
	fmt.Fprintf(w, "  connect_timeout: %s\n", cfg.Gateway.ConnectTimeout)
	fmt.Fprintf(w, "  token: %s\n", lo.Ternary(cfg.Gateway.Token != "", "(set)", "(none)"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reconnect:")
	fmt.Fprintf(w, "  delay: %s .. %s\n", cfg.Reconnect.MinDelay, cfg.Reconnect.MaxDelay)
	fmt.Fprintf(w, "  limit: %d attempts per %s\n", cfg.Reconnect.MaxAttempts, cfg.Reconnect.Window)
	fmt.Fprintf(w, "  replaced_is_terminal: %v\n", cfg.Reconnect.ReplacedIsTerminal)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Pairing settle delay: %s\n", cfg.Pairing.SettleDelay)
	fmt.Fprintf(w, "Notification expiry: %s\n", cfg.Notify.Ephemeral)
	return nil
}

// ConfigPathCmd shows the config file in use
type ConfigPathCmd struct{}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := globals.ConfigPath

	if globals.Format == "ndjson" {
		return json.NewEncoder(globals.Stdout).Encode(map[string]interface{}{
			"type":          "config_path",
			"schemaVersion": output.SchemaVersion,
			"path":          path,
			"found":         path != "",
		})
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found; using defaults.")
		fmt.Fprintln(globals.Stdout, "Create one with: lurk config generate > ~/.lurk.yaml")
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	return nil
}

// ConfigGenerateCmd prints a sample config file
type ConfigGenerateCmd struct{}

const sampleConfig = `# lurk configuration file
# Place at ~/.lurk.yaml, ~/.config/lurk/lurk.yaml, /etc/lurk/lurk.yaml or ./.lurkrc.yaml
# Every key can be overridden with LURK_<SECTION>_<KEY>, e.g. LURK_SESSION_DIR.

format: text   # ndjson or text
level: info    # debug, info, warn, error
quiet: false
verbose: false

session:
  dir: ./sessions
  use_store: false
  store_capacity: 5000
  # pairing_number: "62xxx"   # or PAIRING_NUMBER; empty pairs by QR

gateway:
  url: ws://127.0.0.1:8787/ws
  # version_url: http://127.0.0.1:8787/version
  connect_timeout: 30s
  # token: ""

reconnect:
  min_delay: 1s
  max_delay: 30s
  max_attempts: 10
  window: 1m
  replaced_is_terminal: false

pairing:
  settle_delay: 3s

notify:
  ephemeral: 24h
`

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	_, err := fmt.Fprint(globals.Stdout, sampleConfig)
	return err
}

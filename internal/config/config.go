package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Level   string `mapstructure:"level"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	Session   SessionConfig   `mapstructure:"session"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
	Pairing   PairingConfig   `mapstructure:"pairing"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// SessionConfig locates the identity and its optional message store
type SessionConfig struct {
	Dir           string `mapstructure:"dir"`
	UseStore      bool   `mapstructure:"use_store"`
	StoreCapacity int    `mapstructure:"store_capacity"`
	PairingNumber string `mapstructure:"pairing_number"`
}

// GatewayConfig points at the protocol gateway
type GatewayConfig struct {
	URL            string `mapstructure:"url"`
	VersionURL     string `mapstructure:"version_url"`
	ConnectTimeout string `mapstructure:"connect_timeout"`
	Token          string `mapstructure:"token"`
}

// ReconnectConfig bounds the reconnect loop
type ReconnectConfig struct {
	MinDelay           string `mapstructure:"min_delay"`
	MaxDelay           string `mapstructure:"max_delay"`
	MaxAttempts        int    `mapstructure:"max_attempts"`
	Window             string `mapstructure:"window"`
	ReplacedIsTerminal bool   `mapstructure:"replaced_is_terminal"`
}

// PairingConfig tunes phone-number pairing
type PairingConfig struct {
	SettleDelay string `mapstructure:"settle_delay"`
}

// NotifyConfig tunes the self-notifications
type NotifyConfig struct {
	Ephemeral string `mapstructure:"ephemeral"`
}

// Durations is the parsed form of every duration setting
type Durations struct {
	ConnectTimeout time.Duration
	MinDelay       time.Duration
	MaxDelay       time.Duration
	Window         time.Duration
	SettleDelay    time.Duration
	Ephemeral      time.Duration
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:  "text",
		Level:   "info",
		Quiet:   false,
		Verbose: false,
		Session: SessionConfig{
			Dir:           "./sessions",
			StoreCapacity: 5000,
		},
		Gateway: GatewayConfig{
			URL:            "ws://127.0.0.1:8787/ws",
			ConnectTimeout: "30s",
		},
		Reconnect: ReconnectConfig{
			MinDelay:    "1s",
			MaxDelay:    "30s",
			MaxAttempts: 10,
			Window:      "1m",
		},
		Pairing: PairingConfig{
			SettleDelay: "3s",
		},
		Notify: NotifyConfig{
			Ephemeral: "24h",
		},
	}
}

// Durations parses the duration settings. Empty values parse as zero.
func (c *Config) Durations() (Durations, error) {
	var d Durations
	var errs []error
	parse := func(key, value string, dst *time.Duration) {
		if strings.TrimSpace(value) == "" {
			return
		}
		v, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative (got %s)", key, value))
			return
		}
		*dst = v
	}
	parse("gateway.connect_timeout", c.Gateway.ConnectTimeout, &d.ConnectTimeout)
	parse("reconnect.min_delay", c.Reconnect.MinDelay, &d.MinDelay)
	parse("reconnect.max_delay", c.Reconnect.MaxDelay, &d.MaxDelay)
	parse("reconnect.window", c.Reconnect.Window, &d.Window)
	parse("pairing.settle_delay", c.Pairing.SettleDelay, &d.SettleDelay)
	parse("notify.ephemeral", c.Notify.Ephemeral, &d.Ephemeral)
	if d.MaxDelay > 0 && d.MaxDelay < d.MinDelay {
		errs = append(errs, fmt.Errorf("reconnect.max_delay (%s) is below reconnect.min_delay (%s)", d.MaxDelay, d.MinDelay))
	}
	if c.Reconnect.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("reconnect.max_attempts: must not be negative (got %d)", c.Reconnect.MaxAttempts))
	}
	return d, errors.Join(errs...)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("format", cfg.Format)
	v.SetDefault("level", cfg.Level)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("session.dir", cfg.Session.Dir)
	v.SetDefault("session.use_store", cfg.Session.UseStore)
	v.SetDefault("session.store_capacity", cfg.Session.StoreCapacity)
	v.SetDefault("session.pairing_number", cfg.Session.PairingNumber)
	v.SetDefault("gateway.url", cfg.Gateway.URL)
	v.SetDefault("gateway.version_url", cfg.Gateway.VersionURL)
	v.SetDefault("gateway.connect_timeout", cfg.Gateway.ConnectTimeout)
	v.SetDefault("gateway.token", cfg.Gateway.Token)
	v.SetDefault("reconnect.min_delay", cfg.Reconnect.MinDelay)
	v.SetDefault("reconnect.max_delay", cfg.Reconnect.MaxDelay)
	v.SetDefault("reconnect.max_attempts", cfg.Reconnect.MaxAttempts)
	v.SetDefault("reconnect.window", cfg.Reconnect.Window)
	v.SetDefault("reconnect.replaced_is_terminal", cfg.Reconnect.ReplacedIsTerminal)
	v.SetDefault("pairing.settle_delay", cfg.Pairing.SettleDelay)
	v.SetDefault("notify.ephemeral", cfg.Notify.Ephemeral)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("LURK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "LURK_FORMAT")
	v.BindEnv("level", "LURK_LEVEL")
	v.BindEnv("quiet", "LURK_QUIET")
	v.BindEnv("verbose", "LURK_VERBOSE")
	v.BindEnv("gateway.token", "LURK_GATEWAY_TOKEN")
	// Older deployments only set PAIRING_NUMBER.
	v.BindEnv("session.pairing_number", "LURK_SESSION_PAIRING_NUMBER", "PAIRING_NUMBER")
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("lurk")
	v.SetConfigType("yaml")

	// Add config paths (in order of precedence, lowest first)
	v.AddConfigPath("/etc/lurk/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "lurk"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".lurk")
	}
	v.AddConfigPath(".")

	// Also check for .lurkrc file
	v.SetConfigName(".lurkrc")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	bindEnv(v)
	cfg := Default()
	setDefaults(v, cfg)

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file. Environment
// variables still override it.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	bindEnv(v)
	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	v := viper.New()

	v.SetConfigName("lurk")
	v.SetConfigType("yaml")

	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "lurk"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}

	// Try .lurkrc
	v.SetConfigName(".lurkrc")
	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}

	return ""
}

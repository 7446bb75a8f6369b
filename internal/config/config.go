// Package config loads the gatekeeper configuration: the safety constraint
// list and the security options. The file is read once at startup; this
// subsystem never rewrites it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dverholt/agentward/internal/safety"
)

const (
	DefaultConfigDir  = ".agentward"
	DefaultConfigFile = "config.yaml"
)

// Security holds the tunables consumed across the subsystem.
type Security struct {
	MaxPromptLength   int     `yaml:"max_prompt_length"`
	StrictMode        bool    `yaml:"strict_mode"`
	KeyStoragePath    string  `yaml:"key_storage_path"`
	MasterPassphrase  string  `yaml:"master_passphrase"`
	KeyRotationDays   int     `yaml:"key_rotation_days"`
	AnomalyThreshold  float64 `yaml:"anomaly_threshold"`
	ConsistencyWindow int     `yaml:"consistency_window"`
	EnableQuarantine  bool    `yaml:"enable_quarantine"`
	RateLimit         Rate    `yaml:"rate_limit"`
}

// Rate configures the sliding-window rate limiter.
type Rate struct {
	MaxRequests   int     `yaml:"max_requests"`
	WindowSeconds float64 `yaml:"window_seconds"`
}

// Config is the full loaded configuration.
type Config struct {
	ConfigDir   string                    `yaml:"-"`
	Constraints []safety.SafetyConstraint `yaml:"constraints"`
	Security    Security                  `yaml:"security"`
}

// Load reads path (or the default location when empty). A missing file at
// the default location falls back to Default(); a missing file at an
// explicitly given path is an error.
func Load(path string) (*Config, error) {
	configDir, err := ensureConfigDir()
	if err != nil {
		return nil, err
	}
	explicit := path != ""
	if path == "" {
		path = filepath.Join(configDir, DefaultConfigFile)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		cfg := Default()
		cfg.ConfigDir = configDir
		cfg.applyDefaults(configDir)
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.ConfigDir = configDir
	cfg.applyDefaults(configDir)
	return cfg, nil
}

// Parse decodes YAML config bytes on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Constraints: []safety.SafetyConstraint{
			{Name: "no_harm", Description: "Never take actions that could harm people or systems", Severity: "critical", Enabled: true},
			{Name: "preserve_privacy", Description: "Never expose credentials or private data", Severity: "high", Enabled: true},
			{Name: "respect_boundaries", Description: "Stay within the allowed action set", Severity: "high", Enabled: true},
			{Name: "truthfulness", Description: "Never fabricate memories or records", Severity: "medium", Enabled: true},
		},
		Security: Security{
			MaxPromptLength:   10000,
			StrictMode:        false,
			KeyRotationDays:   90,
			AnomalyThreshold:  0.5,
			ConsistencyWindow: 20,
			EnableQuarantine:  true,
			RateLimit:         Rate{MaxRequests: 100, WindowSeconds: 60},
		},
	}
	return cfg
}

// applyDefaults fills zero values a partial YAML file left unset.
func (c *Config) applyDefaults(configDir string) {
	d := Default()
	if c.Security.MaxPromptLength <= 0 {
		c.Security.MaxPromptLength = d.Security.MaxPromptLength
	}
	if c.Security.ConsistencyWindow <= 0 {
		c.Security.ConsistencyWindow = d.Security.ConsistencyWindow
	}
	if c.Security.AnomalyThreshold <= 0 {
		c.Security.AnomalyThreshold = d.Security.AnomalyThreshold
	}
	if c.Security.RateLimit.MaxRequests <= 0 {
		c.Security.RateLimit.MaxRequests = d.Security.RateLimit.MaxRequests
	}
	if c.Security.RateLimit.WindowSeconds <= 0 {
		c.Security.RateLimit.WindowSeconds = d.Security.RateLimit.WindowSeconds
	}
	if c.Security.KeyStoragePath == "" {
		c.Security.KeyStoragePath = filepath.Join(configDir, "keys")
	}
}

// KeyStorageDir resolves the key storage directory, defaulting under the
// config dir.
func (c *Config) KeyStorageDir() string {
	if c.Security.KeyStoragePath != "" {
		return c.Security.KeyStoragePath
	}
	return filepath.Join(c.ConfigDir, "keys")
}

func ensureConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, DefaultConfigDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", err
		}
	}
	return dir, nil
}

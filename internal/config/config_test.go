package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if len(cfg.Constraints) != 4 {
		t.Fatalf("constraints = %d, want 4", len(cfg.Constraints))
	}
	names := map[string]string{}
	for _, c := range cfg.Constraints {
		if !c.Enabled {
			t.Fatalf("constraint %s disabled by default", c.Name)
		}
		names[c.Name] = c.Severity
	}
	if names["no_harm"] != "critical" {
		t.Fatalf("no_harm severity = %q, want critical", names["no_harm"])
	}
	if cfg.Security.MaxPromptLength != 10000 {
		t.Fatalf("max prompt length = %d", cfg.Security.MaxPromptLength)
	}
	if !cfg.Security.EnableQuarantine {
		t.Fatal("quarantine must default on")
	}
	if cfg.Security.RateLimit.MaxRequests != 100 || cfg.Security.RateLimit.WindowSeconds != 60 {
		t.Fatalf("rate limit defaults = %+v", cfg.Security.RateLimit)
	}
}

func TestParse_PartialOverridesKeepDefaults(t *testing.T) {
	data := []byte(`
security:
  strict_mode: true
  max_prompt_length: 500
  rate_limit:
    max_requests: 5
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg.applyDefaults(t.TempDir())

	if !cfg.Security.StrictMode {
		t.Fatal("strict_mode not applied")
	}
	if cfg.Security.MaxPromptLength != 500 {
		t.Fatalf("max_prompt_length = %d, want 500", cfg.Security.MaxPromptLength)
	}
	if cfg.Security.RateLimit.MaxRequests != 5 {
		t.Fatalf("max_requests = %d, want 5", cfg.Security.RateLimit.MaxRequests)
	}
	// Values the file leaves unset keep their defaults.
	if cfg.Security.RateLimit.WindowSeconds != 60 {
		t.Fatalf("window_seconds = %v, want default 60", cfg.Security.RateLimit.WindowSeconds)
	}
	if cfg.Security.KeyRotationDays != 90 {
		t.Fatalf("key_rotation_days = %d, want default 90", cfg.Security.KeyRotationDays)
	}
	if len(cfg.Constraints) != 4 {
		t.Fatalf("constraints = %d, want defaults kept", len(cfg.Constraints))
	}
}

func TestParse_ConstraintsReplaceDefaults(t *testing.T) {
	data := []byte(`
constraints:
  - name: custom_rule
    description: only custom
    severity: low
    enabled: true
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Constraints) != 1 || cfg.Constraints[0].Name != "custom_rule" {
		t.Fatalf("constraints = %+v", cfg.Constraints)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("security: [not a map")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyDefaults_KeyStoragePath(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.applyDefaults(dir)
	if cfg.Security.KeyStoragePath != filepath.Join(dir, "keys") {
		t.Fatalf("key storage path = %q", cfg.Security.KeyStoragePath)
	}

	cfg2 := Default()
	cfg2.Security.KeyStoragePath = "/explicit/path"
	cfg2.applyDefaults(dir)
	if cfg2.Security.KeyStoragePath != "/explicit/path" {
		t.Fatalf("explicit path overridden: %q", cfg2.Security.KeyStoragePath)
	}
}

func TestLoad_ExplicitMissingPathErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := Load(missing); err == nil {
		t.Fatal("explicit missing path must error, not fall back to defaults")
	} else if !strings.Contains(err.Error(), missing) {
		t.Fatalf("error does not name the path: %v", err)
	}
}

func TestLoad_DefaultMissingFallsBack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Security.MaxPromptLength != 10000 || len(cfg.Constraints) != 4 {
		t.Fatalf("defaults not applied: %+v", cfg.Security)
	}
	if cfg.Security.KeyStoragePath == "" {
		t.Fatal("key storage path not back-filled")
	}
}

func TestLoad_ExplicitPathIsRead(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("security:\n  strict_mode: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Security.StrictMode {
		t.Fatal("explicit config file not applied")
	}
}

func TestKeyStorageDir(t *testing.T) {
	cfg := &Config{ConfigDir: "/cfg"}
	if got := cfg.KeyStorageDir(); got != filepath.Join("/cfg", "keys") {
		t.Fatalf("KeyStorageDir = %q", got)
	}
	cfg.Security.KeyStoragePath = "/elsewhere"
	if got := cfg.KeyStorageDir(); got != "/elsewhere" {
		t.Fatalf("KeyStorageDir = %q", got)
	}
}

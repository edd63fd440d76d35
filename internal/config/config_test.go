package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/breeze-rmm/registry-inspector/internal/inspector"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry-inspector.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Format != "plain" {
		t.Errorf("format = %q, want plain", cfg.Format)
	}
	if cfg.Store != "auto" {
		t.Errorf("store = %q, want auto", cfg.Store)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("log_level = %q, want error", cfg.LogLevel)
	}
	if cfg.Check.Request() != inspector.DefaultRequest() {
		t.Errorf("check = %+v, want the UAC check", cfg.Check)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
format: structured
store: file
store_file: /tmp/snapshot.yaml
fail_on_vulnerable: true
audit_log: /tmp/audit.jsonl
check:
  location: 'HKLM\SYSTEM\CurrentControlSet\Control\Lsa'
  value_name: RunAsPPL
  expected: "1"
`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Format != "structured" || cfg.Store != "file" || cfg.StoreFile != "/tmp/snapshot.yaml" {
		t.Errorf("unexpected output/store config: %+v", cfg)
	}
	if !cfg.FailOnVulnerable {
		t.Error("fail_on_vulnerable should be true")
	}
	if cfg.AuditLog != "/tmp/audit.jsonl" {
		t.Errorf("audit_log = %q", cfg.AuditLog)
	}
	want := inspector.Request{Location: `HKLM\SYSTEM\CurrentControlSet\Control\Lsa`, ValueName: "RunAsPPL", Expected: "1"}
	if cfg.Check.Request() != want {
		t.Errorf("check = %+v, want %+v", cfg.Check.Request(), want)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "format: structured\n")
	t.Setenv("REGINSPECT_FORMAT", "json")
	t.Setenv("REGINSPECT_CHECK_EXPECTED", "0")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("format = %q, want json from env", cfg.Format)
	}
	if cfg.Check.Expected != "0" {
		t.Errorf("check.expected = %q, want 0 from env", cfg.Check.Expected)
	}
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	path := writeConfig(t, "format: structured\nlog_level: debug\n")
	t.Setenv("REGINSPECT_FORMAT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", "plain", "")
	flags.String("log-level", "warn", "")
	if err := flags.Parse([]string{"--format", "plain"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Format != "plain" {
		t.Errorf("format = %q, want plain from flag", cfg.Format)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, unset flag must not override file", cfg.LogLevel)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "format: [plain\n")
	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidateTieredAcceptsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	result := cfg.ValidateTiered()
	if result.HasFatals() || len(result.Warnings) > 0 {
		t.Fatalf("defaults should validate cleanly: %+v", result)
	}
}

func TestValidateTieredFatals(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"format", func(c *Config) { c.Format = "xml" }, "format"},
		{"store", func(c *Config) { c.Store = "etcd" }, "store"},
		{"file store without path", func(c *Config) { c.Store = "file"; c.StoreFile = "" }, "store_file"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"empty location", func(c *Config) { c.Check.Location = " " }, "check.location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			result := cfg.ValidateTiered()
			if !result.HasFatals() {
				t.Fatal("expected a fatal error")
			}
			found := false
			for _, err := range result.Fatals {
				if strings.Contains(err.Error(), tt.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, result.Fatals)
			}
		})
	}
}

func TestValidateTieredClampsAuditLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AuditMaxSizeMB = 0
	cfg.AuditMaxBackups = -2

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamping should not be fatal: %v", result.Fatals)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", result.Warnings)
	}
	if cfg.AuditMaxSizeMB != 1 || cfg.AuditMaxBackups != 0 {
		t.Errorf("clamped to %d/%d, want 1/0", cfg.AuditMaxSizeMB, cfg.AuditMaxBackups)
	}

	cfg.AuditMaxSizeMB = 4096
	cfg.ValidateTiered()
	if cfg.AuditMaxSizeMB != 1024 {
		t.Errorf("audit_max_size_mb = %d, want 1024", cfg.AuditMaxSizeMB)
	}
}

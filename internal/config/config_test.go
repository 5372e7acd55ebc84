package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseByteSize(t *testing.T) {
	cases := []struct {
		raw    string
		mbMode bool
		want   int64
	}{
		{"0", true, 0},
		{"", true, 0},
		{"512", true, 512},
		{"10MB", true, 10 * 1024 * 1024},
		{"10MB", false, 10 * 1000 * 1000},
		{"512KB", true, 512 * 1024},
		{"1GB", true, 1024 * 1024 * 1024},
		{"7B", true, 7},
	}
	for _, c := range cases {
		got, err := ParseByteSize(c.raw, c.mbMode)
		if err != nil {
			t.Fatalf("ParseByteSize(%q, %v): %v", c.raw, c.mbMode, err)
		}
		if got != c.want {
			t.Fatalf("ParseByteSize(%q, %v) = %d, want %d", c.raw, c.mbMode, got, c.want)
		}
	}
}

func TestParseByteSizeInvalid(t *testing.T) {
	if _, err := ParseByteSize("not-a-size", true); err == nil {
		t.Fatalf("expected an error for an unparsable size")
	}
}

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.CLIPort != 6402 {
		t.Fatalf("expected default cli_port 6402, got %d", cfg.Server.CLIPort)
	}
	if cfg.Server.CLILockdown != "none" {
		t.Fatalf("expected default cli_lockdown none, got %q", cfg.Server.CLILockdown)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
server:
  cli_port: 7000
  max_cli_login_attempt: 5
  cli_lockdown: ip
dir:
  database: /tmp/meidkv-data
meids:
  size: 1KB
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.CLIPort != 7000 {
		t.Fatalf("expected cli_port 7000, got %d", cfg.Server.CLIPort)
	}
	if cfg.Server.MaxCLILoginAttempt != 5 {
		t.Fatalf("expected max_cli_login_attempt 5, got %d", cfg.Server.MaxCLILoginAttempt)
	}
	if cfg.Dir.Database != "/tmp/meidkv-data" {
		t.Fatalf("expected overridden database dir, got %q", cfg.Dir.Database)
	}

	size, err := cfg.MeidEntrySizeBytes()
	if err != nil {
		t.Fatalf("MeidEntrySizeBytes: %v", err)
	}
	if size != 1024 {
		t.Fatalf("expected 1KB to resolve to 1024 bytes, got %d", size)
	}
}

func TestAuthTimeoutAndCooldownFloors(t *testing.T) {
	cfg := &Config{Server: ServerConfig{CLIAuthTimeoutMs: 100, CLICooldownSeconds: 1}}
	if got := cfg.AuthTimeoutMs(); got != 1000 {
		t.Fatalf("expected auth timeout floor of 1000ms, got %d", got)
	}
	if got := cfg.CooldownSeconds(); got != 5 {
		t.Fatalf("expected cooldown floor of 5s, got %d", got)
	}
}

package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/florianilch/geminine/internal/app"
)

func noEnv() []string { return nil }

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", nil, noEnv)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Server.Host != app.DefaultConfigServerHost {
		t.Errorf("host = %q, want %q", cfg.Server.Host, app.DefaultConfigServerHost)
	}
	if cfg.Server.Port != app.DefaultConfigServerPort {
		t.Errorf("port = %d, want %d", cfg.Server.Port, app.DefaultConfigServerPort)
	}
	if cfg.Auth.Mode != app.DefaultConfigAuthMode {
		t.Errorf("auth mode = %q, want %q", cfg.Auth.Mode, app.DefaultConfigAuthMode)
	}
	if cfg.Auth.CredentialsFile == "" {
		t.Error("credentials file not defaulted")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
host = "0.0.0.0"
port = 9000

[auth]
mode = "metadata"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := loadConfig(path, nil, noEnv)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Auth.Mode != "metadata" {
		t.Errorf("auth mode = %q, want metadata", cfg.Auth.Mode)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nhost = \"0.0.0.0\"\n"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	environ := func() []string {
		return []string{"GEMININE_SERVER__HOST=192.168.1.1"}
	}

	cfg, err := loadConfig(path, nil, environ)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.Server.Host != "192.168.1.1" {
		t.Errorf("host = %q, want env value 192.168.1.1", cfg.Server.Host)
	}
}

func TestLoadConfigRejectsInvalidMode(t *testing.T) {
	environ := func() []string {
		return []string{"GEMININE_AUTH__MODE=password"}
	}

	if _, err := loadConfig("", nil, environ); err == nil {
		t.Error("loadConfig accepted an unknown auth mode")
	}
}

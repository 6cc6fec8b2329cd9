package app

import (
	"path/filepath"
	"strings"
	"testing"
)

func validConfig(t *testing.T) *Config {
	t.Helper()

	dir := t.TempDir()
	cfg := &Config{
		Auth: AuthConfig{
			CredentialsFile: filepath.Join(dir, "oauth_creds.json"),
			ProfileFile:     filepath.Join(dir, "user_info.json"),
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}

	if cfg.Server.Host != DefaultConfigServerHost {
		t.Errorf("host = %q, want %q", cfg.Server.Host, DefaultConfigServerHost)
	}
	if cfg.Server.Port != DefaultConfigServerPort {
		t.Errorf("port = %d, want %d", cfg.Server.Port, DefaultConfigServerPort)
	}
	if cfg.Shutdown.Timeout != DefaultConfigShutdownTimeout {
		t.Errorf("shutdown timeout = %v, want %v", cfg.Shutdown.Timeout, DefaultConfigShutdownTimeout)
	}
	if cfg.Upstream.BaseURL != DefaultConfigUpstreamBaseURL {
		t.Errorf("upstream = %q, want %q", cfg.Upstream.BaseURL, DefaultConfigUpstreamBaseURL)
	}
	if cfg.Auth.Storage != CredentialStorageTypeFile {
		t.Errorf("storage = %q, want file", cfg.Auth.Storage)
	}
	if cfg.Auth.Mode != DefaultConfigAuthMode {
		t.Errorf("mode = %q, want %q", cfg.Auth.Mode, DefaultConfigAuthMode)
	}

	// Cache paths land in the conventional Gemini directory.
	if !strings.Contains(cfg.Auth.CredentialsFile, ".gemini") || filepath.Base(cfg.Auth.CredentialsFile) != "oauth_creds.json" {
		t.Errorf("credentials file = %q", cfg.Auth.CredentialsFile)
	}
	if filepath.Base(cfg.Auth.ProfileFile) != "user_info.json" {
		t.Errorf("profile file = %q", cfg.Auth.ProfileFile)
	}
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 9000},
		Auth: AuthConfig{
			CredentialsFile: "/custom/creds.json",
			ProfileFile:     "/custom/profile.json",
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("server = %s:%d, explicit values overwritten", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Auth.CredentialsFile != "/custom/creds.json" {
		t.Errorf("credentials file = %q, explicit value overwritten", cfg.Auth.CredentialsFile)
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid defaults pass", func(t *testing.T) {
		cfg := validConfig(t)
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Auth.Mode = "password"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate accepted an unknown auth mode")
		}
	})

	t.Run("rejects unknown log format", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.LogFormat = "xml"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate accepted an unknown log format")
		}
	})

	t.Run("rejects unknown storage", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Auth.Storage = "database"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate accepted an unknown storage type")
		}
	})

	t.Run("keyring storage requires user", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Auth.Storage = CredentialStorageTypeKeyring
		cfg.Auth.KeyringUser = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate accepted keyring storage without a user")
		}
	})

	t.Run("api-key mode requires env name", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Auth.Mode = "api-key"
		cfg.Auth.APIKeyEnv = ""
		if err := cfg.Validate(); err == nil {
			t.Error("Validate accepted api-key mode without an env variable name")
		}
	})

	t.Run("rejects malformed upstream URL", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Upstream.BaseURL = "not a url"
		if err := cfg.Validate(); err == nil {
			t.Error("Validate accepted a malformed upstream URL")
		}
	})
}

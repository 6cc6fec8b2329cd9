package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/geminine/internal/authflow"
	"github.com/florianilch/geminine/internal/credstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
	LogFormatOTel LogFormat = "otel"
)

// CredentialStorageType represents the storage backends for cached
// credentials.
type CredentialStorageType string

const (
	CredentialStorageTypeFile    CredentialStorageType = "file"
	CredentialStorageTypeKeyring CredentialStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigServerHost      = "127.0.0.1"
	DefaultConfigServerPort      = 4100
	DefaultConfigShutdownTimeout = 5 * time.Second
	DefaultConfigAuthStorage     = CredentialStorageTypeFile
	DefaultConfigAuthMode        = string(authflow.ModeOAuth)
	DefaultConfigAuthAPIKeyEnv   = "GEMINI_API_KEY"
	DefaultConfigUpstreamBaseURL = "https://generativelanguage.googleapis.com"
)

// geminiDir is the conventional directory shared with the wider Gemini CLI
// tooling; both cache files live there unless configured otherwise.
const geminiDir = ".gemini"

// ServerConfig holds ambassador server configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// UpstreamConfig holds upstream API configuration.
type UpstreamConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
}

// AuthConfig describes how credentials are stored and obtained.
type AuthConfig struct {
	// Storage configuration - where cached credentials live
	Storage CredentialStorageType `json:"storage" validate:"required,oneof=file keyring"`

	// Storage-specific settings
	CredentialsFile string `json:"credentials_file,omitempty"` // For file storage: path to the token-bundle file
	KeyringUser     string `json:"keyring_user,omitempty"`     // For keyring storage: user identifier

	// ProfileFile is the cached account profile; always file-based, it
	// carries no secrets.
	ProfileFile string `json:"profile_file,omitempty"`

	// Mode selects how credentials are obtained when nothing is cached.
	Mode string `json:"mode" validate:"required,oneof=oauth metadata api-key"`

	// APIKeyEnv names the environment variable consulted in api-key mode.
	APIKeyEnv string `json:"api_key_env,omitempty"`

	// NoBrowser disables browser-launch attempts, forcing the manual
	// user-code flow.
	NoBrowser bool `json:"no_browser,omitempty"`
}

// NewCredentialStore creates a credential store from the authentication
// configuration.
func (a *AuthConfig) NewCredentialStore() (credstore.Store, error) {
	switch a.Storage {
	case CredentialStorageTypeFile:
		return credstore.NewFileStore(a.CredentialsFile)
	case CredentialStorageTypeKeyring:
		return credstore.NewKeyringStore("geminine-credentials", a.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.Storage)
	}
}

// NewProfileCache creates the account-profile cache from the authentication
// configuration.
func (a *AuthConfig) NewProfileCache() (*credstore.ProfileCache, error) {
	return credstore.NewProfileCache(a.ProfileFile)
}

// NewAuthenticator assembles the flow orchestrator from the authentication
// configuration.
func (a *AuthConfig) NewAuthenticator() (*authflow.Authenticator, error) {
	store, err := a.NewCredentialStore()
	if err != nil {
		return nil, fmt.Errorf("creating credential store: %w", err)
	}

	profile, err := a.NewProfileCache()
	if err != nil {
		return nil, fmt.Errorf("creating profile cache: %w", err)
	}

	opts := []authflow.Option{
		authflow.WithNoBrowser(a.NoBrowser),
	}
	if a.Mode == string(authflow.ModeAPIKey) {
		key, err := credstore.NewEnvKey(a.APIKeyEnv)
		if err != nil {
			return nil, fmt.Errorf("api-key mode: %w", err)
		}
		opts = append(opts, authflow.WithAPIKey(key))
	}

	return authflow.New(store, profile, opts...), nil
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json otel"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
	Upstream  UpstreamConfig `json:"upstream"`
	Auth      AuthConfig     `json:"auth"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultConfigUpstreamBaseURL
	}
	if c.Auth.Storage == "" {
		c.Auth.Storage = DefaultConfigAuthStorage
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = DefaultConfigAuthMode
	}
	if c.Auth.APIKeyEnv == "" {
		c.Auth.APIKeyEnv = DefaultConfigAuthAPIKeyEnv
	}

	// The cache files default to the conventional Gemini directory under
	// the user's home; both paths stay injectable for test isolation.
	if c.Auth.CredentialsFile == "" || c.Auth.ProfileFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("auth file paths required (auto-detect failed: %w)", err)
		}
		if c.Auth.CredentialsFile == "" {
			c.Auth.CredentialsFile = filepath.Join(home, geminiDir, "oauth_creds.json")
		}
		if c.Auth.ProfileFile == "" {
			c.Auth.ProfileFile = filepath.Join(home, geminiDir, "user_info.json")
		}
	}

	if c.Auth.Storage == CredentialStorageTypeKeyring && c.Auth.KeyringUser == "" {
		currentUser, err := user.Current()
		if err != nil {
			return fmt.Errorf("auth.keyring_user required (auto-detect failed: %w)", err)
		}
		c.Auth.KeyringUser = currentUser.Username
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Auth.Storage {
	case CredentialStorageTypeFile:
		if c.Auth.CredentialsFile == "" {
			return errors.New("credentials_file required for file storage")
		}
	case CredentialStorageTypeKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	if c.Auth.Mode == string(authflow.ModeAPIKey) && c.Auth.APIKeyEnv == "" {
		return errors.New("api_key_env required for api-key mode")
	}

	return nil
}

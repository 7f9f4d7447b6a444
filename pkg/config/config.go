package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"

	// DefaultServer is the hosted Workbench service.
	DefaultServer = "https://app.workbench.dev"
	// DefaultClientID is the OAuth client registered for the CLI.
	DefaultClientID = "wbctl"

	StorageFile    = "file"
	StorageKeyring = "keyring"
)

var defaultScopes = []string{"openid", "profile", "email"}

type Config struct {
	Version  string   `yaml:"version"`
	Server   string   `yaml:"server,omitempty"`
	Auth     Auth     `yaml:"auth,omitempty"`
	Settings Settings `yaml:"settings,omitempty"`
}

// Auth describes how the CLI reaches the authorization endpoints. The zero
// value means the hosted service defaults: fixed oauth paths on Server.
type Auth struct {
	ClientID string   `yaml:"client-id,omitempty"`
	Scopes   []string `yaml:"scopes,omitempty"`

	// Issuer switches endpoint resolution to OIDC discovery for self-hosted
	// deployments whose auth server lives elsewhere.
	Issuer string `yaml:"issuer,omitempty"`

	// Explicit endpoint overrides win over both Server-derived paths and
	// discovery.
	AuthorizeURL       string `yaml:"authorize-url,omitempty"`
	TokenURL           string `yaml:"token-url,omitempty"`
	DeviceAuthorizeURL string `yaml:"device-authorize-url,omitempty"`
	DeviceTokenURL     string `yaml:"device-token-url,omitempty"`

	CAFile                string `yaml:"ca-file,omitempty"`
	InsecureSkipTLSVerify bool   `yaml:"insecure-skip-tls-verify,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"`
	TokenStorage string `yaml:"token-storage,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Server:  DefaultServer,
		Auth: Auth{
			ClientID: DefaultClientID,
			Scopes:   append([]string(nil), defaultScopes...),
		},
		Settings: Settings{
			OutputFormat: "text",
			Timeout:      "30s",
			TokenStorage: StorageFile,
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// ClientID returns the configured OAuth client id, falling back to the
// CLI default.
func (c *Config) ClientID() string {
	if c.Auth.ClientID != "" {
		return c.Auth.ClientID
	}
	return DefaultClientID
}

// Scopes returns the configured scopes, falling back to the defaults.
func (c *Config) Scopes() []string {
	if len(c.Auth.Scopes) > 0 {
		return c.Auth.Scopes
	}
	return append([]string(nil), defaultScopes...)
}

// TokenStorage returns the configured storage backend name, defaulting to
// the plaintext file store.
func (c *Config) TokenStorage() string {
	if c.Settings.TokenStorage != "" {
		return c.Settings.TokenStorage
	}
	return StorageFile
}

// RequestTimeout parses settings.timeout, defaulting to 30s on absence or
// garbage.
func (c *Config) RequestTimeout() time.Duration {
	if c.Settings.Timeout != "" {
		if d, err := time.ParseDuration(c.Settings.Timeout); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("config version missing")
	}
	if strings.TrimSpace(c.Server) == "" && c.Auth.Issuer == "" {
		return errors.New("server is required")
	}
	if c.Server != "" {
		if _, err := url.Parse(c.Server); err != nil {
			return fmt.Errorf("invalid server URL: %w", err)
		}
	}
	if c.Settings.OutputFormat != "" {
		known := []string{"text", "json", "yaml"}
		if !slices.Contains(known, c.Settings.OutputFormat) {
			return fmt.Errorf("unknown output format: %s", c.Settings.OutputFormat)
		}
	}
	if c.Settings.TokenStorage != "" {
		if !slices.Contains([]string{StorageFile, StorageKeyring}, c.Settings.TokenStorage) {
			return fmt.Errorf("unknown token storage: %s", c.Settings.TokenStorage)
		}
	}
	if c.Settings.Timeout != "" {
		if _, err := time.ParseDuration(c.Settings.Timeout); err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
	}
	return nil
}

// Package config provides configuration loading for the catalog sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults for the sync tunables.
const (
	DefaultMaxPages              = 20
	DefaultMinStaleBaselineRatio = 0.7
	DefaultMaxStaleMarkRatio     = 0.15
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// DirectoryName is the name/identifier for this directory instance.
	// Defaults to "default" if not specified.
	DirectoryName string          `yaml:"directoryName,omitempty"`
	Sources       SourcesConfig   `yaml:"sources"`
	Sync          SyncConfig      `yaml:"sync,omitempty"`
	API           *APIConfig      `yaml:"api,omitempty"`
	Database      *DatabaseConfig `yaml:"database,omitempty"`
}

// SourcesConfig groups the upstream source endpoints. A source left nil is
// disabled for the run.
type SourcesConfig struct {
	Registry  *SourceConfig `yaml:"registry,omitempty"`
	GitHub    *SourceConfig `yaml:"github,omitempty"`
	NPM       *SourceConfig `yaml:"npm,omitempty"`
	Community *SourceConfig `yaml:"community,omitempty"`
}

// SourceConfig defines one upstream source endpoint.
type SourceConfig struct {
	// Endpoint is the base URL of the source API, without a trailing slash.
	Endpoint string `yaml:"endpoint"`

	// TokenFile is the path to a file containing a bearer token for sources
	// that require authentication.
	TokenFile string `yaml:"tokenFile,omitempty"`

	// TokenEnv is the name of the environment variable holding the bearer
	// token, checked when TokenFile is not set.
	TokenEnv string `yaml:"tokenEnv,omitempty"`
}

// GetToken returns the bearer token for this source using the following
// priority: TokenFile, then the TokenEnv environment variable. Returns an
// empty string when neither is configured.
func (s *SourceConfig) GetToken() (string, error) {
	if s.TokenFile != "" {
		cleanPath := filepath.Clean(s.TokenFile)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read token from file %s: %w", s.TokenFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if s.TokenEnv != "" {
		return os.Getenv(s.TokenEnv), nil
	}
	return "", nil
}

// SyncConfig defines the sync engine tunables.
type SyncConfig struct {
	// MaxPages caps pagination per source to bound run duration and API cost.
	MaxPages int `yaml:"maxPages,omitempty"`

	// CleanupStale enables the stale-lifecycle manager.
	CleanupStale bool `yaml:"cleanupStale,omitempty"`

	// MinStaleBaselineRatio is the minimum fetched/baseline coverage ratio
	// required before any stale processing happens.
	MinStaleBaselineRatio float64 `yaml:"minStaleBaselineRatio,omitempty"`

	// MaxStaleMarkRatio caps how much of the baseline may change lifecycle
	// state in a single run.
	MaxStaleMarkRatio float64 `yaml:"maxStaleMarkRatio,omitempty"`

	// QualityFilter enables the heuristic low-quality filter.
	QualityFilter bool `yaml:"qualityFilter,omitempty"`

	// AllowlistPatterns are moderation patterns that always admit a matching
	// candidate, taking precedence over DenylistPatterns.
	AllowlistPatterns []string `yaml:"allowlistPatterns,omitempty"`

	// DenylistPatterns are moderation patterns that filter a matching
	// candidate out.
	DenylistPatterns []string `yaml:"denylistPatterns,omitempty"`

	// LockTTL is the TTL of the per-scope sync lock (e.g. "10m").
	LockTTL string `yaml:"lockTTL,omitempty"`
}

// APIConfig defines the read-only status API settings.
type APIConfig struct {
	// Address is the listen address for the status API, e.g. ":8080".
	Address string `yaml:"address"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// This is the recommended approach for production deployments.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from CATALOG_SYNC_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv("CATALOG_SYNC_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or CATALOG_SYNC_DATABASE_PASSWORD environment variable",
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper
// password handling. The password is URL-escaped to handle special characters
// safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	escapedPassword := url.QueryEscape(password)

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		escapedPassword,
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, fmt.Errorf("failed to apply config option: %w", err)
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("no configuration source specified")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", loaderCfg.path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", loaderCfg.path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DirectoryName == "" {
		c.DirectoryName = "default"
	}
	if c.Sync.MaxPages == 0 {
		c.Sync.MaxPages = DefaultMaxPages
	}
	if c.Sync.MinStaleBaselineRatio == 0 {
		c.Sync.MinStaleBaselineRatio = DefaultMinStaleBaselineRatio
	}
	if c.Sync.MaxStaleMarkRatio == 0 {
		c.Sync.MaxStaleMarkRatio = DefaultMaxStaleMarkRatio
	}
	if c.Sync.LockTTL == "" {
		c.Sync.LockTTL = "10m"
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	sources := map[string]*SourceConfig{
		"registry":  c.Sources.Registry,
		"github":    c.Sources.GitHub,
		"npm":       c.Sources.NPM,
		"community": c.Sources.Community,
	}

	configured := 0
	for name, src := range sources {
		if src == nil {
			continue
		}
		if src.Endpoint == "" {
			return fmt.Errorf("source %s: endpoint cannot be empty", name)
		}
		parsed, err := url.Parse(src.Endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("source %s: invalid endpoint %q", name, src.Endpoint)
		}
		configured++
	}
	if configured == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	if c.Sync.MinStaleBaselineRatio < 0 || c.Sync.MinStaleBaselineRatio > 1 {
		return fmt.Errorf("minStaleBaselineRatio must be within [0, 1], got %v", c.Sync.MinStaleBaselineRatio)
	}
	if c.Sync.MaxStaleMarkRatio < 0 || c.Sync.MaxStaleMarkRatio > 1 {
		return fmt.Errorf("maxStaleMarkRatio must be within [0, 1], got %v", c.Sync.MaxStaleMarkRatio)
	}

	return nil
}

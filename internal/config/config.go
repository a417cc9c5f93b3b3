// ABOUTME: Configuration loading and parsing for viewgate
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by the loader.
const (
	EnvConfigPath = "VIEWGATE_CONFIG"
	EnvDBPath     = "VIEWGATE_DB_PATH"
	EnvJWTSecret  = "VIEWGATE_JWT_SECRET"
)

const minJWTSecretLength = 32

// Config represents the complete viewgate configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale" toml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database" toml:"database"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Locks     LocksConfig     `yaml:"locks" toml:"locks"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr  string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr  string `yaml:"grpc_addr" toml:"grpc_addr"` // optional; gRPC is disabled when empty
	RPCPrefix string `yaml:"rpc_prefix" toml:"rpc_prefix"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Hostname  string `yaml:"hostname" toml:"hostname"`
	AuthKey   string `yaml:"auth_key" toml:"auth_key"`
	StateDir  string `yaml:"state_dir" toml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral" toml:"ephemeral"`
	HTTPS     bool   `yaml:"https" toml:"https"`   // Serve HTTPS with Tailscale certificates
	Funnel    bool   `yaml:"funnel" toml:"funnel"` // Enable public Funnel (implies HTTPS)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // "sqlite" (modernc) or "sqlite3" (mattn)
	Path   string `yaml:"path" toml:"path"`
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
	Issuer    string `yaml:"issuer" toml:"issuer"`
	Audience  string `yaml:"audience" toml:"audience"`
	// RevocationCacheSize bounds the number of live logouts remembered at once.
	// Logouts beyond it are refused until older revocations expire.
	RevocationCacheSize int `yaml:"revocation_cache_size" toml:"revocation_cache_size"`

	AccessTTL  time.Duration `yaml:"-" toml:"-"`
	RefreshTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	AccessTTLRaw  string `yaml:"access_ttl" toml:"access_ttl"`
	RefreshTTLRaw string `yaml:"refresh_ttl" toml:"refresh_ttl"`
}

// LocksConfig bounds how long calls wait for and hold a view lock.
// Zero disables the respective limit.
type LocksConfig struct {
	WaitTimeout time.Duration `yaml:"-" toml:"-"`
	HoldTimeout time.Duration `yaml:"-" toml:"-"`

	WaitTimeoutRaw string `yaml:"wait_timeout" toml:"wait_timeout"`
	HoldTimeoutRaw string `yaml:"hold_timeout" toml:"hold_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// ResolvePath picks the configuration file: the explicit path if given,
// then $VIEWGATE_CONFIG, ./config.yaml, ./config.toml and
// ~/.config/viewgate/gateway.yaml. The first existing candidate wins; when
// none exists ./config.yaml is returned so the load error names it.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	candidates := []string{"config.yaml", "config.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "viewgate", "gateway.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return candidates[0]
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnvOverrides lets deployment environments override secrets and paths
// without editing the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.RPCPrefix == "" {
		cfg.Server.RPCPrefix = "/rpc"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Auth.RevocationCacheSize == 0 {
		cfg.Auth.RevocationCacheSize = 10000
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	// The HTTP address is required unless Tailscale is enabled
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}

	// Tailscale requires a hostname
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if !strings.HasPrefix(c.Server.RPCPrefix, "/") {
		return fmt.Errorf("server.rpc_prefix must start with /")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Database.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("database.driver %q is not supported (use sqlite or sqlite3)", c.Database.Driver)
	}

	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", minJWTSecretLength)
	}

	if c.Auth.AccessTTL < 0 || c.Auth.RefreshTTL < 0 {
		return fmt.Errorf("auth token TTLs must not be negative")
	}
	if c.Auth.AccessTTL > 0 && c.Auth.RefreshTTL > 0 && c.Auth.RefreshTTL < c.Auth.AccessTTL {
		return fmt.Errorf("auth.refresh_ttl must not be shorter than auth.access_ttl")
	}
	if c.Locks.WaitTimeout < 0 || c.Locks.HoldTimeout < 0 {
		return fmt.Errorf("lock timeouts must not be negative")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use text or json)", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"access_ttl", cfg.Auth.AccessTTLRaw, &cfg.Auth.AccessTTL},
		{"refresh_ttl", cfg.Auth.RefreshTTLRaw, &cfg.Auth.RefreshTTL},
		{"wait_timeout", cfg.Locks.WaitTimeoutRaw, &cfg.Locks.WaitTimeout},
		{"hold_timeout", cfg.Locks.HoldTimeoutRaw, &cfg.Locks.HoldTimeout},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

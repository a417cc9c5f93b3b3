// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion and overrides, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "0.0.0.0:8080"
  grpc_addr: "0.0.0.0:50051"
  rpc_prefix: "/api/rpc"

database:
  driver: "sqlite3"
  path: "./test.db"

auth:
  jwt_secret: "`+testSecret+`"
  issuer: "viewgate"
  audience: "clients"
  access_ttl: "10m"
  refresh_ttl: "24h"

locks:
  wait_timeout: "5s"
  hold_timeout: "1m"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/prom"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "0.0.0.0:50051", cfg.Server.GRPCAddr)
	assert.Equal(t, "/api/rpc", cfg.Server.RPCPrefix)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "./test.db", cfg.Database.Path)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "viewgate", cfg.Auth.Issuer)
	assert.Equal(t, "clients", cfg.Auth.Audience)
	assert.Equal(t, 10*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 5*time.Second, cfg.Locks.WaitTimeout)
	assert.Equal(t, time.Minute, cfg.Locks.HoldTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/prom", cfg.Metrics.Path)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "`+testSecret+`"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/rpc", cfg.Server.RPCPrefix)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10000, cfg.Auth.RevocationCacheSize)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Zero(t, cfg.Auth.AccessTTL)
	assert.Zero(t, cfg.Locks.WaitTimeout)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[server]
http_addr = ":9090"

[database]
path = "./toml.db"

[auth]
jwt_secret = "`+testSecret+`"
access_ttl = "5m"

[locks]
wait_timeout = "250ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "./toml.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.Locks.WaitTimeout)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", "[server\nhttp_addr = ")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_VIEWGATE_SECRET", testSecret)
	t.Setenv("TEST_VIEWGATE_ADDR", ":7070")

	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "${TEST_VIEWGATE_ADDR}"
database:
  path: "./test.db"
auth:
  jwt_secret: "${TEST_VIEWGATE_SECRET}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.HTTPAddr)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvDBPath, "/tmp/override.db")
	t.Setenv(EnvJWTSecret, strings.Repeat("s", 40))

	path := writeConfig(t, "config.yaml", `
server:
  http_addr: ":8080"
database:
  path: "./file.db"
auth:
  jwt_secret: "too-short"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, strings.Repeat("s", 40), cfg.Auth.JWTSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "server: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  http_addr: ":8080"
database:
  path: "./test.db"
auth:
  jwt_secret: "`+testSecret+`"
locks:
  wait_timeout: "soon"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait_timeout")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{HTTPAddr: ":8080", RPCPrefix: "/rpc"},
			Database: DatabaseConfig{Driver: "sqlite", Path: "./x.db"},
			Auth:     AuthConfig{JWTSecret: testSecret},
			Logging:  LoggingConfig{Format: "text"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "server.http_addr"},
		{"tailscale replaces http addr", func(c *Config) {
			c.Server.HTTPAddr = ""
			c.Tailscale = TailscaleConfig{Enabled: true, Hostname: "viewgate"}
		}, ""},
		{"tailscale without hostname", func(c *Config) { c.Tailscale.Enabled = true }, "tailscale.hostname"},
		{"relative rpc prefix", func(c *Config) { c.Server.RPCPrefix = "rpc" }, "rpc_prefix"},
		{"missing db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "jwt_secret"},
		{"refresh shorter than access", func(c *Config) {
			c.Auth.AccessTTL = time.Hour
			c.Auth.RefreshTTL = time.Minute
		}, "refresh_ttl"},
		{"negative lock timeout", func(c *Config) { c.Locks.WaitTimeout = -time.Second }, "lock timeouts"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_A", "alpha")

	assert.Equal(t, "x-alpha-y", expandEnvVars("x-${TEST_EXPAND_A}-y"))
	assert.Equal(t, "x--y", expandEnvVars("x-${TEST_EXPAND_UNSET_VAR}-y"))
	assert.Equal(t, "no vars", expandEnvVars("no vars"))
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/etc/explicit.yaml", ResolvePath("/etc/explicit.yaml"))

	t.Setenv(EnvConfigPath, "/etc/from-env.yaml")
	assert.Equal(t, "/etc/from-env.yaml", ResolvePath(""))
}

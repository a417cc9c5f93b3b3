// Package config handles configuration loading for viewgate.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The package applies defaults and validates the result.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path given with -config
//  2. Path from VIEWGATE_CONFIG environment variable
//  3. ./config.yaml, then ./config.toml (current directory)
//  4. ~/.config/viewgate/gateway.yaml
//
// Files ending in .toml are decoded as TOML; anything else as YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${VIEWGATE_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// VIEWGATE_DB_PATH and VIEWGATE_JWT_SECRET, when set, override
// database.path and auth.jwt_secret after the file is parsed.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  access_ttl: "15m"
//	  refresh_ttl: "168h"
//	locks:
//	  wait_timeout: "10s"
//	  hold_timeout: "2m"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # RPC, auth and catalogue endpoints
//	  grpc_addr: "0.0.0.0:50051"  # optional gRPC ViewService
//	  rpc_prefix: "/rpc"
//
// Database:
//
//	database:
//	  driver: "sqlite"            # sqlite (pure Go) or sqlite3 (cgo)
//	  path: "/var/lib/viewgate/viewgate.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${VIEWGATE_JWT_SECRET}"  # at least 32 bytes
//	  issuer: "viewgate"
//	  audience: "viewgate-clients"
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "viewgate"
//	  auth_key: "${TS_AUTHKEY}"
//	  funnel: false
//
// Logging and metrics:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Usage
//
//	cfg, err := config.Load(config.ResolvePath(""))
//	if err != nil {
//	    log.Fatal(err)
//	}
package config

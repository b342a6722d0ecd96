// Package config handles configuration loading for household-registry.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion. Files ending in .toml are decoded as TOML; everything else is
// YAML. Missing values take defaults and the result is validated.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from HOUSEHOLD_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/household/registry.yaml
//  3. ~/.config/household/registry.yaml
//
// # Environment Variable Expansion
//
//	auth:
//	  jwt_secret: "${HOUSEHOLD_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:8080"
//
//	database:
//	  driver: "sqlite"                 # sqlite, sqlite3, pgx
//	  dsn: "/var/lib/household/registry.db"
//
//	kv:
//	  backend: "sql"                   # memory, sql, redis
//	  redis_url: "redis://localhost:6379/0"
//	  retention: "24h"                 # must exceed auth.magic_link_ttl
//
//	auth:
//	  jwt_secret: "${HOUSEHOLD_JWT_SECRET}"
//	  magic_link_ttl: "30m"
//	  session_ttl: "2h"
//
//	access:
//	  token: "${HOUSEHOLD_ACCESS_TOKEN}"
//	  open_from: "2025-04-01"
//	  open_until: "2025-04-30"         # inclusive
//	  time_zone: "Asia/Tokyo"
//
//	notify:
//	  sender: "さくら学園"
//	  admin_email: "office@example.com"
//	  from: "noreply@example.com"
//	  form_url: "https://example.com/form"
//	  smtp:
//	    enabled: true
//	    host: "smtp.example.com"
//	    port: 587
//	  matrix:
//	    enabled: false
//	    room_id: "!office:example.com"
//
//	dedupe:
//	  window: "10m"
//	  max_entries: 10000
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// # Validation
//
// Load() rejects a JWT secret shorter than 32 bytes, unknown drivers and
// backends, malformed durations and dates, and an access window whose end
// precedes its start.
package config

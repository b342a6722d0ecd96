// ABOUTME: Configuration loading and parsing for household-registry
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Tokyo must resolve on hosts without a zoneinfo database

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "HOUSEHOLD_CONFIG"

// Defaults applied to fields left empty in the file.
const (
	DefaultHTTPAddr     = "localhost:8080"
	DefaultDriver       = "sqlite"
	DefaultTimeZone     = "Asia/Tokyo"
	DefaultMagicLinkTTL = 30 * time.Minute
	DefaultSessionTTL   = 2 * time.Hour
	DefaultMetricsPath  = "/metrics"
	DefaultSender       = "登録窓口"
)

// KV backends.
const (
	KVMemory = "memory"
	KVSQL    = "sql"
	KVRedis  = "redis"
)

// dateLayout is the format of access.open_from and access.open_until.
const dateLayout = "2006-01-02"

// Config represents the complete household-registry configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	KV       KVConfig       `yaml:"kv" toml:"kv"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Access   AccessConfig   `yaml:"access" toml:"access"`
	Notify   NotifyConfig   `yaml:"notify" toml:"notify"`
	Dedupe   DedupeConfig   `yaml:"dedupe" toml:"dedupe"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// DatabaseConfig selects the tabular store. Driver is one of sqlite,
// sqlite3 or pgx.
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// KVConfig selects where magic-link tokens live.
type KVConfig struct {
	Backend  string `yaml:"backend" toml:"backend"`
	RedisURL string `yaml:"redis_url" toml:"redis_url"`

	// Retention bounds how long an unused token is kept by Redis.
	Retention    time.Duration `yaml:"-" toml:"-"`
	RetentionRaw string        `yaml:"retention" toml:"retention"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`

	MagicLinkTTL time.Duration `yaml:"-" toml:"-"`
	SessionTTL   time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	MagicLinkTTLRaw string `yaml:"magic_link_ttl" toml:"magic_link_ttl"`
	SessionTTLRaw   string `yaml:"session_ttl" toml:"session_ttl"`
}

// AccessConfig gates the public registration form.
type AccessConfig struct {
	Token     string `yaml:"token" toml:"token"`
	OpenFrom  string `yaml:"open_from" toml:"open_from"`
	OpenUntil string `yaml:"open_until" toml:"open_until"`
	TimeZone  string `yaml:"time_zone" toml:"time_zone"`

	// Parsed from the raw values. Zero From or Until leaves that side open.
	Location *time.Location `yaml:"-" toml:"-"`
	From     time.Time      `yaml:"-" toml:"-"`
	Until    time.Time      `yaml:"-" toml:"-"`
}

// Open reports whether registration is accepted at t. The end date is
// inclusive through its last millisecond.
func (a AccessConfig) Open(t time.Time) bool {
	if !a.From.IsZero() && t.Before(a.From) {
		return false
	}
	if !a.Until.IsZero() && t.After(a.Until) {
		return false
	}
	return true
}

// NotifyConfig holds outbound notification settings
type NotifyConfig struct {
	// Sender is the organisation name shown in mail subjects.
	Sender     string `yaml:"sender" toml:"sender"`
	AdminEmail string `yaml:"admin_email" toml:"admin_email"`
	From       string `yaml:"from" toml:"from"`
	// FormURL is the edit form that magic links point at.
	FormURL string       `yaml:"form_url" toml:"form_url"`
	SMTP    SMTPConfig   `yaml:"smtp" toml:"smtp"`
	Matrix  MatrixConfig `yaml:"matrix" toml:"matrix"`
}

// SMTPConfig holds mail relay settings
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// MatrixConfig holds the operator room that receives registration notices
type MatrixConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Homeserver  string `yaml:"homeserver" toml:"homeserver"`
	UserID      string `yaml:"user_id" toml:"user_id"`
	AccessToken string `yaml:"access_token" toml:"access_token"`
	RoomID      string `yaml:"room_id" toml:"room_id"`
}

// DedupeConfig sizes the double-submit guard
type DedupeConfig struct {
	Window     time.Duration `yaml:"-" toml:"-"`
	WindowRaw  string        `yaml:"window" toml:"window"`
	MaxEntries int           `yaml:"max_entries" toml:"max_entries"`
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

// DefaultPath returns the config file location.
// Priority: HOUSEHOLD_CONFIG env var > XDG_CONFIG_HOME/household/registry.yaml > ~/.config/household/registry.yaml
func DefaultPath() string {
	if envPath := os.Getenv(EnvPath); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "registry.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "household", "registry.yaml")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data, strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw configuration content. It is Load without the file.
func Parse(data []byte, isTOML bool) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if isTOML {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := parseAccess(&cfg.Access); err != nil {
		return nil, fmt.Errorf("parsing access window: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.KV.Backend == "" {
		c.KV.Backend = KVSQL
	}
	if c.Auth.MagicLinkTTL == 0 {
		c.Auth.MagicLinkTTL = DefaultMagicLinkTTL
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = DefaultSessionTTL
	}
	if c.Access.TimeZone == "" {
		c.Access.TimeZone = DefaultTimeZone
	}
	if c.Notify.Sender == "" {
		c.Notify.Sender = DefaultSender
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = 587
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3", "pgx":
	default:
		return fmt.Errorf("database.driver %q is not one of sqlite, sqlite3, pgx", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch c.KV.Backend {
	case KVMemory, KVSQL:
	case KVRedis:
		if c.KV.RedisURL == "" {
			return errors.New("kv.redis_url is required when kv.backend is redis")
		}
		if c.KV.Retention > 0 && c.KV.Retention <= c.Auth.MagicLinkTTL {
			return fmt.Errorf("kv.retention (%s) must exceed auth.magic_link_ttl (%s)", c.KV.Retention, c.Auth.MagicLinkTTL)
		}
	default:
		return fmt.Errorf("kv.backend %q is not one of memory, sql, redis", c.KV.Backend)
	}

	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth.jwt_secret must be at least 32 bytes")
	}

	if c.Notify.FormURL == "" {
		return errors.New("notify.form_url is required")
	}
	if c.Notify.SMTP.Enabled && (c.Notify.SMTP.Host == "" || c.Notify.From == "") {
		return errors.New("notify.smtp.host and notify.from are required when smtp is enabled")
	}
	if c.Notify.Matrix.Enabled && (c.Notify.Matrix.Homeserver == "" || c.Notify.Matrix.RoomID == "") {
		return errors.New("notify.matrix.homeserver and notify.matrix.room_id are required when matrix is enabled")
	}

	if !c.Access.From.IsZero() && !c.Access.Until.IsZero() && c.Access.Until.Before(c.Access.From) {
		return errors.New("access.open_until is before access.open_from")
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
		{"kv.retention", cfg.KV.RetentionRaw, &cfg.KV.Retention},
		{"auth.magic_link_ttl", cfg.Auth.MagicLinkTTLRaw, &cfg.Auth.MagicLinkTTL},
		{"auth.session_ttl", cfg.Auth.SessionTTLRaw, &cfg.Auth.SessionTTL},
		{"dedupe.window", cfg.Dedupe.WindowRaw, &cfg.Dedupe.Window},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = d
	}

	return nil
}

func parseAccess(a *AccessConfig) error {
	loc, err := time.LoadLocation(a.TimeZone)
	if err != nil {
		return fmt.Errorf("loading time zone %q: %w", a.TimeZone, err)
	}
	a.Location = loc

	if a.OpenFrom != "" {
		a.From, err = time.ParseInLocation(dateLayout, a.OpenFrom, loc)
		if err != nil {
			return fmt.Errorf("parsing open_from %q: %w", a.OpenFrom, err)
		}
	}
	if a.OpenUntil != "" {
		day, err := time.ParseInLocation(dateLayout, a.OpenUntil, loc)
		if err != nil {
			return fmt.Errorf("parsing open_until %q: %w", a.OpenUntil, err)
		}
		a.Until = day.AddDate(0, 0, 1).Add(-time.Millisecond)
	}
	return nil
}

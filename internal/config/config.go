package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Quota ledger drivers.
const (
	QuotaDriverPostgres = "postgres"
	QuotaDriverRedis    = "redis"
	QuotaDriverRemote   = "remote"
)

// Config holds the talentdex service configuration.
type Config struct {
	HTTP         HTTPConfig      `yaml:"http"`
	Redis        RedisConfig     `yaml:"redis"`
	Postgres     PostgresConfig  `yaml:"postgres"`
	Search       SearchConfig    `yaml:"search"`
	Quota        QuotaConfig     `yaml:"quota"`
	Audit        AuditConfig     `yaml:"audit"`
	ProfileStore UpstreamConfig  `yaml:"profile_store"`
	Directory    UpstreamConfig  `yaml:"directory"`
	Auth         AuthConfig      `yaml:"auth"`
	Events       EventsConfig    `yaml:"events"`
	Reconcile    ReconcileConfig `yaml:"reconcile"`
	Timeouts     TimeoutsConfig  `yaml:"timeouts"`
	Logging      LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// RedisConfig holds the search engine connection (Redis Stack).
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// PostgresConfig holds the relational store settings.
type PostgresConfig struct {
	URL                string `yaml:"url"`
	MaxConns           int32  `yaml:"max_conns"`
	MinConns           int32  `yaml:"min_conns"`
	MaxConnLifetimeMin int    `yaml:"max_conn_lifetime_min"`
	Migrate            bool   `yaml:"migrate"`
}

// SearchConfig holds index and ranking settings.
type SearchConfig struct {
	Index             string  `yaml:"index"`
	RerankWindow      int     `yaml:"rerank_window"`
	SynonymsFile      string  `yaml:"synonyms_file"`
	BootstrapAttempts int     `yaml:"bootstrap_attempts"`
	BootstrapBackoff  int     `yaml:"bootstrap_backoff_ms"`
	RecreateIndex     bool    `yaml:"recreate_index"`
	MaxBulkSize       int     `yaml:"max_bulk_size"`
	VerifiedBoost     float64 `yaml:"verified_boost"`
	RecencyHalfLife   int     `yaml:"recency_half_life_days"`
}

// QuotaConfig selects the quota ledger.
type QuotaConfig struct {
	Driver    string `yaml:"driver"` // postgres (default), redis, remote
	RemoteURL string `yaml:"remote_url"`
}

// AuditConfig selects the audit store. An empty remote URL records locally in PostgreSQL.
type AuditConfig struct {
	RemoteURL string `yaml:"remote_url"`
}

// UpstreamConfig is an HTTP dependency.
type UpstreamConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// AuthConfig holds service-to-service token settings.
type AuthConfig struct {
	Secret      string   `yaml:"secret"`
	TTLMin      int      `yaml:"ttl_min"`
	ServiceName string   `yaml:"service_name"`
	Allowed     []string `yaml:"allowed_services"`
}

// EventsConfig holds the profile status pub/sub settings. An empty URL disables the subscriber.
type EventsConfig struct {
	RedisURL string `yaml:"redis_url"`
	Channel  string `yaml:"channel"`
}

// ReconcileConfig schedules full index re-synchronization. An empty cron disables the schedule.
type ReconcileConfig struct {
	Cron       string `yaml:"cron"`
	TimeoutMin int    `yaml:"timeout_min"`
	PageSize   int    `yaml:"page_size"`
}

// TimeoutsConfig bounds each consultation step, in milliseconds.
type TimeoutsConfig struct {
	DirectoryMs int `yaml:"directory_ms"`
	QuotaMs     int `yaml:"quota_ms"`
	ProfileMs   int `yaml:"profile_ms"`
	IndexMs     int `yaml:"index_ms"`
	AuditMs     int `yaml:"audit_ms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, when present, seeds the environment first.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands environment variables in data, decodes it and validates the result.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 8 << 20
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Postgres.MaxConns <= 0 {
		c.Postgres.MaxConns = 10
	}
	if c.Search.Index == "" {
		c.Search.Index = "talentdex:candidates:idx"
	}
	if c.Search.RerankWindow <= 0 {
		c.Search.RerankWindow = 500
	}
	if c.Search.BootstrapAttempts <= 0 {
		c.Search.BootstrapAttempts = 5
	}
	if c.Search.BootstrapBackoff <= 0 {
		c.Search.BootstrapBackoff = 500
	}
	if c.Search.MaxBulkSize <= 0 {
		c.Search.MaxBulkSize = 500
	}
	if c.Quota.Driver == "" {
		c.Quota.Driver = QuotaDriverPostgres
	}
	if c.ProfileStore.TimeoutSec <= 0 {
		c.ProfileStore.TimeoutSec = 5
	}
	if c.Directory.TimeoutSec <= 0 {
		c.Directory.TimeoutSec = 5
	}
	if c.Auth.TTLMin <= 0 {
		c.Auth.TTLMin = 24 * 60
	}
	if c.Auth.ServiceName == "" {
		c.Auth.ServiceName = "talentdex"
	}
	if c.Events.Channel == "" {
		c.Events.Channel = "profile.status_changed"
	}
	if c.Reconcile.TimeoutMin <= 0 {
		c.Reconcile.TimeoutMin = 30
	}
	if c.Reconcile.PageSize <= 0 {
		c.Reconcile.PageSize = 200
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	if c.Search.RerankWindow > 5000 {
		return fmt.Errorf("search.rerank_window must be at most 5000, got %d", c.Search.RerankWindow)
	}
	if c.Search.MaxBulkSize > 500 {
		return fmt.Errorf("search.max_bulk_size must be at most 500, got %d", c.Search.MaxBulkSize)
	}
	if c.ProfileStore.URL == "" {
		return fmt.Errorf("profile_store.url is required")
	}
	if c.Directory.URL == "" {
		return fmt.Errorf("directory.url is required")
	}
	if len(c.Auth.Secret) < 16 {
		return fmt.Errorf("auth.secret must be at least 16 characters")
	}

	switch c.Quota.Driver {
	case QuotaDriverPostgres, QuotaDriverRedis:
		// the subscription catalog lives in PostgreSQL for both local ledgers
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres.url is required for quota driver %q", c.Quota.Driver)
		}
	case QuotaDriverRemote:
		if c.Quota.RemoteURL == "" {
			return fmt.Errorf("quota.remote_url is required for quota driver %q", QuotaDriverRemote)
		}
	default:
		return fmt.Errorf("quota.driver must be \"postgres\", \"redis\" or \"remote\", got %q", c.Quota.Driver)
	}

	if c.Audit.RemoteURL == "" && c.Postgres.URL == "" {
		return fmt.Errorf("postgres.url is required when audit.remote_url is empty")
	}
	return nil
}

// NeedsPostgres reports whether any component stores data in PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.Quota.Driver != QuotaDriverRemote || c.Audit.RemoteURL == ""
}

// Durations.

func (c HTTPConfig) ReadTimeout() time.Duration  { return time.Duration(c.ReadTimeoutSec) * time.Second }
func (c HTTPConfig) WriteTimeout() time.Duration { return time.Duration(c.WriteTimeoutSec) * time.Second }
func (c HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownSec) * time.Second
}

func (c UpstreamConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSec) * time.Second }

func (c AuthConfig) TTL() time.Duration { return time.Duration(c.TTLMin) * time.Minute }

func (c ReconcileConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMin) * time.Minute }

func (c PostgresConfig) MaxConnLifetime() time.Duration {
	return time.Duration(c.MaxConnLifetimeMin) * time.Minute
}

func (c SearchConfig) Backoff() time.Duration {
	return time.Duration(c.BootstrapBackoff) * time.Millisecond
}

func (c SearchConfig) HalfLife() time.Duration {
	return time.Duration(c.RecencyHalfLife) * 24 * time.Hour
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c TimeoutsConfig) Directory() time.Duration { return ms(c.DirectoryMs) }
func (c TimeoutsConfig) Quota() time.Duration     { return ms(c.QuotaMs) }
func (c TimeoutsConfig) Profile() time.Duration   { return ms(c.ProfileMs) }
func (c TimeoutsConfig) Index() time.Duration     { return ms(c.IndexMs) }
func (c TimeoutsConfig) Audit() time.Duration     { return ms(c.AuditMs) }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

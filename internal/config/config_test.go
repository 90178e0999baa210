package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP:         HTTPConfig{Port: 8080},
		Redis:        RedisConfig{Addrs: []string{"localhost:6379"}},
		Postgres:     PostgresConfig{URL: "postgres://localhost/talentdex"},
		ProfileStore: UpstreamConfig{URL: "http://profiles:8080"},
		Directory:    UpstreamConfig{URL: "http://users:8080"},
		Auth:         AuthConfig{Secret: "0123456789abcdef"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"redis addrs", func(c *Config) { c.Redis.Addrs = nil }, "redis.addrs"},
		{"window", func(c *Config) { c.Search.RerankWindow = 6000 }, "search.rerank_window"},
		{"bulk", func(c *Config) { c.Search.MaxBulkSize = 501 }, "search.max_bulk_size"},
		{"profile store", func(c *Config) { c.ProfileStore.URL = "" }, "profile_store.url"},
		{"directory", func(c *Config) { c.Directory.URL = "" }, "directory.url"},
		{"short secret", func(c *Config) { c.Auth.Secret = "short" }, "auth.secret"},
		{"quota driver", func(c *Config) { c.Quota.Driver = "memory" }, `quota.driver must be "postgres", "redis" or "remote", got "memory"`},
		{"remote quota url", func(c *Config) { c.Quota.Driver = QuotaDriverRemote }, "quota.remote_url"},
		{"redis ledger needs postgres", func(c *Config) {
			c.Quota.Driver = QuotaDriverRedis
			c.Postgres.URL = ""
		}, `postgres.url is required for quota driver "redis"`},
		{"local audit needs postgres", func(c *Config) {
			c.Quota = QuotaConfig{Driver: QuotaDriverRemote, RemoteURL: "http://quota"}
			c.Postgres.URL = ""
		}, "audit.remote_url is empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidate_FullyRemoteNeedsNoPostgres(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.URL = ""
	cfg.Quota = QuotaConfig{Driver: QuotaDriverRemote, RemoteURL: "http://quota"}
	cfg.Audit.RemoteURL = "http://audit"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NeedsPostgres() {
		t.Error("remote quota and audit must not need postgres")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Quota.Driver != QuotaDriverPostgres {
		t.Errorf("quota driver = %q", cfg.Quota.Driver)
	}
	if cfg.Search.Index != "talentdex:candidates:idx" || cfg.Search.RerankWindow != 500 || cfg.Search.MaxBulkSize != 500 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
	if cfg.Events.Channel != "profile.status_changed" {
		t.Errorf("channel = %q", cfg.Events.Channel)
	}
	if cfg.Auth.TTL() != 24*time.Hour {
		t.Errorf("token ttl = %v", cfg.Auth.TTL())
	}
	if cfg.Reconcile.Timeout() != 30*time.Minute || cfg.Reconcile.Cron != "" {
		t.Errorf("reconcile defaults = %+v", cfg.Reconcile)
	}
	if cfg.Search.Backoff() != 500*time.Millisecond {
		t.Errorf("backoff = %v", cfg.Search.Backoff())
	}
	if cfg.Timeouts.Quota() != 0 {
		t.Errorf("unset step timeout must stay zero, got %v", cfg.Timeouts.Quota())
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("TALENTDEX_TEST_SECRET", "abcdefghijklmnopqrstuvwxyz")
	t.Setenv("TALENTDEX_TEST_PORT", "")

	cfg, err := Parse([]byte(`
http:
  port: ${TALENTDEX_TEST_PORT:-9090}
redis:
  addrs: ["localhost:6379"]
postgres:
  url: postgres://localhost/talentdex
profile_store:
  url: http://profiles:8080
  timeout_sec: 2
directory:
  url: http://users:8080
auth:
  secret: ${TALENTDEX_TEST_SECRET}
  allowed_services: [profile-service, gateway]
reconcile:
  cron: "@every 6h"
timeouts:
  quota_ms: 1500
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.Auth.Secret != "abcdefghijklmnopqrstuvwxyz" {
		t.Errorf("secret not expanded: %q", cfg.Auth.Secret)
	}
	if len(cfg.Auth.Allowed) != 2 || cfg.Auth.Allowed[1] != "gateway" {
		t.Errorf("allowed = %v", cfg.Auth.Allowed)
	}
	if cfg.ProfileStore.Timeout() != 2*time.Second || cfg.Directory.Timeout() != 5*time.Second {
		t.Errorf("upstream timeouts = %v / %v", cfg.ProfileStore.Timeout(), cfg.Directory.Timeout())
	}
	if cfg.Reconcile.Cron != "@every 6h" {
		t.Errorf("cron = %q", cfg.Reconcile.Cron)
	}
	if cfg.Timeouts.Quota() != 1500*time.Millisecond {
		t.Errorf("quota timeout = %v", cfg.Timeouts.Quota())
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TALENTDEX_SET", "value")
	got := string(expandEnvVars([]byte("a=${TALENTDEX_SET} b=${TALENTDEX_UNSET_XYZ:-fallback} c=${TALENTDEX_UNSET_XYZ}")))
	if got != "a=value b=fallback c=" {
		t.Errorf("expandEnvVars = %q", got)
	}
}

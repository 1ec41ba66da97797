package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port must be between 1 and 65535, got 0"},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs is required"},
		{"unknown store", func(c *Config) { c.Database.Store = "mongo" },
			`database.store must be "redis" or "postgres", got "mongo"`},
		{"postgres without dsn", func(c *Config) { c.Database.Store = StorePostgres },
			`database.postgres_dsn is required when database.store is "postgres"`},
		{"postgres with dsn", func(c *Config) {
			c.Database.Store = StorePostgres
			c.Database.PostgresDSN = "postgres://localhost/invoices"
		}, ""},
		{"backoff inverted", func(c *Config) { c.Indexer.InitialBackoffMS = 10000 },
			"indexer.initial_backoff_ms must not exceed indexer.max_backoff_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Database.Store != StoreRedis {
		t.Errorf("expected Store=redis, got %q", cfg.Database.Store)
	}
	if cfg.Index.DefaultSize != 1000 {
		t.Errorf("expected DefaultSize=1000, got %d", cfg.Index.DefaultSize)
	}
	if cfg.Index.AnalyticsCap != 10000 {
		t.Errorf("expected AnalyticsCap=10000, got %d", cfg.Index.AnalyticsCap)
	}
	if cfg.Index.KeyPrefix != "invoicedex:" {
		t.Errorf("expected KeyPrefix='invoicedex:', got %q", cfg.Index.KeyPrefix)
	}
	if cfg.Indexer.Workers != 8 || cfg.Indexer.QueueSize != 1024 || cfg.Indexer.MaxAttempts != 5 {
		t.Errorf("indexer defaults = %+v", cfg.Indexer)
	}
	if cfg.Auth.RoleHeader != "X-Caller-Role" {
		t.Errorf("expected RoleHeader=X-Caller-Role, got %q", cfg.Auth.RoleHeader)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{ReadTimeoutSec: 5},
		Index:   IndexConfig{KeyPrefix: "custom:", DefaultSize: 50},
		Indexer: IndexerConfig{Workers: 2},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("expected ReadTimeoutSec=5, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Index.KeyPrefix != "custom:" || cfg.Index.DefaultSize != 50 {
		t.Errorf("index = %+v", cfg.Index)
	}
	if cfg.Indexer.Workers != 2 {
		t.Errorf("expected Workers=2, got %d", cfg.Indexer.Workers)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("INVOICEDEX_TEST_PORT", "9090")
	path := filepath.Join(t.TempDir(), "test.yaml")
	yaml := `
http:
  port: ${INVOICEDEX_TEST_PORT}
database:
  addrs: ["${INVOICEDEX_TEST_REDIS:-localhost:6379}"]
indexer:
  workers: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if len(cfg.Database.Addrs) != 1 || cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v", cfg.Database.Addrs)
	}
	if cfg.Indexer.Workers != 3 || cfg.Indexer.QueueSize != 1024 {
		t.Errorf("indexer = %+v", cfg.Indexer)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http:\n  port: 0\ndatabase:\n  addrs: [x]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("INVOICEDEX_DOTENV_TEST=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INVOICEDEX_DOTENV_TEST", "")
	os.Unsetenv("INVOICEDEX_DOTENV_TEST")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("INVOICEDEX_DOTENV_TEST"); got != "from-file" {
		t.Errorf("env = %q", got)
	}
}

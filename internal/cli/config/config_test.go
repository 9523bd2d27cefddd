package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.NamingConvention != "camelCase" {
		t.Errorf("expected default naming convention camelCase, got %s", cfg.NamingConvention)
	}
	if cfg.Source.Kind != SourceFile || cfg.Source.Dir != "metadata" {
		t.Errorf("expected file source in metadata/, got %+v", cfg.Source)
	}
	if cfg.Source.Driver != "pgx" || cfg.Source.Table != "metadata_documents" {
		t.Errorf("unexpected sql defaults: %+v", cfg.Source)
	}
	if cfg.Cache.Kind != CacheNone || cfg.Cache.TTL != 5*time.Minute || cfg.Cache.Prefix != "entitymeta:" {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("expected default redis address, got %s", cfg.Cache.RedisAddr)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Log.Level)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	configContent := `
service_name: breeze/Northwind
naming_convention: none
source:
  kind: sql
  driver: sqlite3
  dsn: file:metadata.db
  table: service_metadata
cache:
  kind: redis
  ttl: 90s
  redis_addr: cache:6379
log:
  level: debug
`
	if err := os.WriteFile("entitymeta.yml", []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.ServiceName != "breeze/Northwind" {
		t.Errorf("expected service name breeze/Northwind, got %s", cfg.ServiceName)
	}
	if cfg.NamingConvention != "none" {
		t.Errorf("expected naming convention none, got %s", cfg.NamingConvention)
	}
	if cfg.Source.Kind != SourceSQL || cfg.Source.Driver != "sqlite3" || cfg.Source.DSN != "file:metadata.db" {
		t.Errorf("unexpected source: %+v", cfg.Source)
	}
	if cfg.Source.Table != "service_metadata" {
		t.Errorf("expected table service_metadata, got %s", cfg.Source.Table)
	}
	if cfg.Cache.Kind != CacheRedis || cfg.Cache.TTL != 90*time.Second || cfg.Cache.RedisAddr != "cache:6379" {
		t.Errorf("unexpected cache: %+v", cfg.Cache)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENTITYMETA_SOURCE_DIR", "schemas")
	t.Setenv("ENTITYMETA_CACHE_KIND", "memory")
	t.Setenv("ENTITYMETA_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Source.Dir != "schemas" {
		t.Errorf("expected source dir from env, got %s", cfg.Source.Dir)
	}
	if cfg.Cache.Kind != CacheMemory {
		t.Errorf("expected memory cache from env, got %s", cfg.Cache.Kind)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level from env, got %s", cfg.Log.Level)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("source:\n  dir: docs\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Source.Dir != "docs" {
		t.Errorf("expected source dir docs, got %s", cfg.Source.Dir)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for an explicit missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		return Config{
			NamingConvention: "camelCase",
			Source:           SourceConfig{Kind: SourceFile, Dir: "metadata", Driver: "pgx"},
			Cache:            CacheConfig{Kind: CacheNone, RedisAddr: "localhost:6379"},
			Log:              LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown convention", func(c *Config) { c.NamingConvention = "kebab" }, "naming_convention"},
		{"unknown source", func(c *Config) { c.Source.Kind = "http" }, "source.kind"},
		{"file without dir", func(c *Config) { c.Source.Dir = "" }, "source.dir"},
		{"sql bad driver", func(c *Config) { c.Source.Kind = SourceSQL; c.Source.Driver = "mysql"; c.Source.DSN = "x" }, "source.driver"},
		{"sql without dsn", func(c *Config) { c.Source.Kind = SourceSQL }, "source.dsn"},
		{"unknown cache", func(c *Config) { c.Cache.Kind = "memcached" }, "cache.kind"},
		{"redis without addr", func(c *Config) { c.Cache.Kind = CacheRedis; c.Cache.RedisAddr = "" }, "cache.redis_addr"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -time.Second }, "cache.ttl"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "entitymeta.yml"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "metadata", "northwind")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	chdir(t, nested)

	got, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// macOS temp dirs resolve through /private
	want, _ := filepath.EvalSymlinks(root)
	got, _ = filepath.EvalSymlinks(got)
	if got != want {
		t.Errorf("expected root %s, got %s", want, got)
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

// Source kinds
const (
	SourceFile = "file"
	SourceSQL  = "sql"
)

// Cache kinds
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config represents the entitymeta configuration
type Config struct {
	ServiceName      string       `mapstructure:"service_name"`
	NamingConvention string       `mapstructure:"naming_convention"`
	Source           SourceConfig `mapstructure:"source"`
	Cache            CacheConfig  `mapstructure:"cache"`
	Log              LogConfig    `mapstructure:"log"`
}

// SourceConfig selects where metadata documents are fetched from
type SourceConfig struct {
	Kind   string `mapstructure:"kind"`
	Dir    string `mapstructure:"dir"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

// CacheConfig configures the document cache in front of the source
type CacheConfig struct {
	Kind          string        `mapstructure:"kind"`
	TTL           time.Duration `mapstructure:"ttl"`
	Prefix        string        `mapstructure:"prefix"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// LogConfig configures logging
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads the configuration from entitymeta.yml or entitymeta.yaml in
// the current directory, overridden by ENTITYMETA_* environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads the configuration from path, or from the current directory when path is empty
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("naming_convention", "camelCase")
	v.SetDefault("source.kind", SourceFile)
	v.SetDefault("source.dir", "metadata")
	v.SetDefault("source.driver", "pgx")
	v.SetDefault("source.dsn", "")
	v.SetDefault("source.table", "metadata_documents")
	v.SetDefault("cache.kind", CacheNone)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.prefix", "entitymeta:")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("service_name", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("entitymeta")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ENTITYMETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetProjectRoot walks up from the working directory to the first directory holding entitymeta.yml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range []string{"entitymeta.yml", "entitymeta.yaml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no entitymeta.yml found")
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := schema.LookupNamingConvention(cfg.NamingConvention); err != nil {
		return fmt.Errorf("naming_convention: %w", err)
	}

	switch cfg.Source.Kind {
	case SourceFile:
		if cfg.Source.Dir == "" {
			return fmt.Errorf("source.dir is required for the file source")
		}
	case SourceSQL:
		if cfg.Source.Driver != "pgx" && cfg.Source.Driver != "sqlite3" {
			return fmt.Errorf("source.driver must be pgx or sqlite3, got: %s", cfg.Source.Driver)
		}
		if cfg.Source.DSN == "" {
			return fmt.Errorf("source.dsn is required for the sql source")
		}
	default:
		return fmt.Errorf("source.kind must be %s or %s, got: %s", SourceFile, SourceSQL, cfg.Source.Kind)
	}

	switch cfg.Cache.Kind {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if cfg.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis cache")
		}
	default:
		return fmt.Errorf("cache.kind must be %s, %s or %s, got: %s", CacheNone, CacheMemory, CacheRedis, cfg.Cache.Kind)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got: %s", cfg.Cache.TTL)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got: %s", cfg.Log.Level)
	}
	return nil
}

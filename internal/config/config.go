package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Seed        SeedConfig        `mapstructure:"seed"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// IdempotencyConfig holds the BoltDB replay store settings.
type IdempotencyConfig struct {
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// SeedConfig controls loading of demo cases into an empty database.
type SeedConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from an optional TOML file named by
// RECOUVREMENT_CONFIG and from the environment. Env var overrides use prefix
// RECOUVREMENT_ (RECOUVREMENT_DATABASE_PATH, ...). PORT and DB_PATH are
// still honoured.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("database.path", "recouvrement.db")
	v.SetDefault("idempotency.path", "idempotency.db")
	v.SetDefault("idempotency.ttl", "24h")
	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.path", "testdata/cases.json")

	v.SetConfigType("toml")

	v.SetEnvPrefix("RECOUVREMENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.BindEnv("server.port", "RECOUVREMENT_SERVER_PORT", "PORT"); err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("database.path", "RECOUVREMENT_DATABASE_PATH", "DB_PATH"); err != nil {
		return Config{}, err
	}

	if cfgPath := os.Getenv("RECOUVREMENT_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Idempotency.TTL <= 0 {
		return Config{}, fmt.Errorf("idempotency.ttl must be positive, got %s", c.Idempotency.TTL)
	}
	return c, nil
}

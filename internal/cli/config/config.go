package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/relquery/internal/logging"
	"github.com/conduit-lang/relquery/internal/orm/schema"
	"github.com/conduit-lang/relquery/internal/orm/storage"
)

// EnvPrefix prefixes every environment override, e.g. RELQUERY_DATABASE_DSN
const EnvPrefix = "RELQUERY"

// Config represents the relquery configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Naming   NamingConfig   `mapstructure:"naming"`
	Logging  logging.Config `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// NamingConfig controls how entity names map to tables
type NamingConfig struct {
	PluralizeTables bool `mapstructure:"pluralize_tables"`
}

// ServerConfig configures the HTTP query API
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Storage returns the storage.Open configuration
func (c DatabaseConfig) Storage() storage.Config {
	return storage.Config{Driver: c.Driver, DSN: c.DSN}
}

// Strategy returns the naming strategy
func (c NamingConfig) Strategy() schema.NamingStrategy {
	return schema.NamingStrategy{PluralizeTables: c.PluralizeTables}
}

// Load loads the configuration. With an empty path it looks for
// relquery.yaml in the working directory and falls back to defaults when
// there is none. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", ":memory:")
	v.SetDefault("naming.pluralize_tables", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "30s")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("relquery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := storage.ParseDialect(cfg.Database.Driver); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := logging.ParseFormat(cfg.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}
	if cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	return nil
}

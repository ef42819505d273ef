package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the closed set of options the store accepts.
type Config struct {
	Server        ServerConfig      `mapstructure:"server"`
	DatabaseURL   string            `mapstructure:"database_url"`
	MetadataTable string            `mapstructure:"metadata_table"`
	SoftDelete    bool              `mapstructure:"soft_delete"`
	AutoColumns   AutoColumnsConfig `mapstructure:"auto_columns"`
	PoolSize      int               `mapstructure:"pool_size"`
}

// ServerConfig configures the ambient HTTP façade (cmd/server).
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AutoColumnsConfig toggles the three auto-managed columns independently.
type AutoColumnsConfig struct {
	ID        bool `mapstructure:"id"`
	CreatedAt bool `mapstructure:"created_at"`
	UpdatedAt bool `mapstructure:"updated_at"`
}

// Load reads configuration from ./config.yaml (or ../../config.yaml, for
// subpackage tests run from their own directory), applies the documented
// defaults, then layers on OBJECTSTORE_-prefixed environment overrides.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../..")

	viper.SetDefault("database_url", "")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("metadata_table", "__schema")
	viper.SetDefault("soft_delete", true)
	viper.SetDefault("auto_columns.id", true)
	viper.SetDefault("auto_columns.created_at", true)
	viper.SetDefault("auto_columns.updated_at", true)
	viper.SetDefault("pool_size", 10)

	viper.SetEnvPrefix("OBJECTSTORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required")
	}

	return &cfg, nil
}

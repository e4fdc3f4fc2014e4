// Package config loads and persists exam bank configuration. The config file
// lives at <bankRoot>/.exambank/config.toml; a missing file yields defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config represents the complete exam bank configuration
type Config struct {
	Version  int    `toml:"version" mapstructure:"version"`
	BankRoot string `toml:"bankRoot" mapstructure:"bankRoot"`

	Database DatabaseConfig `toml:"database" mapstructure:"database"`
	Ingest   IngestConfig   `toml:"ingest" mapstructure:"ingest"`
	Export   ExportConfig   `toml:"export" mapstructure:"export"`
	Logging  LoggingConfig  `toml:"logging" mapstructure:"logging"`
}

// DatabaseConfig contains embedded database settings
type DatabaseConfig struct {
	// Path is the SQLite file path, relative to BankRoot unless absolute
	Path string `toml:"path" mapstructure:"path"`
	// BusyTimeoutMs is how long a statement waits on a locked database
	BusyTimeoutMs int `toml:"busyTimeoutMs" mapstructure:"busyTimeoutMs"`
}

// IngestConfig contains batch ingestion settings
type IngestConfig struct {
	// MaxBatchRows caps a single ingest batch; 0 means unlimited
	MaxBatchRows int `toml:"maxBatchRows" mapstructure:"maxBatchRows"`
}

// ExportConfig contains bundle export settings
type ExportConfig struct {
	// Dir is where exam bundles are written
	Dir string `toml:"dir" mapstructure:"dir"`
	// Format is the bundle payload format: json or yaml
	Format string `toml:"format" mapstructure:"format"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Format string `toml:"format" mapstructure:"format"`
	Level  string `toml:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		BankRoot: ".",
		Database: DatabaseConfig{
			Path:          "exambank.db",
			BusyTimeoutMs: 5000,
		},
		Ingest: IngestConfig{
			MaxBatchRows: 0,
		},
		Export: ExportConfig{
			Dir:    "exports",
			Format: "json",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <bankRoot>/.exambank/config.toml
func LoadConfig(bankRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("bankRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(bankRoot, ".exambank"))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.BankRoot = bankRoot
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.BankRoot == "" || cfg.BankRoot == "." {
		cfg.BankRoot = bankRoot
	}

	return &cfg, nil
}

// Save writes the configuration to <bankRoot>/.exambank/config.toml
func (c *Config) Save(bankRoot string) error {
	dir := filepath.Join(bankRoot, ".exambank")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0644)
}

// DatabasePath resolves the configured database path against BankRoot.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.BankRoot, c.Database.Path)
}

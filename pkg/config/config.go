// Package config loads, defaults and validates the davfs configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete davfs configuration.
//
// This structure captures all configurable aspects of the storage backend:
//   - Logging configuration
//   - Server-wide settings
//   - Metadata store selection and configuration (store-specific)
//   - Storage tenants (users) and quota defaults
//   - Lock lease and sweep settings
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DAVFS_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// The metadata store implementation defines its own configuration type.
// The Metadata section contains type-specific subsections and only the
// section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Metadata specifies the metadata store type and type-specific configuration
	Metadata MetadataConfig `mapstructure:"metadata"`

	// Storage contains tenant-independent storage settings
	Storage StorageConfig `mapstructure:"storage"`

	// Users defines the storage tenants served by this backend
	Users []UserConfig `mapstructure:"users" validate:"dive"`

	// Locks controls lock lease duration and expired-row sweeping
	Locks LocksConfig `mapstructure:"locks"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// MetadataConfig specifies metadata store configuration.
//
// The Type field determines which store implementation holds lock and
// property rows. Only the corresponding type-specific section is used.
type MetadataConfig struct {
	// Type specifies which metadata store implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// StorageConfig contains tenant-independent storage settings.
type StorageConfig struct {
	// DefaultQuota is the byte limit applied to users without an explicit
	// quota. 0 means unlimited.
	DefaultQuota int64 `mapstructure:"default_quota" validate:"gte=0"`
}

// UserConfig defines one storage tenant.
type UserConfig struct {
	// Login identifies the tenant; URIs and metadata rows are keyed by it
	Login string `mapstructure:"login" validate:"required"`

	// Path is the absolute directory all the user's URIs resolve under
	Path string `mapstructure:"path" validate:"required"`

	// Quota is the byte limit; 0 inherits storage.default_quota
	Quota int64 `mapstructure:"quota" validate:"gte=0"`
}

// LocksConfig controls the lock table's lease and sweep behavior.
type LocksConfig struct {
	// Lease is the lifetime granted to each lock
	Lease time.Duration `mapstructure:"lease" validate:"required,gt=0"`

	// SweepInterval is how often expired lock rows are removed
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required,gt=0"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DAVFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DAVFS_ prefix and underscores.
	// Example: DAVFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DAVFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/davfs/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable: defaults and env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "davfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "davfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds correction history database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig holds where corrected documents and reports are written
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// UploadConfig limits documents accepted over HTTP
type UploadConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// BatchConfig holds batch correction settings
type BatchConfig struct {
	Workers int    `mapstructure:"workers"`
	Pattern string `mapstructure:"pattern"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from an optional .env file, the YAML file at
// configPath and environment variables. An empty configPath uses defaults
// and environment only.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/corrections.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Storage and upload defaults
	v.SetDefault("storage.output_dir", "corrected")
	v.SetDefault("upload.max_size_bytes", 10<<20)

	// Batch defaults
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.pattern", "*.xml")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.port", "INVOICEFIX_PORT")
	_ = v.BindEnv("database.path", "INVOICEFIX_DB_PATH")
	_ = v.BindEnv("storage.output_dir", "INVOICEFIX_OUTPUT_DIR")
	_ = v.BindEnv("batch.workers", "INVOICEFIX_WORKERS")
	_ = v.BindEnv("logger.level", "INVOICEFIX_LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("upload.max_size_bytes must be positive")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}
	return nil
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Integrity IntegrityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Connection pool settings
	MaxConns int
	MinConns int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// IntegrityConfig holds tuning knobs for the data-integrity engine
type IntegrityConfig struct {
	// DefaultPreviewLimit bounds per-table row fetches when a caller
	// does not supply a limit
	DefaultPreviewLimit int
	// MaxPreviewLimit caps caller-supplied limits
	MaxPreviewLimit int
	// MaxConcurrentChecks bounds parallel scanner/detector queries so a
	// summary cannot drain the connection pool
	MaxConcurrentChecks int
	// CheckTimeout bounds each individual check query
	CheckTimeout time.Duration
	// ChecksFile optionally points at a YAML file overriding the built-in
	// mismatch and orphan descriptors
	ChecksFile string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getIntEnv("DB_PORT", 5432),
			Database: getEnv("DB_NAME", "postgres"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSLMODE", "prefer"),
			MaxConns: getIntEnv("DB_MAX_CONNS", 10),
			MinConns: getIntEnv("DB_MIN_CONNS", 2),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Integrity: IntegrityConfig{
			DefaultPreviewLimit: getIntEnv("INTEGRITY_DEFAULT_PREVIEW_LIMIT", 100),
			MaxPreviewLimit:     getIntEnv("INTEGRITY_MAX_PREVIEW_LIMIT", 1000),
			MaxConcurrentChecks: getIntEnv("INTEGRITY_MAX_CONCURRENT_CHECKS", 4),
			CheckTimeout:        getDurationEnv("INTEGRITY_CHECK_TIMEOUT", 15*time.Second),
			ChecksFile:          getEnv("INTEGRITY_CHECKS_FILE", ""),
		},
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets duration from environment variable with default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets integer from environment variable with default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return &ConfigError{Field: "DB_HOST", Message: "database host is required"}
	}
	if c.Database.Database == "" {
		return &ConfigError{Field: "DB_NAME", Message: "database name is required"}
	}
	if c.Database.User == "" {
		return &ConfigError{Field: "DB_USER", Message: "database user is required"}
	}
	if c.Integrity.DefaultPreviewLimit <= 0 {
		return &ConfigError{Field: "INTEGRITY_DEFAULT_PREVIEW_LIMIT", Message: "preview limit must be positive"}
	}
	if c.Integrity.MaxConcurrentChecks <= 0 {
		return &ConfigError{Field: "INTEGRITY_MAX_CONCURRENT_CHECKS", Message: "concurrency bound must be positive"}
	}
	return nil
}

// ConfigError represents configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

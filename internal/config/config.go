// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir             string // Directory holding portfolio.db (always absolute)
	LogLevel            string
	Port                int
	DevMode             bool
	MaxUploadSizeBytes  int64
	UploadRatePerSecond float64
	UploadRateBurst     int
	SnapshotCacheTTL    time.Duration
	MaintenanceSchedule string // cron expression with seconds field
	Archive             ArchiveConfig
}

// ArchiveConfig configures the S3-compatible archive for raw uploads.
// Archiving is disabled when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // Optional custom endpoint (MinIO, R2, ...)
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Enabled reports whether raw uploads should be archived.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnvAsInt("PORT", 8080),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes:  int64(getEnvAsInt("MAX_UPLOAD_SIZE_BYTES", 10<<20)),
		UploadRatePerSecond: getEnvAsFloat("UPLOAD_RATE_PER_SECOND", 2),
		UploadRateBurst:     getEnvAsInt("UPLOAD_RATE_BURST", 5),
		SnapshotCacheTTL:    getEnvAsDuration("SNAPSHOT_CACHE_TTL", 10*time.Minute),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 3 * * *"),
		Archive: ArchiveConfig{
			Bucket:          getEnv("ARCHIVE_BUCKET", ""),
			Region:          getEnv("ARCHIVE_REGION", "auto"),
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("ARCHIVE_PREFIX", "uploads"),
		},
	}

	if err := cfg.UseDataDir(getEnv("CAPITALX_DATA_DIR", "./data")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UseDataDir points the configuration at dir, made absolute and created if missing
func (c *Config) UseDataDir(dir string) error {
	absDataDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	c.DataDir = absDataDir
	return nil
}

// DatabasePath returns the location of the portfolio database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "portfolio.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxUploadSizeBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_BYTES must be positive, got %d", c.MaxUploadSizeBytes)
	}
	if c.UploadRatePerSecond <= 0 || c.UploadRateBurst <= 0 {
		return fmt.Errorf("upload rate limit must be positive")
	}

	// Credentials are all-or-nothing; a bucket alone falls back to the default AWS chain
	hasKey := c.Archive.AccessKeyID != ""
	hasSecret := c.Archive.SecretAccessKey != ""
	if hasKey != hasSecret {
		return fmt.Errorf("archive credentials require both ARCHIVE_ACCESS_KEY_ID and ARCHIVE_SECRET_ACCESS_KEY")
	}
	if !c.Archive.Enabled() && (hasKey || c.Archive.Endpoint != "") {
		return fmt.Errorf("archive credentials or endpoint set without ARCHIVE_BUCKET")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

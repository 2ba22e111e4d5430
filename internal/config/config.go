// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Policy toggles preserved from the legacy system, kept configurable
	// rather than hard-coded (both flagged for product confirmation).
	OwnerlessTraderFallback bool // ownerless trade may be edited by any TRADER
	StubAtMaturity          bool // force the final cashflow onto the maturity date

	Backup *BackupConfig
}

// BackupConfig holds S3 backup settings. Backups are disabled unless a
// bucket is configured.
type BackupConfig struct {
	Enabled   bool
	Schedule  string // cron spec, e.g. "@daily"
	Endpoint  string // custom S3 endpoint (empty for AWS default)
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory:
	// 1. Check SWAPBOOK_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path and ensure the directory exists
	dataDir := getEnv("SWAPBOOK_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory to absolute path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	backup := &BackupConfig{
		Enabled:   getEnvBool("SWAPBOOK_BACKUP_ENABLED", false),
		Schedule:  getEnv("SWAPBOOK_BACKUP_SCHEDULE", "@daily"),
		Endpoint:  getEnv("SWAPBOOK_S3_ENDPOINT", ""),
		Region:    getEnv("SWAPBOOK_S3_REGION", "eu-west-1"),
		Bucket:    getEnv("SWAPBOOK_S3_BUCKET", ""),
		AccessKey: getEnv("SWAPBOOK_S3_ACCESS_KEY", ""),
		SecretKey: getEnv("SWAPBOOK_S3_SECRET_KEY", ""),
	}
	if backup.Bucket == "" {
		backup.Enabled = false
	}

	cfg := &Config{
		DataDir:                 absDataDir,
		LogLevel:                getEnv("SWAPBOOK_LOG_LEVEL", "info"),
		Port:                    getEnvInt("SWAPBOOK_PORT", 8080),
		DevMode:                 getEnvBool("SWAPBOOK_DEV_MODE", false),
		OwnerlessTraderFallback: getEnvBool("SWAPBOOK_OWNERLESS_TRADER_FALLBACK", true),
		StubAtMaturity:          getEnvBool("SWAPBOOK_STUB_AT_MATURITY", false),
		Backup:                  backup,
	}

	return cfg, nil
}

// getEnv retrieves an environment variable value, returning a fallback if
// the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback.
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable with a fallback.
func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

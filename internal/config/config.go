// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted by USAGE_STORE.
const (
	StoreSQLite = "sqlite"
	StoreFS     = "fs"
	StoreS3     = "s3"
)

// Config holds the application configuration.
type Config struct {
	LocatorURL          string
	LocatorAPIKey       string
	LocatorVideoQuality string
	LocatorAudioFormat  string
	LocatorVideoCodec   string
	RenderURL           string
	RenderAPIKey        string
	RenderBilledService string
	UsageStore          string
	UsageDBPath         string
	UsageDir            string
	UsageS3Bucket       string
	UsageS3Prefix       string
	ServiceLimitsPath   string
	LogLevel            string
	LogFormat           string
	LocatorTimeout      time.Duration
	RenderTimeout       time.Duration
	UsageWatchInterval  time.Duration
	UsageNotify         bool
}

// Default values
const (
	defaultLocatorURL         = "http://localhost:9000/"
	defaultRenderURL          = "https://api.shotstack.io/edit/stage"
	defaultVideoQuality       = "720"
	defaultAudioFormat        = "mp3"
	defaultVideoCodec         = "h264"
	defaultRenderService      = "heygen"
	defaultLocatorTimeout     = 30 * time.Second
	defaultRenderTimeout      = 60 * time.Second
	defaultUsageWatchInterval = time.Minute
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		LocatorURL:          getEnvString("LOCATOR_API_URL", defaultLocatorURL),
		LocatorAPIKey:       getEnvString("LOCATOR_API_KEY", ""),
		LocatorVideoQuality: getEnvString("LOCATOR_VIDEO_QUALITY", defaultVideoQuality),
		LocatorAudioFormat:  getEnvString("LOCATOR_AUDIO_FORMAT", defaultAudioFormat),
		LocatorVideoCodec:   getEnvString("LOCATOR_VIDEO_CODEC", defaultVideoCodec),
		LocatorTimeout:      getEnvDuration("LOCATOR_TIMEOUT", defaultLocatorTimeout),
		RenderURL:           getEnvString("RENDER_API_URL", defaultRenderURL),
		RenderAPIKey:        getEnvString("RENDER_API_KEY", ""),
		RenderBilledService: getEnvString("RENDER_BILLED_SERVICE", defaultRenderService),
		RenderTimeout:       getEnvDuration("RENDER_TIMEOUT", defaultRenderTimeout),
		UsageStore:          strings.ToLower(getEnvString("USAGE_STORE", StoreSQLite)),
		UsageDBPath:         getEnvString("USAGE_DB_PATH", getDefaultDatabasePath()),
		UsageDir:            getEnvString("USAGE_DIR", getDefaultUsageDir()),
		UsageS3Bucket:       getEnvString("USAGE_S3_BUCKET", ""),
		UsageS3Prefix:       getEnvString("USAGE_S3_PREFIX", ""),
		ServiceLimitsPath:   getEnvString("SERVICE_LIMITS_PATH", ""),
		UsageWatchInterval:  getEnvDuration("USAGE_WATCH_INTERVAL", defaultUsageWatchInterval),
		UsageNotify:         getEnvBool("USAGE_NOTIFY", false),
		LogLevel:            getEnvString("LOG_LEVEL", "info"),
		LogFormat:           getEnvString("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.UsageStore {
	case StoreSQLite:
		if err := ensureDir(filepath.Dir(cfg.UsageDBPath)); err != nil {
			return nil, err
		}
	case StoreFS:
		if err := ensureDir(cfg.UsageDir); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	switch c.UsageStore {
	case StoreSQLite, StoreFS:
	case StoreS3:
		if c.UsageS3Bucket == "" {
			return fmt.Errorf("USAGE_S3_BUCKET is required when USAGE_STORE=s3")
		}
	default:
		return fmt.Errorf("unsupported USAGE_STORE %q (want sqlite, fs or s3)", c.UsageStore)
	}
	if c.LocatorTimeout <= 0 {
		return fmt.Errorf("LOCATOR_TIMEOUT must be positive")
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT must be positive")
	}
	if c.UsageWatchInterval <= 0 {
		return fmt.Errorf("USAGE_WATCH_INTERVAL must be positive")
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "clipforge", ".env"),
			filepath.Join(home, ".clipforge", ".env"),
		)
	}

	return paths
}

// getDefaultDatabasePath returns the default path for the SQLite usage store.
func getDefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "usage.db"
	}
	return filepath.Join(home, ".config", "clipforge", "usage.db")
}

// getDefaultUsageDir returns the default root for the filesystem usage store.
func getDefaultUsageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "usage"
	}
	return filepath.Join(home, ".config", "clipforge", "usage")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}

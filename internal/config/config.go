package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the catalog import service
type Config struct {
	// Server
	Port               string
	Environment        string
	CORSAllowedOrigins []string

	// Database
	DatabaseURL string

	// Redis (empty disables the per-store import lock)
	RedisURL string

	// GCP
	GCPProjectID      string
	ShopifySecretName string

	// Store
	Store StoreConfig

	// Import Settings
	ImportMaxRetries int
	ImportLockTTL    time.Duration

	// Report archive (empty bucket disables archiving)
	ReportBucket string
	ReportPrefix string
}

// StoreConfig holds the destination store and the pacing of API calls
type StoreConfig struct {
	URL        string
	APIKey     string
	Password   string
	APIVersion string

	RequestDelay         time.Duration
	ThrottledDelay       time.Duration
	QuotaThreshold       float64
	MaxRequestsPerSecond float64
	Timeout              time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_NAME", "catalog_import"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	return &Config{
		Port:               getEnv("PORT", "8099"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		DatabaseURL:        databaseURL,
		RedisURL:           getEnv("REDIS_URL", ""),

		GCPProjectID:      getEnv("GCP_PROJECT_ID", ""),
		ShopifySecretName: getEnv("SHOPIFY_SECRET_NAME", ""),

		Store: StoreConfig{
			URL:        getEnv("SHOPIFY_STORE_URL", ""),
			APIKey:     getEnv("SHOPIFY_API_KEY", ""),
			Password:   getEnv("SHOPIFY_PASSWORD", ""),
			APIVersion: getEnv("SHOPIFY_API_VERSION", "2023-07"),

			RequestDelay:         getEnvAsDuration("SHOPIFY_REQUEST_DELAY", 500*time.Millisecond),
			ThrottledDelay:       getEnvAsDuration("SHOPIFY_THROTTLED_DELAY", 1*time.Second),
			QuotaThreshold:       getEnvAsFloat("SHOPIFY_QUOTA_THRESHOLD", 0.8),
			MaxRequestsPerSecond: getEnvAsFloat("SHOPIFY_MAX_RPS", 2),
			Timeout:              getEnvAsDuration("SHOPIFY_TIMEOUT", 30*time.Second),
		},

		ImportMaxRetries: getEnvAsInt("IMPORT_MAX_RETRIES", 0),
		ImportLockTTL:    getEnvAsDuration("IMPORT_LOCK_TTL", 30*time.Minute),

		ReportBucket: getEnv("REPORT_BUCKET", ""),
		ReportPrefix: getEnv("REPORT_PREFIX", "import-reports"),
	}
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesSecretManager reports whether store credentials come from GCP Secret Manager
func (c *Config) UsesSecretManager() bool {
	return c.GCPProjectID != "" && c.ShopifySecretName != ""
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}

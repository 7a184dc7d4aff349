package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	APIPort        string
	APIHost        string
	APIEnvironment string

	// Remote record store
	RecordStoreURL     string
	RecordStoreToken   string
	RecordStoreTimeout time.Duration

	// Board projection bounds
	BoardPageSize int
	BoardHardCap  int

	// Fetch coalescing
	DebounceInterval time.Duration

	// Import
	ImportMaxBytes int64
	ImportMaxRows  int

	// Sessions
	SessionTTL time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int

	// Sentry
	SentryDSN         string
	SentryEnvironment string

	// Logging
	LogLevel  string
	LogFormat string

	// Phone normalization default region
	DefaultPhoneRegion string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// API
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		APIEnvironment: getEnv("API_ENVIRONMENT", "development"),

		// Remote record store
		RecordStoreURL:     getEnv("RECORD_STORE_URL", "http://localhost:5000/api"),
		RecordStoreToken:   getEnv("RECORD_STORE_TOKEN", ""),
		RecordStoreTimeout: getEnvAsDuration("RECORD_STORE_TIMEOUT", 15*time.Second),

		// Board bounds
		BoardPageSize: getEnvAsInt("BOARD_PAGE_SIZE", 250),
		BoardHardCap:  getEnvAsInt("BOARD_HARD_CAP", 500),

		// Fetch coalescing
		DebounceInterval: getEnvAsDuration("FETCH_DEBOUNCE_INTERVAL", 300*time.Millisecond),

		// Import
		ImportMaxBytes: int64(getEnvAsInt("IMPORT_MAX_BYTES", 10*1024*1024)),
		ImportMaxRows:  getEnvAsInt("IMPORT_MAX_ROWS", 10000),

		// Sessions
		SessionTTL: getEnvAsDuration("SESSION_TTL", 30*time.Minute),

		// CORS
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Rate Limiting
		RateLimitRequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 20),

		// Sentry
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", getEnv("API_ENVIRONMENT", "development")),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Phone
		DefaultPhoneRegion: getEnv("DEFAULT_PHONE_REGION", "US"),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

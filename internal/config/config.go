package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Currency
	BaseCurrency string

	// External feed
	FeedURL    string
	FeedAPIKey string

	// Exchange-rate source (optional; static fallback table is used when empty)
	RatesURL string

	// Sync scheduler
	SyncInterval time.Duration
	SyncDebounce time.Duration
	FeedTimeout  time.Duration
	SyncAPIKey   string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Get values from environment variables with defaults
	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "tally"),
		DBPassword: getEnv("DB_PASSWORD", "tally"),
		DBName:     getEnv("DB_NAME", "tally"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		BaseCurrency: strings.ToUpper(getEnv("BASE_CURRENCY", "KES")),

		FeedURL:    getEnv("FEED_URL", ""),
		FeedAPIKey: getEnv("FEED_API_KEY", ""),
		RatesURL:   getEnv("RATES_URL", ""),

		SyncAPIKey: getEnv("SYNC_API_KEY", ""),
	}

	config.SyncInterval = getDuration("SYNC_INTERVAL", 5*time.Minute)
	config.SyncDebounce = getDuration("SYNC_DEBOUNCE", 800*time.Millisecond)
	config.FeedTimeout = getDuration("FEED_TIMEOUT", 8*time.Second)

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a duration environment variable, falling back to the
// default on absent or invalid values.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

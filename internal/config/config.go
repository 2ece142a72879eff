package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port        string
	MetricsPort string

	// Filing API
	APIBaseURL string
	APITimeout time.Duration

	// Draft and token storage
	StoreBackend   string
	DataDir        string
	SQLiteDBPath   string
	RedisURL       string
	RedisKeyPrefix string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Filing status polling
	FilingPollInterval time.Duration
	FilingPollTimeout  time.Duration

	CacheTTL           time.Duration
	TokenPassphrase    string
	RateLimitPerMinute int
	LogLevel           string

	// Google Sheets ledger (optional)
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

var validStoreBackends = []string{"memory", "file", "sqlite", "redis"}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		MetricsPort: getEnv("METRICS_PORT", ""),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		APITimeout: getEnvDuration("API_TIMEOUT", 15*time.Second),

		StoreBackend:   getEnv("STORE_BACKEND", "sqlite"),
		DataDir:        getEnv("DATA_DIR", "./data/kv"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/wonchon.db"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "wonchon:"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "wonchon"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "filing_completed"),

		FilingPollInterval: getEnvDuration("FILING_POLL_INTERVAL", 2*time.Second),
		FilingPollTimeout:  getEnvDuration("FILING_POLL_TIMEOUT", 10*time.Minute),

		CacheTTL:           getEnvDuration("CACHE_TTL", 30*time.Second),
		TokenPassphrase:    getEnv("TOKEN_PASSPHRASE", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "원천세"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	errors = append(errors, validatePort("port", c.Port)...)
	if c.MetricsPort != "" {
		errors = append(errors, validatePort("metrics port", c.MetricsPort)...)
	}

	// Validate API base URL
	if u, err := url.Parse(c.APIBaseURL); err != nil || c.APIBaseURL == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}
	if c.APITimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid API timeout %v: must be positive", c.APITimeout))
	}

	// Validate store backend
	isValidBackend := false
	for _, backend := range validStoreBackends {
		if c.StoreBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.StoreBackend, validStoreBackends))
	}

	switch c.StoreBackend {
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		}
	case "redis":
		if _, err := url.Parse(c.RedisURL); err != nil || !strings.HasPrefix(c.RedisURL, "redis") {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': must use redis:// or rediss://", c.RedisURL))
		}
	}

	// The SQLite database also holds filings and documents, so it is needed
	// whatever the store backend.
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate polling
	if c.FilingPollInterval < 500*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid filing poll interval %v: must be at least 500ms", c.FilingPollInterval))
	}
	if c.FilingPollTimeout < c.FilingPollInterval {
		errors = append(errors, fmt.Sprintf("invalid filing poll timeout %v: must not be shorter than the poll interval", c.FilingPollTimeout))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// LedgerEnabled reports whether filings are appended to a Google Sheet.
func (c *Config) LedgerEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func validatePort(name, value string) []string {
	port, err := strconv.Atoi(value)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': must be a number", name, value)}
	}
	if port < 1 || port > 65535 {
		return []string{fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

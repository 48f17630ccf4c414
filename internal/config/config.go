package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// BaseURL is the WordPress site hosting simple-jwt-login and WooCommerce.
	BaseURL string
	// APIURL hosts the custom PHP endpoints (user data, CPF lookup).
	APIURL  string
	Timeout time.Duration
	// WooCommerce REST credentials, sent as basic auth on /wc/v2 calls
	ConsumerKey    string
	ConsumerSecret string

	StoreAdapter string
	SQLiteFile   string
	RedisURL     string
	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	LogLevel string

	// Backend emulator settings
	Port            string
	JwtSecret       string
	DevUserEmail    string
	DevUserPassword string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or returns the provided DSN
func (c *Config) BuildPostgresDSN() (string, error) {
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func New() (*Config, error) {
	c := &Config{
		BaseURL:        strings.TrimRight(getenv("VICERE_BASE_URL", "https://vicere.com.br"), "/"),
		APIURL:         strings.TrimRight(getenv("VICERE_API_URL", "https://api.vicere.com.br"), "/"),
		ConsumerKey:    getenv("WC_CONSUMER_KEY", ""),
		ConsumerSecret: getenv("WC_CONSUMER_SECRET", ""),
		StoreAdapter:   getenv("STORE_ADAPTER", "sqlite"),
		SQLiteFile:     getenv("SQLITE_FILE", ""),
		RedisURL:       getenv("REDIS_URL", "redis://localhost:6379"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		// PostgreSQL settings
		PostgresDSN:      getenv("POSTGRES_DSN", ""),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "vicere")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "vicere")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),
		// emulator
		Port:            getenv("PORT", "8080"),
		JwtSecret:       getenv("JWT_SECRET", "change-me"),
		DevUserEmail:    getenv("DEV_USER_EMAIL", "user@example.com"),
		DevUserPassword: getenv("DEV_USER_PASSWORD", "pw"),
	}

	timeout, err := time.ParseDuration(getenv("VICERE_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid VICERE_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("VICERE_TIMEOUT must be positive, got %s", timeout)
	}
	c.Timeout = timeout

	switch c.StoreAdapter {
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	case "redis":
		if c.RedisURL == "" {
			return nil, errors.New("REDIS_URL must be set when STORE_ADAPTER=redis")
		}
	case "sqlite", "memory":
	default:
		return nil, fmt.Errorf("unsupported STORE_ADAPTER: %s (supported: sqlite, postgres, redis, memory)", c.StoreAdapter)
	}

	// ConsumerKey without secret would send half a credential
	if (c.ConsumerKey == "") != (c.ConsumerSecret == "") {
		return nil, errors.New("WC_CONSUMER_KEY and WC_CONSUMER_SECRET must be set together")
	}

	env := strings.ToLower(getenv("ENV", ""))
	if env == "production" || env == "prod" {
		if c.JwtSecret == "" || c.JwtSecret == "change-me" {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	DBDriver   string
	DBConn     string
	SQLitePath string

	JWTSecret    string
	TokenTTL     time.Duration
	AuthRequired bool

	AllowedOrigins []string

	CBRURL       string
	BaseCurrency string

	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	SenderEmail       string
	StatementSchedule string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8010"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DBConn:     getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=finance sslmode=disable"),
		SQLitePath: getEnv("SQLITE_PATH", "./data/finance.db"),

		JWTSecret:    getEnv("JWT_SECRET", "secret"),
		TokenTTL:     getEnvDuration("TOKEN_TTL", 24*time.Hour),
		AuthRequired: getEnvBool("AUTH_REQUIRED", false),

		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		CBRURL:       getEnv("CBR_URL", "https://www.cbr.ru/scripts/XML_daily.asp"),
		BaseCurrency: strings.ToUpper(getEnv("BASE_CURRENCY", "RUB")),

		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		SenderEmail:       getEnv("SENDER_EMAIL", "no-reply@finance-tracker.local"),
		StatementSchedule: getEnv("STATEMENT_SCHEDULE", "0 8 1 * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings for the selected driver
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBConn == "" {
			return fmt.Errorf("DB_CONN is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if len(c.BaseCurrency) != 3 {
		return fmt.Errorf("BASE_CURRENCY must be an ISO 4217 code, got %q", c.BaseCurrency)
	}
	return nil
}

// StatementsEnabled reports whether SMTP delivery is configured
func (c *Config) StatementsEnabled() bool {
	return c.SMTPHost != "" && c.StatementSchedule != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultVal
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package config provides configuration management for the application.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application.
type Config struct {
	// AWS
	AWSRegion         string
	S3Bucket          string
	IngestCustomerKey string
	IngestLoanKey     string

	// Database
	DBHost      string
	DBPort      int
	DBName      string
	DBUser      string
	DBPassword  string
	DatabaseDSN string
	AutoMigrate bool

	// SES
	SESSenderEmail    string
	SESRecipientEmail string
	NotifyOnApproval  bool

	// Lending policy
	LimitMultiplier int64
	LimitRounding   int64

	// Application
	Port     string
	Stage    string
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	cfg := &Config{
		// AWS
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", "credit-line-ingest-dev"),
		IngestCustomerKey: getEnv("INGEST_CUSTOMER_KEY", "incoming/customer_data.xlsx"),
		IngestLoanKey:     getEnv("INGEST_LOAN_KEY", "incoming/loan_data.xlsx"),

		// Database
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnvInt("DB_PORT", 5432),
		DBName:      getEnv("DB_NAME", "credit_line"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DatabaseDSN: getEnv("DATABASE_URL", ""),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", true),

		// SES
		SESSenderEmail:    getEnv("SES_SENDER_EMAIL", ""),
		SESRecipientEmail: getEnv("SES_RECIPIENT_EMAIL", ""),
		NotifyOnApproval:  getEnvBool("NOTIFY_ON_APPROVAL", false),

		// Lending policy
		LimitMultiplier: int64(getEnvInt("LIMIT_MULTIPLIER", 36)),
		LimitRounding:   int64(getEnvInt("LIMIT_ROUNDING", 100000)),

		// Application
		Port:     getEnv("PORT", "8080"),
		Stage:    getEnv("STAGE", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// DatabaseURL returns the PostgreSQL connection string.
// DATABASE_URL wins over the individual DB_* settings.
func (c *Config) DatabaseURL() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	sslMode := "require" // Use SSL for RDS
	if c.DBHost == "localhost" || c.DBHost == "127.0.0.1" {
		sslMode = "disable" // Disable SSL for local development
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + strconv.Itoa(c.DBPort) + "/" + c.DBName + "?sslmode=" + sslMode
}

// NotificationsEnabled reports whether approval emails should be sent.
func (c *Config) NotificationsEnabled() bool {
	return c.NotifyOnApproval && c.SESSenderEmail != "" && c.SESRecipientEmail != ""
}

// IsProduction reports whether the service runs in a production stage.
func (c *Config) IsProduction() bool {
	return c.Stage == "prod" || c.Stage == "production"
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as int or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as bool or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// QueueConfig provides settings for the asynq reconcile queue.
type QueueConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetWorkerConcurrency() int
}

// ReconcileConfig provides settings for the reconciliation engine.
type ReconcileConfig interface {
	GetDefaultGuestCountry() string
	GetNotificationOnlyPlatforms() []string
	GetProcessedByTag() string
}

// PhoneConfig provides the default region for phone normalization.
type PhoneConfig interface {
	GetDefaultPhoneRegion() string
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAlertEmailTo() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	WorkerConcurrency         int
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	DefaultGuestCountry       string
	DefaultPhoneRegion        string
	NotificationOnlyPlatforms []string
	ProcessedByTag            string
	EmailEnabled              bool
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	EmailFromName             string
	EmailFromAddress          string
	AlertEmailTo              string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// QueueConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetWorkerConcurrency() int { return c.WorkerConcurrency }

// ReconcileConfig implementation
func (c *Config) GetDefaultGuestCountry() string { return c.DefaultGuestCountry }
func (c *Config) GetNotificationOnlyPlatforms() []string {
	return c.NotificationOnlyPlatforms
}
func (c *Config) GetProcessedByTag() string { return c.ProcessedByTag }

// PhoneConfig implementation
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool      { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string   { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string {
	return c.EmailFromAddress
}
func (c *Config) GetAlertEmailTo() string { return c.AlertEmailTo }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE_NAME", "reconcile"),
		WorkerConcurrency:         mustInt(getEnv("WORKER_CONCURRENCY", "4")),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		DefaultGuestCountry:       getEnv("DEFAULT_GUEST_COUNTRY", "India"),
		DefaultPhoneRegion:        getEnv("DEFAULT_PHONE_REGION", "IN"),
		NotificationOnlyPlatforms: splitCSV(getEnv("NOTIFICATION_ONLY_PLATFORMS", "")),
		ProcessedByTag:            getEnv("PROCESSED_BY_TAG", "reconcile-engine"),
		EmailEnabled:              emailEnabled && smtpHost != "",
		SMTPHost:                  smtpHost,
		SMTPPort:                  mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:              getEnv("SMTP_USERNAME", ""),
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "Innsync"),
		EmailFromAddress:          getEnv("EMAIL_FROM_ADDRESS", ""),
		AlertEmailTo:              getEnv("ALERT_EMAIL_TO", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}

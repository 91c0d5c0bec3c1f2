package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	App       AppConfig
	Redis     RedisConfig
	Mail      MailConfig
	Kafka     KafkaConfig
	Affiliate AffiliateConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// RedisConfig holds Redis settings. An empty Addr disables Redis and the
// service falls back to in-process locking.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MailConfig holds SMTP settings used for OTP and admin notifications
type MailConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	AdminEmail string
}

// KafkaConfig holds event publishing settings
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AffiliateConfig holds affiliate program settings
type AffiliateConfig struct {
	ReferralCodePrefix       string
	DefaultMinimumWithdrawal decimal.Decimal
	OtpTTL                   time.Duration
	OtpMaxRequestsPerHour    int
	ClickRatePerSecond       float64
	ClickBurst               int
	OtpCleanupInterval       time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	minWithdrawal, err := decimal.NewFromString(getEnv("DEFAULT_MINIMUM_WITHDRAWAL", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_MINIMUM_WITHDRAWAL: %w", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "marketplace"),
		},
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Mail: MailConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvInt("SMTP_PORT", 587),
			User:       getEnv("SMTP_USER", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("SMTP_FROM", "no-reply@marketplace.local"),
			AdminEmail: getEnv("ADMIN_EMAIL", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "affiliate.events"),
		},
		Affiliate: AffiliateConfig{
			ReferralCodePrefix:       getEnv("REFERRAL_CODE_PREFIX", "AFF"),
			DefaultMinimumWithdrawal: minWithdrawal,
			OtpTTL:                   getEnvDuration("OTP_TTL", 10*time.Minute),
			OtpMaxRequestsPerHour:    getEnvInt("OTP_MAX_REQUESTS_PER_HOUR", 5),
			ClickRatePerSecond:       getEnvFloat("CLICK_RATE_PER_SECOND", 5),
			ClickBurst:               getEnvInt("CLICK_BURST", 20),
			OtpCleanupInterval:       getEnvDuration("OTP_CLEANUP_INTERVAL", time.Hour),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	MongoDB       MongoDBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Email         EmailConfig
	S3            S3Config
	OTEL          OTELConfig
	Scheduler     SchedulerConfig
	Admin         AdminConfig
	ManagementKey string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string
	PublicBaseURL  string
	AllowedOrigins string
	Timezone       string
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	CookieSecure       bool
}

// EmailConfig holds Postmark delivery configuration
type EmailConfig struct {
	Enabled      bool
	Driver       string // "postmark" or "log"
	ServerToken  string
	AccountToken string
	From         string
	ReplyTo      string
}

// Email drivers
const (
	EmailDriverPostmark = "postmark"
	EmailDriverLog      = "log"
)

// S3Config holds the optional QR image bucket
type S3Config struct {
	Endpoint string
	Region   string
	Bucket   string
}

// Enabled reports whether QR images should be uploaded
func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.Endpoint != ""
}

// OTELConfig holds OpenTelemetry exporter configuration
type OTELConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Environment    string
	InstanceID     string
	Token          string
}

// SchedulerConfig holds background job schedules
type SchedulerConfig struct {
	SweepSchedule string
}

// AdminConfig is only read by the seed command
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

// Load reads configuration from environment variables
// It attempts to load from .env file first, then falls back to system env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	accessExpiry, err := getEnvAsDuration("JWT_ACCESS_TOKEN_EXPIRY", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshExpiry, err := getEnvAsDuration("JWT_REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080/"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5500"),
			Timezone:       getEnv("COHAB_TIMEZONE", "UTC"),
		},
		MongoDB: MongoDBConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGODB_DATABASE", "cohab"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			AccessTokenExpiry:  accessExpiry,
			RefreshTokenExpiry: refreshExpiry,
			CookieSecure:       getEnvAsBool("COOKIE_SECURE", true),
		},
		Email: EmailConfig{
			Enabled:      getEnvAsBool("EMAIL_ENABLED", false),
			Driver:       getEnv("EMAIL_DRIVER", EmailDriverPostmark),
			ServerToken:  getEnv("POSTMARK_SERVER_TOKEN", ""),
			AccountToken: getEnv("POSTMARK_ACCOUNT_TOKEN", ""),
			From:         getEnv("EMAIL_FROM", "COHAB <no-reply@cohab.cl>"),
			ReplyTo:      getEnv("EMAIL_REPLY_TO", ""),
		},
		S3: S3Config{
			Endpoint: getEnv("S3_ENDPOINT", ""),
			Region:   getEnv("S3_REGION", "us-east-1"),
			Bucket:   getEnv("S3_BUCKET", "cohab-qr"),
		},
		OTEL: OTELConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_ENDPOINT", "localhost:4318"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "cohab-api"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Environment:    getEnv("OTEL_ENVIRONMENT", "development"),
			InstanceID:     getEnv("OTEL_INSTANCE_ID", ""),
			Token:          getEnv("OTEL_TOKEN", ""),
		},
		Scheduler: SchedulerConfig{
			SweepSchedule: os.Getenv("SWEEP_SCHEDULE"),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Name:     getEnv("ADMIN_NAME", "Administrador"),
		},
		ManagementKey: getEnv("MANAGEMENT_KEY", ""),
	}
	if _, set := os.LookupEnv("SWEEP_SCHEDULE"); !set {
		cfg.Scheduler.SweepSchedule = "0 6 * * *"
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWT.AccessTokenExpiry <= 0 || c.JWT.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Email.Enabled {
		if c.Email.Driver != EmailDriverPostmark && c.Email.Driver != EmailDriverLog {
			return fmt.Errorf("EMAIL_DRIVER must be %q or %q", EmailDriverPostmark, EmailDriverLog)
		}
		if c.Email.Driver == EmailDriverPostmark && c.Email.ServerToken == "" {
			return fmt.Errorf("POSTMARK_SERVER_TOKEN is required when EMAIL_ENABLED=true")
		}
		if c.Email.From == "" {
			return fmt.Errorf("EMAIL_FROM is required when EMAIL_ENABLED=true")
		}
	}
	return nil
}

// Location resolves the timezone used to decide the current calendar day
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("COHAB_TIMEZONE %q is not a valid timezone: %w", c.Server.Timezone, err)
	}
	return loc, nil
}

// StudentLinkBase returns the public base URL with a trailing slash
func (c *Config) StudentLinkBase() string {
	base := strings.TrimSpace(c.Server.PublicBaseURL)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt64 retrieves an environment variable as int64 or returns a default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("24h") or a plain number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d, nil
	}
	if secs := getEnvAsInt64(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("%s: invalid duration %q", key, valueStr)
}

// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database      DatabaseConfig
	Redis         RedisConfig
	Server        ServerConfig
	Logging       LoggingConfig
	CORS          CORSConfig
	JWT           JWTConfig
	SMTP          SMTPConfig
	Storage       StorageConfig
	Notifications NotificationsConfig
	Cleanup       CleanupConfig
	Cache         CacheConfig
	Ops           OpsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port pair used by Redis clients
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds admin token validation settings
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// SMTPConfig holds SMTP server configuration for the contact form
type SMTPConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	ContactInbox string
}

// Configured reports whether the mail transport has everything it needs
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != "" && c.ContactInbox != ""
}

// StorageConfig holds object store settings
type StorageConfig struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UploadExpiry  time.Duration
}

// NotificationsConfig holds push delivery settings
type NotificationsConfig struct {
	PushGatewayURL string
	SiteBaseURL    string
}

// CleanupConfig holds settings of the orphaned media sweeper
type CleanupConfig struct {
	Cron      string
	BatchSize int
}

// CacheConfig holds settings of the public read cache
type CacheConfig struct {
	TTL time.Duration
}

// OpsConfig holds settings of operational endpoints
type OpsConfig struct {
	APIKey string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPort, err := intEnv("DB_PORT", "")
	if err != nil {
		return nil, err
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	dbPassword := os.Getenv("DB_PASSWORD")
	if dbPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	cfg.Database.Password = dbPassword

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPort, err := intEnv("SERVER_PORT", "8080")
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	cfg.Logging.Level = stringEnv("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret

	accessExpiry, err := durationEnv("JWT_ACCESS_TOKEN_EXPIRY", "1h")
	if err != nil {
		return nil, err
	}
	cfg.JWT.AccessTokenExpiry = accessExpiry

	// Redis configuration
	cfg.Redis.Host = stringEnv("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = intEnv("REDIS_PORT", "6379"); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD") // optional
	if cfg.Redis.DB, err = intEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	// SMTP configuration (optional, the contact form reports 500 while unset)
	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	if cfg.SMTP.Port, err = intEnv("SMTP_PORT", "587"); err != nil {
		return nil, err
	}
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = stringEnv("SMTP_FROM", cfg.SMTP.Username)
	cfg.SMTP.ContactInbox = os.Getenv("SMTP_CONTACT_INBOX")

	// Object storage configuration
	cfg.Storage.Endpoint = os.Getenv("STORAGE_ENDPOINT")
	cfg.Storage.Region = stringEnv("STORAGE_REGION", "us-east-1")
	bucket := os.Getenv("STORAGE_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("STORAGE_BUCKET is required")
	}
	cfg.Storage.Bucket = bucket
	cfg.Storage.AccessKey = os.Getenv("STORAGE_ACCESS_KEY")
	cfg.Storage.SecretKey = os.Getenv("STORAGE_SECRET_KEY")
	cfg.Storage.PublicBaseURL = strings.TrimRight(stringEnv("STORAGE_PUBLIC_BASE_URL", "https://storage.googleapis.com"), "/")
	if cfg.Storage.UploadExpiry, err = durationEnv("STORAGE_UPLOAD_EXPIRY", "15m"); err != nil {
		return nil, err
	}

	// Notification configuration (optional)
	cfg.Notifications.PushGatewayURL = os.Getenv("PUSH_GATEWAY_URL")
	cfg.Notifications.SiteBaseURL = strings.TrimRight(os.Getenv("SITE_BASE_URL"), "/")

	// Cleanup configuration
	cfg.Cleanup.Cron = stringEnv("CLEANUP_CRON", "*/15 * * * *")
	if cfg.Cleanup.BatchSize, err = intEnv("CLEANUP_BATCH_SIZE", "50"); err != nil {
		return nil, err
	}

	// Cache configuration
	if cfg.Cache.TTL, err = durationEnv("CACHE_TTL", "5m"); err != nil {
		return nil, err
	}

	// Operational endpoints are disabled while no key is set
	cfg.Ops.APIKey = os.Getenv("OPS_API_KEY")

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// intEnv reads an integer variable; an empty default makes the variable required
func intEnv(key, def string) (int, error) {
	raw := stringEnv(key, def)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key, def string) (time.Duration, error) {
	v, err := time.ParseDuration(stringEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// parseOrigins splits a comma-separated origin list, defaulting to all origins
func parseOrigins(raw string) []string {
	if raw == "" {
		return []string{"*"}
	}

	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

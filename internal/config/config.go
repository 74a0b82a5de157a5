package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Postgres     PostgresConfig
	MongoDB      MongoDBConfig
	Redis        RedisConfig
	S3           S3Config
	Ticketmaster TicketmasterConfig
	Catalog      CatalogConfig
	API          APIConfig
	Google       GoogleConfig
	Jobs         JobsConfig
	CORS         CORSConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Timeout  time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	EventTTL time.Duration
}

type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	EndpointURL     string
	StatePrefix     string
}

type TicketmasterConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// CatalogConfig holds the pagination and search knobs shared by the
// coordinators.
type CatalogConfig struct {
	InitialPageSize    int
	PageSize           int
	SearchDebounce     time.Duration
	SuggestionLimit    int
	UpcomingWindowDays int
}

type APIConfig struct {
	JWTSecret            string
	JWTIssuer            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	RateLimitRequests    int
	RateLimitWindow      time.Duration
}

type GoogleConfig struct {
	ClientID string
}

type JobsConfig struct {
	CleanupSchedule string
	StoreIdleTTL    time.Duration
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
	Profile          string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cfg := &Config{}
	var err error

	// Server configuration
	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.Host = getEnv("SERVER_HOST", "0.0.0.0")

	// PostgreSQL configuration
	cfg.Postgres.Host = getEnv("POSTGRES_HOST", "localhost")
	cfg.Postgres.Port = getEnvInt("POSTGRES_PORT", 5432)
	cfg.Postgres.User = getEnvRequired("POSTGRES_USER")
	cfg.Postgres.Password = getEnvRequired("POSTGRES_PASSWORD")
	cfg.Postgres.Database = getEnv("POSTGRES_DATABASE", "citypulse")
	cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", "disable")
	if cfg.Postgres.Timeout, err = getEnvDuration("POSTGRES_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	// MongoDB configuration
	cfg.MongoDB.URI = getEnv("MONGODB_URI", "mongodb://localhost:27017")
	cfg.MongoDB.Database = getEnv("MONGODB_DATABASE", "citypulse")
	if cfg.MongoDB.Timeout, err = getEnvDuration("MONGODB_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	// Redis configuration
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	if cfg.Redis.EventTTL, err = getEnvDuration("EVENT_CACHE_TTL", "10m"); err != nil {
		return nil, err
	}

	// S3 configuration
	cfg.S3.Region = getEnv("AWS_REGION", "us-east-1")
	cfg.S3.BucketName = getEnvRequired("S3_BUCKET_NAME")
	cfg.S3.EndpointURL = getEnv("AWS_ENDPOINT_URL", "") // Optional for LocalStack
	cfg.S3.AccessKeyID = getEnvRequired("AWS_ACCESS_KEY_ID")
	cfg.S3.SecretAccessKey = getEnvRequired("AWS_SECRET_ACCESS_KEY")
	cfg.S3.StatePrefix = getEnv("S3_STATE_PREFIX", "state/")

	// Ticketmaster Discovery API configuration
	cfg.Ticketmaster.BaseURL = getEnv("TICKETMASTER_BASE_URL", "https://app.ticketmaster.com/discovery/v2")
	cfg.Ticketmaster.APIKey = getEnvRequired("TICKETMASTER_API_KEY")
	if cfg.Ticketmaster.Timeout, err = getEnvDuration("TICKETMASTER_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	cfg.Ticketmaster.RateLimit = getEnvFloat("TICKETMASTER_RATE_LIMIT", 5)
	cfg.Ticketmaster.RateBurst = getEnvInt("TICKETMASTER_RATE_BURST", 5)

	// Catalog configuration
	cfg.Catalog.InitialPageSize = getEnvInt("PAGINATION_INITIAL_SIZE", 10)
	cfg.Catalog.PageSize = getEnvInt("PAGINATION_PAGE_SIZE", 10)
	if cfg.Catalog.SearchDebounce, err = getEnvDuration("SEARCH_DEBOUNCE", "300ms"); err != nil {
		return nil, err
	}
	cfg.Catalog.SuggestionLimit = getEnvInt("SEARCH_SUGGESTION_LIMIT", 5)
	cfg.Catalog.UpcomingWindowDays = getEnvInt("UPCOMING_WINDOW_DAYS", 14)

	// API configuration
	cfg.API.JWTSecret = getEnv("JWT_SECRET", "dev-jwt-secret-change-in-production-must-be-at-least-32-chars")
	cfg.API.JWTIssuer = getEnv("JWT_ISSUER", "citypulse")
	if cfg.API.AccessTokenDuration, err = getEnvDuration("JWT_ACCESS_TTL", "15m"); err != nil {
		return nil, err
	}
	if cfg.API.RefreshTokenDuration, err = getEnvDuration("JWT_REFRESH_TTL", "720h"); err != nil {
		return nil, err
	}
	cfg.API.RateLimitRequests = getEnvInt("RATE_LIMIT_REQUESTS", 100)
	if cfg.API.RateLimitWindow, err = getEnvDuration("RATE_LIMIT_WINDOW", "1m"); err != nil {
		return nil, err
	}

	// Google sign-in
	cfg.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", "")

	// Maintenance jobs
	cfg.Jobs.CleanupSchedule = getEnv("CLEANUP_SCHEDULE", "@every 1h")
	if cfg.Jobs.StoreIdleTTL, err = getEnvDuration("STORE_IDLE_TTL", "2h"); err != nil {
		return nil, err
	}

	// CORS configuration
	cfg.CORS = loadCORSConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise break pagination arithmetic.
func (c *Config) Validate() error {
	if c.Catalog.PageSize <= 0 {
		return fmt.Errorf("PAGINATION_PAGE_SIZE must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Catalog.InitialPageSize <= 0 {
		return fmt.Errorf("PAGINATION_INITIAL_SIZE must be positive, got %d", c.Catalog.InitialPageSize)
	}
	if c.Catalog.UpcomingWindowDays <= 0 {
		return fmt.Errorf("UPCOMING_WINDOW_DAYS must be positive, got %d", c.Catalog.UpcomingWindowDays)
	}
	return nil
}

// DefaultCatalogConfig mirrors the defaults applied by Load.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{
		InitialPageSize:    10,
		PageSize:           10,
		SearchDebounce:     300 * time.Millisecond,
		SuggestionLimit:    5,
		UpcomingWindowDays: 14,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(strings.TrimSpace(value), ",")
	}
	return defaultValue
}

// loadCORSConfig loads CORS configuration based on profile or custom settings
func loadCORSConfig() CORSConfig {
	switch getEnv("CORS_PROFILE", "custom") {
	case "development":
		return CORSConfig{
			Enabled:          getEnvBool("CORS_ENABLED", true),
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Device-ID"}),
			ExposedHeaders:   getEnvStringSlice("CORS_EXPOSED_HEADERS", []string{"X-Correlation-ID", "X-Request-ID"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400),
			Profile:          "development",
		}
	default:
		return CORSConfig{
			Enabled:          getEnvBool("CORS_ENABLED", false),
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Device-ID"}),
			ExposedHeaders:   getEnvStringSlice("CORS_EXPOSED_HEADERS", []string{}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 3600),
			Profile:          "custom",
		}
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv     string
	Port        string
	JWTSecret   string
	AccessKey   string // shared secret for login and destructive actions
	SessionTTL  time.Duration
	FrontendDir string
	Database    DatabaseConfig
	Cache       CacheConfig
	Gemini      GeminiConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Quiet    bool
}

// CacheConfig selects the local durable cache backend
type CacheConfig struct {
	Backend  string // file, redis, memory
	Path     string
	RedisURL string
	Key      string
}

// GeminiConfig holds OCR model configuration
type GeminiConfig struct {
	APIKey string
	Model  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	accessKey := os.Getenv("ACCESS_KEY")
	if accessKey == "" {
		return nil, fmt.Errorf("ACCESS_KEY is required")
	}

	cfg := &Config{
		NodeEnv:     getEnv("NODE_ENV", "development"),
		Port:        getEnv("PORT", "3001"),
		JWTSecret:   jwtSecret,
		AccessKey:   accessKey,
		SessionTTL:  getDurationEnv("SESSION_TTL", 12*time.Hour),
		FrontendDir: os.Getenv("FRONTEND_DIR"),
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("DB_ENABLED", true),
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "wotrack"),
			Quiet:    getBoolEnv("DB_QUIET", true),
		},
		Cache: CacheConfig{
			Backend:  getEnv("CACHE_BACKEND", "file"),
			Path:     getEnv("CACHE_PATH", "./data/docs_cache.json"),
			RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Key:      getEnv("CACHE_KEY", "wotrack:docs_cache"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
	}

	switch cfg.Cache.Backend {
	case "file", "redis", "memory":
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.Cache.Backend)
	}

	return cfg, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

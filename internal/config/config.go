package config

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	ServerPort     string
	DatabaseURL    string
	RedisURL       string
	SigningSecret  string
	IdentitySalt   string
	GrantSecret    string
	GrantTTL       time.Duration
	DeviceTokenTTL time.Duration
	StatsCacheTTL  time.Duration
}

func LoadConfig() (*Config, error) {
	grantTTL, err := time.ParseDuration(getEnv("GRANT_TTL", "15m"))
	if err != nil {
		return nil, errors.New("invalid GRANT_TTL format")
	}

	// Activation tokens live on a printed label for the product's shelf life.
	deviceTTL, err := time.ParseDuration(getEnv("DEVICE_TOKEN_TTL", "87600h"))
	if err != nil {
		return nil, errors.New("invalid DEVICE_TOKEN_TTL format")
	}

	statsTTL, err := time.ParseDuration(getEnv("STATS_CACHE_TTL", "60s"))
	if err != nil {
		return nil, errors.New("invalid STATS_CACHE_TTL format")
	}

	cfg := &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		SigningSecret:  os.Getenv("SIGNING_SECRET"),
		IdentitySalt:   os.Getenv("IDENTITY_SALT"),
		GrantSecret:    os.Getenv("GRANT_SECRET"),
		GrantTTL:       grantTTL,
		DeviceTokenTTL: deviceTTL,
		StatsCacheTTL:  statsTTL,
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.SigningSecret == "" {
		return nil, errors.New("SIGNING_SECRET is required")
	}
	if len(cfg.SigningSecret) < 32 {
		return nil, errors.New("SIGNING_SECRET must be at least 32 bytes")
	}
	if cfg.IdentitySalt == "" {
		return nil, errors.New("IDENTITY_SALT is required")
	}
	if cfg.GrantSecret == "" {
		return nil, errors.New("GRANT_SECRET is required")
	}

	return cfg, nil
}

// Helper: get env with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Token store backends.
const (
	TokenStoreMemory   = "memory"
	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
)

// Config aggregates runtime configuration for the bookstore web client.
type Config struct {
	Environment    string
	HTTPPort       int
	LogLevel       string
	AllowedOrigins []string

	APIBaseURL     string
	APITimeout     time.Duration
	ProfileTimeout time.Duration

	TokenStore    string
	TokenTTL      time.Duration
	DatabaseURL   string
	RedisURL      string
	RedisPassword string

	SessionIdleTimeout time.Duration
	MaxSessions        int

	EditorRole  string
	LandingPath string
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/bookstore_database_url")
	if err != nil {
		return Config{}, err
	}

	redisPassword, err := getEnvOrFile("REDIS_PASSWORD", "/run/secrets/bookstore_redis_password")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:    getEnv("APP_ENV", "development"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins: parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		APIBaseURL:     strings.TrimSpace(getEnv("BOOKSTORE_API_URL", "http://localhost:5234/")),
		TokenStore:     strings.ToLower(getEnv("TOKEN_STORE", TokenStoreMemory)),
		DatabaseURL:    strings.TrimSpace(databaseURL),
		RedisURL:       strings.TrimSpace(getEnv("REDIS_URL", "")),
		RedisPassword:  strings.TrimSpace(redisPassword),
		EditorRole:     strings.TrimSpace(getEnv("EDITOR_ROLE", "Urednik")),
		LandingPath:    strings.TrimSpace(getEnv("LANDING_PATH", "/books")),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	if cfg.APITimeout, err = getDuration("API_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ProfileTimeout, err = getDuration("PROFILE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 0); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTimeout, err = getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return Config{}, err
	}

	maxSessionsValue := getEnv("MAX_SESSIONS", "10000")
	if cfg.MaxSessions, err = strconv.Atoi(maxSessionsValue); err != nil || cfg.MaxSessions <= 0 {
		return Config{}, fmt.Errorf("invalid MAX_SESSIONS %q", maxSessionsValue)
	}

	switch cfg.TokenStore {
	case TokenStoreMemory:
	case TokenStorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("TOKEN_STORE is postgres but DATABASE_URL is not set")
		}
	case TokenStoreRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("TOKEN_STORE is redis but REDIS_URL is not set")
		}
	default:
		return Config{}, fmt.Errorf("unsupported TOKEN_STORE %q", cfg.TokenStore)
	}

	if !cfg.IsDevelopment() {
		if len(cfg.AllowedOrigins) == 0 {
			return Config{}, fmt.Errorf("ALLOWED_ORIGINS must define at least one origin outside development")
		}
		for _, origin := range cfg.AllowedOrigins {
			if origin == "*" {
				return Config{}, fmt.Errorf("ALLOWED_ORIGINS cannot contain wildcard outside development")
			}
		}
	}

	if cfg.EditorRole == "" {
		return Config{}, fmt.Errorf("EDITOR_ROLE must not be empty")
	}
	if !strings.HasPrefix(cfg.LandingPath, "/") || strings.HasPrefix(cfg.LandingPath, "//") {
		return Config{}, fmt.Errorf("LANDING_PATH must be a local path, got %q", cfg.LandingPath)
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, value)
	}
	return d, nil
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}

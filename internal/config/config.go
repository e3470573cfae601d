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
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Engine   EngineConfig
	LLM      LLMConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret    string
	APIKeyHeader string
}

type EngineConfig struct {
	// AgentsmithDir is the root of the local prompt cache.
	AgentsmithDir string
	// FetchStrategy picks the source precedence (fs-only, remote-only,
	// remote-fallback, fs-fallback).
	FetchStrategy string
	// ExecuteTimeout caps RESOLVE through DISPATCH of one execution.
	ExecuteTimeout time.Duration
	// RequestBudget caps the whole HTTP exchange, slightly above
	// ExecuteTimeout so the timeout branch itself can respond.
	RequestBudget time.Duration
	// GlobalsTTL bounds staleness of the cached project global context.
	GlobalsTTL time.Duration
}

type LLMConfig struct {
	DefaultProvider string
	DefaultModel    string
	MaxRetries      int
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments use the environment.
	godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	executeTimeout, err := getEnvDuration("EXECUTE_TIMEOUT", 300*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid EXECUTE_TIMEOUT: %w", err)
	}

	requestBudget, err := getEnvDuration("REQUEST_BUDGET", 320*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_BUDGET: %w", err)
	}

	globalsTTL, err := getEnvDuration("GLOBALS_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid GLOBALS_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			APIKeyHeader: getEnv("API_KEY_HEADER", "X-API-Key"),
		},
		Engine: EngineConfig{
			AgentsmithDir:  getEnv("AGENTSMITH_DIR", "agentsmith"),
			FetchStrategy:  getEnv("FETCH_STRATEGY", "remote-fallback"),
			ExecuteTimeout: executeTimeout,
			RequestBudget:  requestBudget,
			GlobalsTTL:     globalsTTL,
		},
		LLM: LLMConfig{
			DefaultProvider: getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:    getEnv("LLM_DEFAULT_MODEL", "gpt-4o-mini"),
			MaxRetries:      maxRetries,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

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
	// Server
	Port        string
	Env         string
	FrontendURL string

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// AI question provider
	AIProvider           string
	AIEndpoint           string
	AIAPIKey             string
	AIModel              string
	AITimeout            time.Duration
	AIConcurrentRequests int

	// Quiz engine
	DefaultQuestionCount int
	SessionIdleTimeout   time.Duration
	WorkerCount          int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ""))

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		Env:           getEnvOrDefault("ENV", "development"),
		FrontendURL:   getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		DatabaseURL:   mustGetEnv("DATABASE_URL"),
		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", ""),
		RedisURL:      mustGetEnv("REDIS_URL"),
		JWTSecret:     mustGetEnv("JWT_SECRET"),

		AIProvider:           provider,
		AIEndpoint:           getEnvOrDefault("AI_ENDPOINT", ""),
		AIAPIKey:             aiKey(provider),
		AIModel:              getEnvOrDefault("AI_MODEL", ""),
		AITimeout:            time.Duration(getEnvAsIntOrDefault("AI_TIMEOUT_SECONDS", 20)) * time.Second,
		AIConcurrentRequests: getEnvAsIntOrDefault("AI_CONCURRENT_REQUESTS", 5),

		DefaultQuestionCount: getEnvAsIntOrDefault("DEFAULT_QUESTION_COUNT", 10),
		SessionIdleTimeout:   time.Duration(getEnvAsIntOrDefault("SESSION_IDLE_MINUTES", 120)) * time.Minute,
		WorkerCount:          getEnvAsIntOrDefault("WORKER_COUNT", 3),
	}

	return cfg
}

// LoadTooling reads only what the command-line tools need: the database
// and the AI provider. Redis and JWT settings are not required.
func LoadTooling() *Config {
	godotenv.Load()

	provider := strings.ToLower(getEnvOrDefault("AI_PROVIDER", ""))
	return &Config{
		Env:                  getEnvOrDefault("ENV", "development"),
		DatabaseURL:          mustGetEnv("DATABASE_URL"),
		MigrationsDir:        getEnvOrDefault("MIGRATIONS_DIR", ""),
		AIProvider:           provider,
		AIEndpoint:           getEnvOrDefault("AI_ENDPOINT", ""),
		AIAPIKey:             aiKey(provider),
		AIModel:              getEnvOrDefault("AI_MODEL", ""),
		AITimeout:            time.Duration(getEnvAsIntOrDefault("AI_TIMEOUT_SECONDS", 20)) * time.Second,
		AIConcurrentRequests: getEnvAsIntOrDefault("AI_CONCURRENT_REQUESTS", 5),
		DefaultQuestionCount: getEnvAsIntOrDefault("DEFAULT_QUESTION_COUNT", 10),
	}
}

// aiKey prefers AI_API_KEY and falls back to the provider's own variable.
func aiKey(provider string) string {
	if key := os.Getenv("AI_API_KEY"); key != "" {
		return key
	}
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	JWTSecret  string

	ServerAddr string
	LogDir     string

	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	GeminiBaseURL     string
	GeminiAPIKey      string

	DefaultModel      string
	FallbackModel     string
	MaxTokens         int
	Temperature       float64
	ProviderTimeout   time.Duration
	ContextWindow     int
	PromptTokenBudget int
	ModelCatalogPath  string

	WorkerCount      int
	WorkerQueueSize  int
	DurableWorkflows bool
	DatabaseURL      string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

func LoadConfig() Config {
	// A missing .env is normal in containers; the environment wins either way.
	_ = godotenv.Load()

	return Config{
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBName:     getEnv("DB_NAME", "uiforge"),
		JWTSecret:  getEnv("JWT_SECRET", ""),

		ServerAddr: getEnv("SERVER_ADDR", ":8000"),
		LogDir:     getEnv("LOG_DIR", "./logs"),

		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		GeminiBaseURL:     getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),

		DefaultModel:      getEnv("DEFAULT_MODEL", "gpt-4o-mini"),
		FallbackModel:     getEnv("FALLBACK_MODEL", "gemini-1.5-flash"),
		MaxTokens:         getEnvInt("MAX_TOKENS", 4000),
		Temperature:       getEnvFloat("TEMPERATURE", 0.7),
		ProviderTimeout:   getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second),
		ContextWindow:     getEnvInt("CONTEXT_WINDOW", 5),
		PromptTokenBudget: getEnvInt("PROMPT_TOKEN_BUDGET", 0),
		ModelCatalogPath:  getEnv("MODEL_CATALOG_PATH", ""),

		WorkerCount:      getEnvInt("WORKER_COUNT", 4),
		WorkerQueueSize:  getEnvInt("WORKER_QUEUE_SIZE", 64),
		DurableWorkflows: getEnvBool("DURABLE_WORKFLOWS", false),
		DatabaseURL:      getEnv("DATABASE_URL", ""),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "components"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.OpenRouterAPIKey == "" && c.GeminiAPIKey == "" {
		return fmt.Errorf("at least one of OPENROUTER_API_KEY or GEMINI_API_KEY is required")
	}
	if c.DurableWorkflows && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when DURABLE_WORKFLOWS is enabled")
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("CONTEXT_WINDOW must not be negative")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	return nil
}

// DSN builds the Postgres connection string used by gorm.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// ArchiveEnabled is true when MinIO settings are present.
func (c Config) ArchiveEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvDuration accepts Go durations ("45s") or plain milliseconds ("60000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

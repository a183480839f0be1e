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
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Index    IndexConfig
	Analysis AnalysisConfig
	Chat     ChatConfig
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
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ConfirmCodeTTL  time.Duration
}

type LLMConfig struct {
	OpenAIKey       string
	AnthropicKey    string
	DefaultProvider string
	CompletionModel string
	EmbeddingModel  string
	MaxTokens       int
	Temperature     float64
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UseSSL       bool
	SignedURLTTL time.Duration
}

type IndexConfig struct {
	Collection   string
	EmbeddingDim int
}

type AnalysisConfig struct {
	BaseURL      string
	PollTimeout  time.Duration
	PollInterval time.Duration
}

type ChatConfig struct {
	SessionTTL    time.Duration
	HistoryWindow int
	TopK          int
}

func Load() (*Config, error) {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

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

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	embeddingDim, err := getEnvInt("INDEX_EMBEDDING_DIM", 1536)
	if err != nil {
		return nil, fmt.Errorf("invalid INDEX_EMBEDDING_DIM: %w", err)
	}

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
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
			JWTSecret:       getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("AUTH_ACCESS_TOKEN_TTL", time.Hour),
			RefreshTokenTTL: getEnvDuration("AUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
			ConfirmCodeTTL:  getEnvDuration("AUTH_CONFIRM_CODE_TTL", 15*time.Minute),
		},
		LLM: LLMConfig{
			OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:    getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider: getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			CompletionModel: getEnv("LLM_COMPLETION_MODEL", "gpt-4o-mini"),
			EmbeddingModel:  getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
			MaxTokens:       maxTokens,
			Temperature:     temperature,
		},
		Storage: StorageConfig{
			Endpoint:     getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKey:    getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:    getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:       getEnv("STORAGE_BUCKET", "documents"),
			UseSSL:       getEnvBool("STORAGE_USE_SSL", false),
			SignedURLTTL: getEnvDuration("STORAGE_SIGNED_URL_TTL", 15*time.Minute),
		},
		Index: IndexConfig{
			Collection:   getEnv("INDEX_COLLECTION", "search_documents"),
			EmbeddingDim: embeddingDim,
		},
		Analysis: AnalysisConfig{
			BaseURL:      getEnv("ANALYSIS_BASE_URL", ""),
			PollTimeout:  getEnvDuration("ANALYSIS_POLL_TIMEOUT", 2*time.Minute),
			PollInterval: getEnvDuration("ANALYSIS_POLL_INTERVAL", 500*time.Millisecond),
		},
		Chat: ChatConfig{
			SessionTTL:    getEnvDuration("CHAT_SESSION_TTL", 7*24*time.Hour),
			HistoryWindow: 5,
			TopK:          5,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
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

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	CORS       CORSConfig
	Logging    LoggingConfig
	Monitoring MonitoringConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	Knowledge  KnowledgeConfig
	Completion CompletionConfig
	Agent      AgentConfig
	Tools      ToolsConfig
}

type ServerConfig struct {
	Port         int
	Env          string
	Name         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type MonitoringConfig struct {
	PrometheusEnabled bool
	PrometheusPort    int
}

type RateLimitConfig struct {
	Enabled       bool
	RequestLimit  int
	WindowSeconds int
}

type RedisConfig struct {
	URL string
}

// KnowledgeConfig selects and configures the vector store backend.
// Driver is fixed at startup; the per-request selectedVectorStorage field
// is accepted on the wire but does not switch backends.
type KnowledgeConfig struct {
	Driver          string // "postgres" or "mongo"
	DatabaseURL     string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// CompletionConfig configures the direct-completion provider.
type CompletionConfig struct {
	AnthropicKey string
	Model        string
	MaxTokens    int
}

// AgentConfig configures the tool-using agent path.
type AgentConfig struct {
	OpenAIKey      string
	ChatModel      string
	EmbeddingModel string
	MaxTurns       int
}

type ToolsConfig struct {
	SerpAPIKey         string
	TravelGuideBaseURL string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvInt("API_PORT", 8080),
			Env:          getEnv("APP_ENV", "development"),
			Name:         getEnv("APP_NAME", "conduit"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Monitoring: MonitoringConfig{
			PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", true),
			PrometheusPort:    getEnvInt("PROMETHEUS_PORT", 9090),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", false),
			RequestLimit:  getEnvInt("RATE_LIMIT_REQUESTS", 60),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW", 60),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Knowledge: KnowledgeConfig{
			Driver:          getEnv("VECTOR_STORE_DRIVER", "postgres"),
			DatabaseURL:     getEnv("DATABASE_URL", ""),
			MongoURI:        getEnv("MONGO_URI", ""),
			MongoDatabase:   getEnv("MONGO_DATABASE", "conduit"),
			MongoCollection: getEnv("MONGO_COLLECTION", "knowledge_records"),
		},
		Completion: CompletionConfig{
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:        getEnv("COMPLETION_MODEL", "claude-2"),
			MaxTokens:    getEnvInt("COMPLETION_MAX_TOKENS", 300),
		},
		Agent: AgentConfig{
			OpenAIKey:      getEnv("OPENAI_API_KEY", ""),
			ChatModel:      getEnv("AGENT_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel: getEnv("AGENT_EMBEDDING_MODEL", "text-embedding-ada-002"),
			MaxTurns:       getEnvInt("AGENT_MAX_TURNS", 10),
		},
		Tools: ToolsConfig{
			SerpAPIKey:         getEnv("SERPAPI_API_KEY", ""),
			TravelGuideBaseURL: getEnv("TRAVEL_GUIDE_API_URL", "https://www.triposo.com/api/20220104"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
// It runs exactly once, at startup; a missing secret is fatal before the
// first request is served and is never re-checked while the process runs.
func (c *Config) Validate() error {
	switch c.Knowledge.Driver {
	case "postgres":
		if c.Knowledge.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when VECTOR_STORE_DRIVER=postgres")
		}
	case "mongo":
		if c.Knowledge.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when VECTOR_STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unsupported VECTOR_STORE_DRIVER %q (expected postgres or mongo)", c.Knowledge.Driver)
	}

	if c.Completion.AnthropicKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.Agent.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Tools.SerpAPIKey == "" {
		return fmt.Errorf("SERPAPI_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Auth     AuthConfig     `mapstructure:"auth"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Scope    ScopeConfig    `mapstructure:"scope"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	CollectionTTL time.Duration `mapstructure:"collection_ttl"`
	StepTTL       time.Duration `mapstructure:"step_ttl"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// StorageConfig selects the object store backend: "mongo" or "sqlite"
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	Collection string `mapstructure:"collection"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// CatalogConfig selects the well catalog source: "postgres", "mysql", "sqlite" or "mongo".
// An empty DSN reuses the main database (postgres) or mongo.uri (mongo).
type CatalogConfig struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	Table        string        `mapstructure:"table"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MaxResults   int           `mapstructure:"max_results"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

type LLMConfig struct {
	DefaultProvider   string          `mapstructure:"default_provider"`
	ClassifierTimeout time.Duration   `mapstructure:"classifier_timeout"`
	TitleTimeout      time.Duration   `mapstructure:"title_timeout"`
	MaxHistoryChars   int             `mapstructure:"max_history_chars"`
	Gemini            GeminiConfig    `mapstructure:"gemini"`
	OpenAI            OpenAIConfig    `mapstructure:"openai"`
	DeepSeek          OpenAIConfig    `mapstructure:"deepseek"`
	Anthropic         AnthropicConfig `mapstructure:"anthropic"`
	Ollama            OllamaConfig    `mapstructure:"ollama"`
	Bedrock           BedrockConfig   `mapstructure:"bedrock"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig also describes OpenAI-compatible endpoints such as DeepSeek
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

type AgentConfig struct {
	HistoryLimit    int           `mapstructure:"history_limit"`
	DefaultAgent    string        `mapstructure:"default_agent"`
	LLMClassifier   bool          `mapstructure:"llm_classifier"`
	StreamQueueSize int           `mapstructure:"stream_queue_size"`
	StreamTimeout   time.Duration `mapstructure:"stream_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type ScopeConfig struct {
	EntityPattern string `mapstructure:"entity_pattern"`
	PreviewLimit  int    `mapstructure:"preview_limit"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   string        `mapstructure:"file"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.middleware_timeout", "110s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "energyagent")
	v.SetDefault("database.database", "energyagent")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.collection_ttl", "1h")
	v.SetDefault("redis.step_ttl", "24h")

	// Mongo
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "energyagent")
	v.SetDefault("mongo.connect_timeout", "10s")

	// Object storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.collection", "objects")
	v.SetDefault("storage.sqlite_path", "./data/objects.db")

	// Well catalog
	v.SetDefault("catalog.driver", "postgres")
	v.SetDefault("catalog.table", "wells")
	v.SetDefault("catalog.query_timeout", "10s")
	v.SetDefault("catalog.max_results", 50)

	// Auth
	v.SetDefault("auth.access_token_ttl", "1h")
	v.SetDefault("auth.issuer", "energy-agent")

	// LLM
	v.SetDefault("llm.default_provider", "ollama")
	v.SetDefault("llm.classifier_timeout", "10s")
	v.SetDefault("llm.title_timeout", "20s")
	v.SetDefault("llm.max_history_chars", 2000)
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.default_model", "llama3")
	v.SetDefault("llm.deepseek.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("llm.deepseek.model", "deepseek-chat")
	v.SetDefault("llm.bedrock.model", "anthropic.claude-3-haiku-20240307-v1:0")

	// Agent
	v.SetDefault("agent.history_limit", 10)
	v.SetDefault("agent.default_agent", "petrophysics")
	v.SetDefault("agent.llm_classifier", true)
	v.SetDefault("agent.stream_queue_size", 256)
	v.SetDefault("agent.stream_timeout", "2s")
	v.SetDefault("agent.request_timeout", "90s")

	// Scope guard
	v.SetDefault("scope.entity_pattern", `(?i)\bwell[-_ ]?\d+[a-z0-9]*\b`)
	v.SetDefault("scope.preview_limit", 5)

	// Security
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_age", "168h")

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("env", "ENV")

	// Database
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Mongo
	v.BindEnv("mongo.uri", "MONGO_URI")

	// Catalog
	v.BindEnv("catalog.dsn", "CATALOG_DSN")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// LLM API Keys
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")
	v.BindEnv("llm.bedrock.enabled", "BEDROCK_ENABLED")
}

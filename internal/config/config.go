package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig `yaml:"postgres"`
	Server     ServerConfig     `yaml:"server"`
	Search     SearchConfig     `yaml:"search"`
	Ranking    RankingConfig    `yaml:"ranking"`
	Logging    LoggingConfig    `yaml:"logging"`
	AI         AIConfig         `yaml:"ai"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Redis      RedisConfig      `yaml:"redis"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Retention  RetentionConfig  `yaml:"retention"`
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string `yaml:"dsn"` // full connection string, preferred over the discrete fields
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Database           string `yaml:"database"`
	SSLMode            string `yaml:"sslMode"`
	MaxConnections     int    `yaml:"maxConnections"`
	MaxIdleConnections int    `yaml:"maxIdleConnections"`
	AutoMigrate        bool   `yaml:"autoMigrate"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	Host           string `yaml:"host"`
	GinMode        string `yaml:"ginMode"`
	AllowedOrigins string `yaml:"allowedOrigins"`
	AllowedMethods string `yaml:"allowedMethods"`
	AllowedHeaders string `yaml:"allowedHeaders"`
}

// SearchConfig holds pagination limits for listing and search endpoints
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxLimit     int `yaml:"maxLimit"`
}

// RankingConfig holds ranking weights configuration
type RankingConfig struct {
	WeightText    float64 `yaml:"weightText"`
	WeightPrice   float64 `yaml:"weightPrice"`
	WeightRecency float64 `yaml:"weightRecency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AIConfig selects the model provider used for extraction and search intent
type AIConfig struct {
	Provider    string  `yaml:"provider"` // openai | gemini
	Temperature float64 `yaml:"temperature"`
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey          string  `yaml:"apiKey"`
	APIBase         string  `yaml:"apiBase"`
	ChatModel       string  `yaml:"chatModel"`
	ChatTemperature float64 `yaml:"chatTemperature"`
	ChatTopP        float64 `yaml:"chatTopP"`
	ChatMaxTokens   int     `yaml:"chatMaxTokens"`
	ChatExtraBody   string  `yaml:"chatExtraBody"` // JSON string for extra_body
	Timeout         int     `yaml:"timeout"`
	Enabled         bool    `yaml:"-"`
}

// GeminiConfig holds Google Gemini (Generative Language API) configuration
type GeminiConfig struct {
	APIKey  string `yaml:"apiKey"`
	APIBase string `yaml:"apiBase"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"`
	Enabled bool   `yaml:"-"`
}

// RedisConfig holds the optional Redis used for per-user rate limiting
type RedisConfig struct {
	URL                string `yaml:"url"`
	RateLimitPerMinute int    `yaml:"rateLimitPerMinute"`
}

// FetchConfig controls how listing pages are downloaded for import
type FetchConfig struct {
	UserAgent     string `yaml:"userAgent"`
	TimeoutMs     int    `yaml:"timeoutMs"`
	RespectRobots bool   `yaml:"respectRobots"`
	MaxBytes      int64  `yaml:"maxBytes"`
}

// RetentionConfig controls the job that deactivates stale listings
type RetentionConfig struct {
	ListingTTLDays int    `yaml:"listingTTLDays"`
	Schedule       string `yaml:"schedule"`
}

// Defaults returns the configuration used when neither a config file nor
// environment variables override a value.
func Defaults() *Config {
	return &Config{
		PostgreSQL: PostgreSQLConfig{
			Host:               "localhost",
			Port:               5432,
			User:               "postgres",
			Database:           "propertibot",
			SSLMode:            "disable",
			MaxConnections:     25,
			MaxIdleConnections: 5,
			AutoMigrate:        true,
		},
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			GinMode:        "release",
			AllowedOrigins: "*",
			AllowedMethods: "GET,POST,PATCH,DELETE,OPTIONS",
			AllowedHeaders: "Content-Type,Authorization,X-User-ID,X-Request-ID",
		},
		Search: SearchConfig{
			DefaultLimit: 5,
			MaxLimit:     50,
		},
		Ranking: RankingConfig{
			WeightText:    0.5,
			WeightPrice:   0.3,
			WeightRecency: 0.2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		AI: AIConfig{
			Provider:    "gemini",
			Temperature: 0.1,
		},
		OpenAI: OpenAIConfig{
			APIBase:         "https://api.openai.com/v1",
			ChatModel:       "gpt-4o-mini",
			ChatTemperature: 0.1,
			ChatMaxTokens:   2048,
			Timeout:         30,
		},
		Gemini: GeminiConfig{
			APIBase: "https://generativelanguage.googleapis.com/v1beta",
			Model:   "gemini-flash-latest",
			Timeout: 30,
		},
		Redis: RedisConfig{
			RateLimitPerMinute: 20,
		},
		Fetch: FetchConfig{
			UserAgent:     "propertibot/1.0 (+https://github.com/fajarsembar01/home)",
			TimeoutMs:     15000,
			RespectRobots: true,
			MaxBytes:      2 << 20,
		},
		Retention: RetentionConfig{
			ListingTTLDays: 90,
			Schedule:       "@daily",
		},
	}
}

// Load reads configuration from an optional YAML file (CONFIG_FILE) and then
// lets environment variables override individual values.
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	cfg.OpenAI.Enabled = cfg.OpenAI.APIKey != ""
	cfg.Gemini.Enabled = cfg.Gemini.APIKey != ""
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	pg := &cfg.PostgreSQL
	pg.DSN = getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", pg.DSN)))
	pg.Host = getEnv("PG_HOST", pg.Host)
	pg.Port = getEnvAsInt("PG_PORT", pg.Port)
	pg.User = getEnv("PG_USER", pg.User)
	pg.Password = getEnv("PG_PASSWORD", pg.Password)
	pg.Database = getEnv("PG_DATABASE", pg.Database)
	pg.SSLMode = getEnv("PG_SSLMODE", pg.SSLMode)
	pg.MaxConnections = getEnvAsInt("PG_MAX_CONNECTIONS", pg.MaxConnections)
	pg.MaxIdleConnections = getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", pg.MaxIdleConnections)
	pg.AutoMigrate = getEnvAsBool("DB_AUTO_MIGRATE", pg.AutoMigrate)

	srv := &cfg.Server
	srv.Port = getEnvAsInt("SERVER_PORT", srv.Port)
	srv.Host = getEnv("SERVER_HOST", srv.Host)
	srv.GinMode = getEnv("GIN_MODE", srv.GinMode)
	srv.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", srv.AllowedOrigins)
	srv.AllowedMethods = getEnv("CORS_ALLOWED_METHODS", srv.AllowedMethods)
	srv.AllowedHeaders = getEnv("CORS_ALLOWED_HEADERS", srv.AllowedHeaders)

	cfg.Search.DefaultLimit = getEnvAsInt("SEARCH_DEFAULT_LIMIT", cfg.Search.DefaultLimit)
	cfg.Search.MaxLimit = getEnvAsInt("SEARCH_MAX_LIMIT", cfg.Search.MaxLimit)

	cfg.Ranking.WeightText = getEnvAsFloat("RANK_WEIGHT_TEXT", cfg.Ranking.WeightText)
	cfg.Ranking.WeightPrice = getEnvAsFloat("RANK_WEIGHT_PRICE", cfg.Ranking.WeightPrice)
	cfg.Ranking.WeightRecency = getEnvAsFloat("RANK_WEIGHT_RECENCY", cfg.Ranking.WeightRecency)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.AI.Provider = getEnv("AI_PROVIDER", cfg.AI.Provider)
	cfg.AI.Temperature = getEnvAsFloat("AI_TEMPERATURE", cfg.AI.Temperature)

	oa := &cfg.OpenAI
	oa.APIKey = getEnv("OPENAI_API_KEY", oa.APIKey)
	oa.APIBase = getEnv("OPENAI_API_BASE", oa.APIBase)
	oa.ChatModel = getEnv("OPENAI_CHAT_MODEL", oa.ChatModel)
	oa.ChatTemperature = getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", oa.ChatTemperature)
	oa.ChatTopP = getEnvAsFloat("OPENAI_CHAT_TOP_P", oa.ChatTopP)
	oa.ChatMaxTokens = getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", oa.ChatMaxTokens)
	oa.ChatExtraBody = getEnv("OPENAI_CHAT_EXTRA_BODY", oa.ChatExtraBody)
	oa.Timeout = getEnvAsInt("OPENAI_TIMEOUT", oa.Timeout)

	gm := &cfg.Gemini
	gm.APIKey = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", gm.APIKey))
	gm.APIBase = getEnv("GEMINI_API_BASE", gm.APIBase)
	gm.Model = getEnv("GEMINI_MODEL", gm.Model)
	gm.Timeout = getEnvAsInt("GEMINI_TIMEOUT", gm.Timeout)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.RateLimitPerMinute = getEnvAsInt("RATE_LIMIT_PER_MINUTE", cfg.Redis.RateLimitPerMinute)

	cfg.Fetch.UserAgent = getEnv("FETCH_USER_AGENT", cfg.Fetch.UserAgent)
	cfg.Fetch.TimeoutMs = getEnvAsInt("FETCH_TIMEOUT_MS", cfg.Fetch.TimeoutMs)
	cfg.Fetch.RespectRobots = getEnvAsBool("FETCH_RESPECT_ROBOTS", cfg.Fetch.RespectRobots)
	cfg.Fetch.MaxBytes = int64(getEnvAsInt("FETCH_MAX_BYTES", int(cfg.Fetch.MaxBytes)))

	cfg.Retention.ListingTTLDays = getEnvAsInt("LISTING_TTL_DAYS", cfg.Retention.ListingTTLDays)
	cfg.Retention.Schedule = getEnv("LISTING_EXPIRY_SCHEDULE", cfg.Retention.Schedule)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.AI.Provider {
	case "openai", "gemini", "none":
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q (want openai, gemini or none)", c.AI.Provider)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit <= 0 {
		return fmt.Errorf("search limits must be positive")
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT (%d) exceeds SEARCH_MAX_LIMIT (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid integer value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		slog.Warn("invalid float value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("invalid boolean value, using default", "key", key, "default", defaultValue)
		return defaultValue
	}
	return value
}

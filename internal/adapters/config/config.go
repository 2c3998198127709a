package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration
type Config struct {
	Server     ServerConfig     `envconfig:"SERVER"`
	MarketData MarketDataConfig `envconfig:"MARKET"`
	News       NewsConfig       `envconfig:"NEWS"`
	AI         AIConfig         `envconfig:"AI"`
	RateLimit  RateLimitConfig  `envconfig:"RATELIMIT"`
	Database   DatabaseConfig   `envconfig:"DATABASE"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	ClickHouse ClickHouseConfig `envconfig:"CLICKHOUSE"`
	Ingest     IngestConfig     `envconfig:"INGEST"`
	Logging    LoggingConfig    `envconfig:"LOGGING"`
}

// ServerConfig represents HTTP server parameters
type ServerConfig struct {
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"SERVER_REQUEST_TIMEOUT" default:"60s"`
	SettingsFile    string        `envconfig:"SERVER_SETTINGS_FILE" default:"data/settings.json"`
	AllowedOrigins  []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// MarketDataConfig represents market data provider parameters
type MarketDataConfig struct {
	BaseURL     string        `envconfig:"MARKET_BASE_URL" default:"https://query1.finance.yahoo.com"`
	Timeout     time.Duration `envconfig:"MARKET_TIMEOUT" default:"6s"`
	MaxAttempts int           `envconfig:"MARKET_MAX_ATTEMPTS" default:"3"`
	RetryDelay  time.Duration `envconfig:"MARKET_RETRY_DELAY" default:"500ms"`
}

// NewsConfig represents news collection parameters
type NewsConfig struct {
	FeedBaseURL     string        `envconfig:"NEWS_FEED_BASE_URL" default:"https://feeds.finance.yahoo.com/rss/2.0/headline"`
	ScrapeURL       string        `envconfig:"NEWS_SCRAPE_URL" default:"https://finviz.com/news.ashx"`
	ScrapeEnabled   bool          `envconfig:"NEWS_SCRAPE_ENABLED" default:"true"`
	Timeout         time.Duration `envconfig:"NEWS_TIMEOUT" default:"6s"`
	MaxPerTicker    int           `envconfig:"NEWS_MAX_PER_TICKER" default:"3"`
	MinPerTicker    int           `envconfig:"NEWS_MIN_PER_TICKER" default:"2"`
	CacheTTL        time.Duration `envconfig:"NEWS_CACHE_TTL" default:"10m"`
	DispatchStagger time.Duration `envconfig:"NEWS_DISPATCH_STAGGER" default:"150ms"`
}

// AIConfig represents LLM provider configuration
type AIConfig struct {
	APIKey         string        `envconfig:"AI_API_KEY" required:"true"`
	BaseURL        string        `envconfig:"AI_BASE_URL" required:"false"`
	Model          string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string        `envconfig:"AI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	Timeout        time.Duration `envconfig:"AI_TIMEOUT" default:"45s"`
}

// RateLimitConfig represents the per-client daily quota
type RateLimitConfig struct {
	DailyQuota int `envconfig:"RATELIMIT_DAILY_QUOTA" default:"5"`
}

// DatabaseConfig represents database connection parameters. The
// database backs filing ingestion and chat; with Enabled false those
// endpoints answer 503 and the sentiment pipeline runs without it.
type DatabaseConfig struct {
	Enabled        bool   `envconfig:"DB_ENABLED" default:"false"`
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           int    `envconfig:"DB_PORT" default:"5432"`
	Name           string `envconfig:"DB_NAME" default:"finpulse"`
	User           string `envconfig:"DB_USER" required:"false"`
	Password       string `envconfig:"DB_PASSWORD" required:"false"`
	SSLMode        string `envconfig:"DB_SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_PATH" default:"migrations"`
}

// RedisConfig represents optional Redis cache parameters
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" required:"false"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// ClickHouseConfig represents optional metrics sink parameters
type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Database string `envconfig:"CLICKHOUSE_DATABASE" default:"finpulse"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD" required:"false"`
}

// IngestConfig represents filing ingestion parameters
type IngestConfig struct {
	EdgarBaseURL string        `envconfig:"INGEST_EDGAR_BASE_URL" default:"https://www.sec.gov"`
	EdgarDataURL string        `envconfig:"INGEST_EDGAR_DATA_URL" default:"https://data.sec.gov"`
	UserAgent    string        `envconfig:"INGEST_USER_AGENT" default:"finpulse/1.0 ops@finpulse.dev"`
	MaxFilings   int           `envconfig:"INGEST_MAX_FILINGS" default:"2"`
	ChunkSize    int           `envconfig:"INGEST_CHUNK_SIZE" default:"1200"`
	ChunkOverlap int           `envconfig:"INGEST_CHUNK_OVERLAP" default:"150"`
	Timeout      time.Duration `envconfig:"INGEST_TIMEOUT" default:"30s"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	File  string `envconfig:"LOG_FILE" default:""`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required")
	}
	if c.RateLimit.DailyQuota < 1 {
		return fmt.Errorf("daily quota must be at least 1")
	}
	if c.News.MaxPerTicker < 1 {
		return fmt.Errorf("news max per ticker must be at least 1")
	}
	if c.MarketData.MaxAttempts < 1 {
		return fmt.Errorf("market data max attempts must be at least 1")
	}
	if c.Ingest.ChunkSize <= c.Ingest.ChunkOverlap {
		return fmt.Errorf("chunk size must exceed chunk overlap")
	}
	if c.Database.Enabled && c.Database.User == "" {
		return fmt.Errorf("database user is required when the database is enabled")
	}
	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns the Redis network address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the ClickHouse network address
func (c *ClickHouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ABOUTME: This file implements configuration management with environment variable support
// ABOUTME: Provides validation and defaults for every subsystem of the service
package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server      ServerConfig      `json:"server"`
	Database    DatabaseConfig    `json:"database"`
	Fetch       FetchConfig       `json:"fetch"`
	Health      HealthConfig      `json:"health"`
	Retry       RetryConfig       `json:"retry"`
	Provider    ProviderConfig    `json:"provider"`
	Digest      DigestConfig      `json:"digest"`
	Cache       CacheConfig       `json:"cache"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
	VectorStore VectorStoreConfig `json:"vector_store"`
	Secrets     SecretsConfig     `json:"secrets"`
}

type ServerConfig struct {
	Port            int           `json:"port" env:"SERVER_PORT" default:"9300"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"10s"`
	// Extended to allow synchronous digest generation through an LLM
	WriteTimeout time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"300s"`
}

type DatabaseConfig struct {
	Host     string `json:"host" env:"DB_HOST" default:"localhost"`
	Port     int    `json:"port" env:"DB_PORT" default:"5432"`
	User     string `json:"user" env:"DB_USER" default:"rss_digest_user"`
	Password string `json:"-" env:"DB_PASSWORD"`
	Name     string `json:"name" env:"DB_NAME" default:"rss_digest"`
	SSLMode  string `json:"ssl_mode" env:"DB_SSL_MODE" default:"prefer"`
	MaxConns int    `json:"max_conns" env:"DB_MAX_CONNS" default:"10"`
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type FetchConfig struct {
	Timeout        time.Duration `json:"timeout" env:"FETCH_TIMEOUT" default:"30s"`
	UserAgent      string        `json:"user_agent" env:"FETCH_USER_AGENT" default:"Mozilla/5.0 (compatible; RSSDigestBot/1.0)"`
	MaxConcurrency int           `json:"max_concurrency" env:"FETCH_MAX_CONCURRENCY" default:"8"`
	HostInterval   time.Duration `json:"host_interval" env:"FETCH_HOST_INTERVAL" default:"5s"`
	MaxItemsPerRun int           `json:"max_items_per_run" env:"FETCH_MAX_ITEMS_PER_RUN" default:"200"`
}

type HealthConfig struct {
	DegradedThreshold int           `json:"degraded_threshold" env:"HEALTH_DEGRADED_THRESHOLD" default:"3"`
	FailingThreshold  int           `json:"failing_threshold" env:"HEALTH_FAILING_THRESHOLD" default:"5"`
	BackoffBase       time.Duration `json:"backoff_base" env:"HEALTH_BACKOFF_BASE" default:"10m"`
	BackoffMax        time.Duration `json:"backoff_max" env:"HEALTH_BACKOFF_MAX" default:"24h"`
}

type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts" env:"RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `json:"base_delay" env:"RETRY_BASE_DELAY" default:"1s"`
	MaxDelay    time.Duration `json:"max_delay" env:"RETRY_MAX_DELAY" default:"30s"`
}

type ProviderConfig struct {
	RequestTimeout  time.Duration `json:"request_timeout" env:"PROVIDER_REQUEST_TIMEOUT" default:"240s"`
	RateLimitRPS    float64       `json:"rate_limit_rps" env:"PROVIDER_RATE_LIMIT_RPS" default:"2"`
	RateLimitBurst  int           `json:"rate_limit_burst" env:"PROVIDER_RATE_LIMIT_BURST" default:"4"`
	BreakerFailures int           `json:"breaker_failures" env:"PROVIDER_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `json:"breaker_timeout" env:"PROVIDER_BREAKER_TIMEOUT" default:"60s"`
	ModelCacheTTL   time.Duration `json:"model_cache_ttl" env:"PROVIDER_MODEL_CACHE_TTL" default:"10m"`
}

type DigestConfig struct {
	MaxArticlesPerFeed  int `json:"max_articles_per_feed" env:"DIGEST_MAX_ARTICLES_PER_FEED" default:"10"`
	PromptItemsPerFeed  int `json:"prompt_items_per_feed" env:"DIGEST_PROMPT_ITEMS_PER_FEED" default:"5"`
	ExcerptRunes        int `json:"excerpt_runes" env:"DIGEST_EXCERPT_RUNES" default:"200"`
	FallbackSentences   int `json:"fallback_sentences" env:"DIGEST_FALLBACK_SENTENCES" default:"5"`
	HotKeywords         int `json:"hot_keywords" env:"DIGEST_HOT_KEYWORDS" default:"10"`
	DefaultSummaryWords int `json:"default_summary_words" env:"DIGEST_DEFAULT_SUMMARY_WORDS" default:"300"`
}

type CacheConfig struct {
	Backend   string        `json:"backend" env:"CACHE_BACKEND" default:"memory"`
	TTL       time.Duration `json:"ttl" env:"CACHE_TTL" default:"10m"`
	MaxItems  int           `json:"max_items" env:"CACHE_MAX_ITEMS" default:"1024"`
	RedisAddr string        `json:"redis_addr" env:"CACHE_REDIS_ADDR" default:"localhost:6379"`
	RedisPass string        `json:"-" env:"CACHE_REDIS_PASSWORD"`
	RedisDB   int           `json:"redis_db" env:"CACHE_REDIS_DB" default:"0"`
}

type SchedulerConfig struct {
	Enabled    bool   `json:"enabled" env:"SCHEDULER_ENABLED" default:"true"`
	FetchSpec  string `json:"fetch_spec" env:"SCHEDULER_FETCH_SPEC" default:"*/30 * * * *"`
	DigestSpec string `json:"digest_spec" env:"SCHEDULER_DIGEST_SPEC" default:"0 6 * * *"`
}

type VectorStoreConfig struct {
	Enabled        bool   `json:"enabled" env:"VECTOR_STORE_ENABLED" default:"false"`
	EmbeddingModel string `json:"embedding_model" env:"VECTOR_STORE_EMBEDDING_MODEL" default:"text-embedding-3-small"`
}

type SecretsConfig struct {
	// Key for AES-GCM encryption of stored provider API keys. Must decode to
	// 16, 24 or 32 bytes of hex.
	ProviderKeySecret string `json:"-" env:"PROVIDER_KEY_SECRET"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := loadFromEnvironment(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive: %v", config.Fetch.Timeout)
	}

	if config.Fetch.MaxConcurrency <= 0 {
		return fmt.Errorf("fetch max concurrency must be positive: %d", config.Fetch.MaxConcurrency)
	}

	if config.Health.DegradedThreshold <= 0 {
		return fmt.Errorf("degraded threshold must be positive: %d", config.Health.DegradedThreshold)
	}

	if config.Health.FailingThreshold <= config.Health.DegradedThreshold {
		return fmt.Errorf("failing threshold must exceed degraded threshold: %d <= %d",
			config.Health.FailingThreshold, config.Health.DegradedThreshold)
	}

	if config.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be positive: %d", config.Retry.MaxAttempts)
	}

	if config.Provider.RateLimitRPS <= 0 {
		return fmt.Errorf("provider rate limit must be positive: %f", config.Provider.RateLimitRPS)
	}

	if config.Digest.MaxArticlesPerFeed <= 0 {
		return fmt.Errorf("max articles per feed must be positive: %d", config.Digest.MaxArticlesPerFeed)
	}

	if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
		return fmt.Errorf("unknown cache backend: %s", config.Cache.Backend)
	}

	if config.Cache.Backend == "redis" && config.Cache.RedisAddr == "" {
		return fmt.Errorf("redis cache backend requires CACHE_REDIS_ADDR")
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendAlgorithmic = "algorithmic"
	BackendLLM         = "llm"

	megabyte = 1024 * 1024
)

// Config holds the application configuration
// Everything is read from the environment; main loads a .env file first when present.
type Config struct {
	// Environment
	Environment string
	Port        string

	// Persistence. Empty DatabaseURL keeps commands in memory.
	DatabaseURL      string
	CommandRetention time.Duration
	JanitorInterval  time.Duration

	// Pipeline
	WorkerCount       int
	QueueSize         int
	CommandTimeout    time.Duration
	ShutdownTimeout   time.Duration
	GenerationBackend string // "algorithmic" or "llm"

	// Cache
	CacheTTL           time.Duration
	CacheMaxEntries    int
	IntentCacheTTL     time.Duration
	IntentCacheEntries int
	CacheSweepInterval time.Duration

	// API limits
	RateLimitPerMinute int
	MaxAudioBytes      int64
	RequestTimeout     time.Duration
	PollInterval       time.Duration

	// LLM API Keys
	OpenAIAPIKey   string // OpenAI API key for GPT models
	GeminiAPIKey   string // Google Gemini API key
	IntentModel    string
	IntentProvider string // "openai", "gemini" or empty to infer from model

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse

	// Auth mode
	// - "none": every caller is anonymous, rate limited by client IP
	// - "gateway": trust X-User-* headers set by the fronting gateway
	AuthMode string
}

func Load() *Config {
	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		CommandRetention:   getEnvDuration("COMMAND_RETENTION", 24*time.Hour),
		JanitorInterval:    getEnvDuration("JANITOR_INTERVAL", 10*time.Minute),
		WorkerCount:        getEnvInt("WORKER_COUNT", 4),
		QueueSize:          getEnvInt("QUEUE_SIZE", 100),
		CommandTimeout:     getEnvDuration("COMMAND_TIMEOUT", 60*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		GenerationBackend:  getEnv("GENERATION_BACKEND", BackendAlgorithmic),
		CacheTTL:           getEnvDuration("CACHE_TTL", time.Hour),
		CacheMaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", 1000),
		IntentCacheTTL:     getEnvDuration("INTENT_CACHE_TTL", time.Hour),
		IntentCacheEntries: getEnvInt("INTENT_CACHE_MAX_ENTRIES", 500),
		CacheSweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", time.Minute),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		MaxAudioBytes:      int64(getEnvInt("MAX_AUDIO_BYTES", 10*megabyte)),
		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		PollInterval:       getEnvDuration("POLL_INTERVAL", time.Second),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		IntentModel:        getEnv("INTENT_MODEL", "gpt-4.1-mini"),
		IntentProvider:     getEnv("INTENT_PROVIDER", ""),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:  getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:  getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:       getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:    getEnvBool("LANGFUSE_ENABLED", false),
		AuthMode:           getEnv("AUTH_MODE", "none"),
	}
}

// Validate reports the first setting that would leave the pipeline unusable.
func (c *Config) Validate() error {
	switch {
	case c.WorkerCount <= 0:
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.WorkerCount)
	case c.QueueSize <= 0:
		return fmt.Errorf("QUEUE_SIZE must be positive, got %d", c.QueueSize)
	case c.CommandTimeout <= 0:
		return fmt.Errorf("COMMAND_TIMEOUT must be positive, got %s", c.CommandTimeout)
	case c.CacheMaxEntries <= 0 || c.IntentCacheEntries <= 0:
		return fmt.Errorf("cache capacities must be positive")
	case c.RateLimitPerMinute <= 0:
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	case c.MaxAudioBytes <= 0:
		return fmt.Errorf("MAX_AUDIO_BYTES must be positive, got %d", c.MaxAudioBytes)
	case c.GenerationBackend != BackendAlgorithmic && c.GenerationBackend != BackendLLM:
		return fmt.Errorf("unknown GENERATION_BACKEND %q (allowed: %s, %s)",
			c.GenerationBackend, BackendAlgorithmic, BackendLLM)
	}
	return nil
}

// IsGatewayMode returns true if running behind an authenticating gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsProduction reports whether production-only integrations should be enabled.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HasLLM reports whether any LLM provider key is configured.
func (c *Config) HasLLM() bool {
	return c.OpenAIAPIKey != "" || c.GeminiAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

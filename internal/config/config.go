// Package config loads application configuration from the process
// environment, with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the ingestion/analysis backend. Field
// order roughly follows spec.md §6/§7: Telegram/LLM credentials first,
// then per-component limits.
type Config struct {
	Env string `env:"ENV" envDefault:"development"`

	PostgresDSN string `env:"POSTGRES_DSN,required"`

	TelegramAPIID    int    `env:"TELEGRAM_API_ID"`
	TelegramAPIHash  string `env:"TELEGRAM_API_HASH"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TGSessionPath    string `env:"TG_SESSION_PATH" envDefault:"./tg.session"`
	EnableTelegramBot bool  `env:"ENABLE_TELEGRAM_BOT" envDefault:"false"`

	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	PerplexityAPIKey string `env:"PERPLEXITY_API_KEY"`
	LLMAPIKey        string `env:"LLM_API_KEY"`
	LLMModel         string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`

	HTTPPort   int `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Bounded-concurrency limits, spec.md §5.
	ChannelFetchConcurrency  int `env:"CHANNEL_FETCH_CONCURRENCY" envDefault:"4"`
	LinkResolverConcurrency  int `env:"LINK_RESOLVER_CONCURRENCY" envDefault:"8"`
	LinkResolverMaxAttempts  int `env:"LINK_RESOLVER_MAX_ATTEMPTS" envDefault:"3"`
	// LLMConcurrency is the LLM client's request rate per second (burst 5);
	// it does not cap how many LLM calls are in flight at once.
	LLMConcurrency           int `env:"LLM_CONCURRENCY" envDefault:"2"`

	// Per-call timeouts, spec.md §5.
	LLMCallTimeout       time.Duration `env:"LLM_CALL_TIMEOUT" envDefault:"60s"`
	LinkResolveTimeout   time.Duration `env:"LINK_RESOLVE_TIMEOUT" envDefault:"30s"`
	// ChannelFetchTimeout is not read by any component; channel fetches
	// run without a per-call timeout.
	ChannelFetchTimeout  time.Duration `env:"CHANNEL_FETCH_TIMEOUT" envDefault:"120s"`
	SummarizerTimeout    time.Duration `env:"SUMMARIZER_TIMEOUT" envDefault:"5m"`
	SummarizerRetryBackoff time.Duration `env:"SUMMARIZER_RETRY_BACKOFF" envDefault:"2s"`

	// Progress Bus, spec.md §4.2.
	ProgressQueueSize  int           `env:"PROGRESS_QUEUE_SIZE" envDefault:"256"`
	// ProgressKeepalive is not read; the SSE handler pings on a fixed 15s
	// interval.
	ProgressKeepalive  time.Duration `env:"PROGRESS_KEEPALIVE" envDefault:"15s"`
	ProgressGracePeriod time.Duration `env:"PROGRESS_GRACE_PERIOD" envDefault:"30s"`

	// Ingestor per-source progress rate limiting, spec.md §4.4. Not read:
	// the Ingestor emits one progress event per source, when that source
	// finishes, without rate limiting.
	IngestProgressRateLimit time.Duration `env:"INGEST_PROGRESS_RATE_LIMIT" envDefault:"1s"`

	// HTTP endpoint limits, spec.md §4.8.
	MaxSourcesPerRequest int `env:"MAX_SOURCES_PER_REQUEST" envDefault:"50"`
	MaxMessageChars      int `env:"MAX_MESSAGE_CHARS" envDefault:"1000"`
	// MaxTopicsPerSummary is not read by the Summarizer, which caps its
	// result at a fixed 20 topics.
	MaxTopicsPerSummary  int `env:"MAX_TOPICS_PER_SUMMARY" envDefault:"20"`

	// Link Resolver web fetch.
	WebFetchRPS      float64       `env:"WEB_FETCH_RPS" envDefault:"2"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH" envDefault:"5000"`
	// LinkCacheTTL is not read; stored link summaries do not expire.
	LinkCacheTTL     time.Duration `env:"LINK_CACHE_TTL" envDefault:"24h"`
}

// Load reads configuration from the process environment, applying
// values from a local .env file first if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/new20/newsai/internal/core/errors"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Database
	PostgresDSN         string        `env:"POSTGRES_DSN"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"1"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// HTTP API
	Port                      int           `env:"PORT" envDefault:"3001"`
	AdminAPIKey               string        `env:"ADMIN_API_KEY"`
	AllowedOrigins            []string      `env:"API_ALLOWED_ORIGINS" envSeparator:","`
	AdminRateLimitMax         int           `env:"ADMIN_RATE_LIMIT_MAX" envDefault:"5"`
	AdminRateLimitWindow      time.Duration `env:"ADMIN_RATE_LIMIT_WINDOW" envDefault:"1m"`
	NewsletterRateLimitMax    int           `env:"NEWSLETTER_RATE_LIMIT_MAX" envDefault:"3"`
	NewsletterRateLimitWindow time.Duration `env:"NEWSLETTER_RATE_LIMIT_WINDOW" envDefault:"5m"`
	ShutdownTimeout           time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	APIBaseURL                string        `env:"API_BASE_URL" envDefault:"http://localhost:3001"`

	// Editorial model (OpenAI-compatible OpenRouter endpoint)
	OpenRouterAPIKey  string        `env:"OPENROUTER_API_KEY"`
	OpenRouterModel   string        `env:"OPENROUTER_MODEL" envDefault:"nvidia/nemotron-3-nano-30b-a3b:free"`
	OpenRouterBaseURL string        `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterReferer string        `env:"OPENROUTER_SITE_URL" envDefault:"http://localhost:3001"`
	OpenRouterTitle   string        `env:"OPENROUTER_APP_NAME" envDefault:"AI News Hub"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"20s"`
	LLMRateLimitRPS   float64       `env:"LLM_RATE_LIMIT_RPS" envDefault:"2"`
	LLMMaxRetries     int           `env:"LLM_MAX_RETRIES" envDefault:"3"`
	LLMRetryBaseDelay time.Duration `env:"LLM_RETRY_BASE_DELAY" envDefault:"1s"`

	// Images
	ImageMissingPolicy     string        `env:"IMAGE_MISSING_POLICY" envDefault:"fallback"`
	ImageGenerationEnabled bool          `env:"IMAGE_GENERATION_ENABLED" envDefault:"true"`
	HuggingFaceToken       string        `env:"HUGGINGFACE_API_TOKEN"`
	HuggingFaceImageModel  string        `env:"HUGGINGFACE_IMAGE_MODEL" envDefault:"stabilityai/stable-diffusion-xl-base-1.0"`
	HuggingFaceBaseURL     string        `env:"HUGGINGFACE_INFERENCE_URL" envDefault:"https://router.huggingface.co/hf-inference/models"`
	ImageGenerationTimeout time.Duration `env:"IMAGE_GENERATION_TIMEOUT" envDefault:"60s"`
	UnsplashAccessKey      string        `env:"UNSPLASH_ACCESS_KEY"`
	PixabayAPIKey          string        `env:"PIXABAY_API_KEY"`
	ImageBackfillBatchSize int           `env:"IMAGE_BACKFILL_BATCH_SIZE" envDefault:"15"`
	ImageBackfillDelay     time.Duration `env:"IMAGE_BACKFILL_QUERY_DELAY" envDefault:"450ms"`

	// Registry and rules files
	SourcesPath        string `env:"SOURCES_PATH" envDefault:"config/ai-sources.tsv"`
	CategoriesPath     string `env:"CATEGORIES_PATH" envDefault:"config/article-categories.json"`
	YouTubeCachePath   string `env:"YOUTUBE_CACHE_PATH" envDefault:".cache/youtube-feeds.json"`
	EditorialRulesPath string `env:"EDITORIAL_RULES_PATH"`

	// Ingestion
	MaxSourcesPerRun  int           `env:"MAX_SOURCES_PER_RUN" envDefault:"30"`
	MaxArticlesPerRun int           `env:"MAX_ARTICLES_PER_RUN" envDefault:"0"`
	MaxItemsPerFeed   int           `env:"MAX_ITEMS_PER_FEED" envDefault:"15"`
	ItemConcurrency   int           `env:"ITEM_CONCURRENCY" envDefault:"4"`
	FeedTimeout       time.Duration `env:"FEED_TIMEOUT" envDefault:"20s"`
	FeedRateLimitRPS  float64       `env:"FEED_RATE_LIMIT_RPS" envDefault:"5"`
	FeedUserAgent     string        `env:"FEED_USER_AGENT" envDefault:"AI-News-Hub/1.0 (+https://github.com/new20/newsai)"`
	AutoFetchMinutes  int           `env:"AUTO_FETCH_NEWS_MINUTES" envDefault:"0"`
	RunTimeout        time.Duration `env:"RUN_TIMEOUT" envDefault:"15m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyAliases(cfg)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)

	return cfg, nil
}

// RequireDatabase fails when no database DSN is configured.
func (c *Config) RequireDatabase() error {
	return requireSet(map[string]string{"POSTGRES_DSN": c.PostgresDSN})
}

// RequireServer fails when any value needed by the HTTP API or an ingestion run is missing.
func (c *Config) RequireServer() error {
	if err := requireSet(map[string]string{
		"POSTGRES_DSN":       c.PostgresDSN,
		"ADMIN_API_KEY":      c.AdminAPIKey,
		"OPENROUTER_API_KEY": c.OpenRouterAPIKey,
	}); err != nil {
		return err
	}

	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("%w: API_ALLOWED_ORIGINS", errors.ErrMissingConfig)
	}

	return nil
}

// AutoFetchInterval is zero when scheduled fetching is disabled.
func (c *Config) AutoFetchInterval() time.Duration {
	if c.AutoFetchMinutes <= 0 {
		return 0
	}

	return time.Duration(c.AutoFetchMinutes) * time.Minute
}

func requireSet(values map[string]string) error {
	var missing []string

	for key, val := range values {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	slices.Sort(missing)

	return fmt.Errorf("%w: %s", errors.ErrMissingConfig, strings.Join(missing, ", "))
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))

	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}

	return out
}

// applyAliases maps the variable names used by older deployments onto current ones.
func applyAliases(cfg *Config) {
	if !hasEnv("POSTGRES_DSN") {
		setStringFromEnv("DATABASE_URL", &cfg.PostgresDSN)
	}

	if !hasEnv("HUGGINGFACE_API_TOKEN") {
		setStringFromEnv("HF_TOKEN", &cfg.HuggingFaceToken)
	}

	if !hasEnv("OPENROUTER_SITE_URL") {
		setStringFromEnv("SITE_URL", &cfg.OpenRouterReferer)
	}

	if !hasEnv("OPENROUTER_APP_NAME") {
		setStringFromEnv("APP_NAME", &cfg.OpenRouterTitle)
	}

	if !hasEnv("IMAGE_GENERATION_ENABLED") {
		setBoolFromEnv("AI_IMAGE_GENERATION", &cfg.ImageGenerationEnabled)
	}

	if !hasEnv("MAX_ITEMS_PER_FEED") {
		setIntFromEnv("FEED_ITEM_LIMIT", &cfg.MaxItemsPerFeed)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setBoolFromEnv(key string, target *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setIntFromEnv(key string, target *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

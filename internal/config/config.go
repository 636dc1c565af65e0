package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const DefaultProviderOrder = "gemini,openai,google,libre,local"

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL is optional; record commands and routes need it.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"8"`

	TranslationProviders           string        `envconfig:"TRANSLATION_PROVIDERS" default:"gemini,openai,google,libre,local"`
	TranslationProvidersFile       string        `envconfig:"TRANSLATION_PROVIDERS_FILE" default:""`
	TranslationTimeout             time.Duration `envconfig:"TRANSLATION_TIMEOUT" default:"20s"`
	TranslationMinInterval         time.Duration `envconfig:"TRANSLATION_MIN_INTERVAL" default:"500ms"`
	TranslationProviderConcurrency int           `envconfig:"TRANSLATION_PROVIDER_CONCURRENCY" default:"4"`
	TranslationWorkers             int           `envconfig:"TRANSLATION_WORKERS" default:"4"`
	TranslationChunkLength         int           `envconfig:"TRANSLATION_CHUNK_LENGTH" default:"4000"`
	TranslationCachePrefix         int           `envconfig:"TRANSLATION_CACHE_PREFIX" default:"50"`
	TranslationCacheKeyMode        string        `envconfig:"TRANSLATION_CACHE_KEY_MODE" default:"prefix"`
	TranslationAudit               bool          `envconfig:"TRANSLATION_AUDIT" default:"true"`
	TranslationDetectSource        bool          `envconfig:"TRANSLATION_DETECT_SOURCE" default:"true"`
	BreakerMaxFailures             int           `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerCooldown                time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	GoogleTranslateEndpoint string `envconfig:"GOOGLE_TRANSLATE_ENDPOINT" default:""`
	LibreTranslateEndpoint  string `envconfig:"LIBRETRANSLATE_ENDPOINT" default:""`
	LibreTranslateAPIKey    string `envconfig:"LIBRETRANSLATE_API_KEY" default:""`

	// Self-hosted OpenAI-compatible translation model.
	TranslationEndpoint string `envconfig:"TRANSLATION_ENDPOINT" default:""`
	TranslationModel    string `envconfig:"TRANSLATION_MODEL" default:""`

	JobRetention       time.Duration `envconfig:"JOB_RETENTION" default:"30m"`
	CORSAllowedOrigins string        `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if len(c.ProviderOrder()) == 0 {
		return fmt.Errorf("TRANSLATION_PROVIDERS must name at least one provider")
	}
	if c.TranslationTimeout <= 0 {
		return fmt.Errorf("TRANSLATION_TIMEOUT must be > 0")
	}
	if c.TranslationMinInterval < 0 {
		return fmt.Errorf("TRANSLATION_MIN_INTERVAL must be >= 0")
	}
	if c.TranslationProviderConcurrency < 1 {
		return fmt.Errorf("TRANSLATION_PROVIDER_CONCURRENCY must be >= 1")
	}
	if c.TranslationWorkers < 1 {
		return fmt.Errorf("TRANSLATION_WORKERS must be >= 1")
	}
	if c.TranslationChunkLength < 1 {
		return fmt.Errorf("TRANSLATION_CHUNK_LENGTH must be >= 1")
	}
	if c.TranslationCachePrefix < 1 {
		return fmt.Errorf("TRANSLATION_CACHE_PREFIX must be >= 1")
	}
	switch strings.ToLower(strings.TrimSpace(c.TranslationCacheKeyMode)) {
	case "prefix", "hash":
	default:
		return fmt.Errorf("TRANSLATION_CACHE_KEY_MODE must be prefix or hash, got %q", c.TranslationCacheKeyMode)
	}
	if c.BreakerMaxFailures < 0 {
		return fmt.Errorf("BREAKER_MAX_FAILURES must be >= 0")
	}
	if c.BreakerMaxFailures > 0 && c.BreakerCooldown <= 0 {
		return fmt.Errorf("BREAKER_COOLDOWN must be > 0 when BREAKER_MAX_FAILURES is set")
	}
	if c.JobRetention <= 0 {
		return fmt.Errorf("JOB_RETENTION must be > 0")
	}
	return nil
}

// HasDatabase reports whether a content store is configured.
func (c *Config) HasDatabase() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}

// ProviderOrder returns the configured provider names, lowercased and deduplicated.
func (c *Config) ProviderOrder() []string {
	if c == nil {
		return nil
	}
	return splitList(strings.ToLower(c.TranslationProviders))
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"nara.lk/portal/internal/config"
	"nara.lk/portal/internal/db"
	"nara.lk/portal/internal/langdetect"
	"nara.lk/portal/internal/localization"
	"nara.lk/portal/internal/logging"
	"nara.lk/portal/internal/translation"
)

type databaseMode int

const (
	databaseNone databaseMode = iota
	databaseOptional
	databaseRequired
)

type runtimeOptions struct {
	database databaseMode
	// migrate applies the schema on connect.
	migrate bool
}

// runtime holds the wired services for one command invocation.
type runtime struct {
	cfg        *config.Config
	logger     zerolog.Logger
	registry   *translation.Registry
	translator *translation.Translator
	pool       *db.Pool
	manager    *localization.Manager
}

// loadConfig loads the .env file, the environment config and the logger.
func (g *globalFlags) loadConfig() (*config.Config, zerolog.Logger, error) {
	if g.env != nil {
		if _, err := g.env.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	// stdout carries command output.
	logger, err := logging.NewWithWriter(os.Stderr, cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func newRuntime(ctx context.Context, g *globalFlags, opts runtimeOptions) (*runtime, error) {
	cfg, logger, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	registry, order, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	chain, err := registry.Chain(order...)
	if err != nil {
		return nil, err
	}

	translatorOpts := translation.Options{
		Workers:        cfg.TranslationWorkers,
		MaxChunkLength: cfg.TranslationChunkLength,
		Audit:          cfg.TranslationAudit || g.audit,
		KeyFunc:        translation.NewKeyFunc(translation.ParseCacheKeyMode(cfg.TranslationCacheKeyMode), cfg.TranslationCachePrefix),
	}
	if cfg.TranslationDetectSource {
		translatorOpts.DetectSource = langdetect.DetectISO6391
	}
	translator, err := translation.NewTranslator(chain, translation.NewMemoryCache(), translatorOpts, logging.Component(logger, "translator"))
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		translator: translator,
	}

	switch {
	case opts.database == databaseRequired && !cfg.HasDatabase():
		return nil, fmt.Errorf("DATABASE_URL is required for this command")
	case opts.database != databaseNone && cfg.HasDatabase():
		pool, err := db.NewPool(ctx, db.Options{
			DatabaseURL: cfg.DatabaseURL,
			MinConns:    cfg.DBMinConns,
			MaxConns:    cfg.DBMaxConns,
			LogLevel:    cfg.LogLevel,
			Environment: cfg.Environment,
			SkipMigrate: !opts.migrate,
		}, logging.Component(logger, "db"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		rt.pool = pool
	}

	var store localization.Store
	if rt.pool != nil {
		store = rt.pool
	}
	rt.manager, err = localization.NewManager(store, translator, logging.Component(logger, "localization"))
	if err != nil {
		rt.Close()
		return nil, err
	}

	return rt, nil
}

func (r *runtime) Close() {
	if r == nil || r.pool == nil {
		return
	}
	if err := r.pool.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("database close failed")
	}
}

// buildRegistry registers every configured provider named in TRANSLATION_PROVIDERS and
// returns the chain order. Providers without credentials or endpoints are left out.
func buildRegistry(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*translation.Registry, []string, error) {
	overrides, err := cfg.LoadProviderOverrides()
	if err != nil {
		return nil, nil, err
	}

	registry := translation.NewRegistry(logging.Component(logger, "providers"))
	order := make([]string, 0, len(cfg.ProviderOrder()))
	for _, name := range cfg.ProviderOrder() {
		override := overrides[name]
		if override.Disabled {
			logger.Info().Str("provider", name).Msg("translation provider disabled by providers file")
			continue
		}

		provider, err := newProvider(ctx, cfg, name)
		if err != nil {
			return nil, nil, err
		}
		if provider == nil {
			logger.Debug().Str("provider", name).Msg("translation provider not configured")
			continue
		}
		if err := registry.Register(provider, bindingOptions(cfg, override)); err != nil {
			return nil, nil, err
		}
		order = append(order, name)
	}

	if len(order) == 0 {
		return nil, nil, fmt.Errorf("no translation provider is configured (order: %s)", strings.Join(cfg.ProviderOrder(), ", "))
	}
	logger.Info().Strs("providers", order).Msg("translation chain configured")
	return registry, order, nil
}

// newProvider returns nil when the provider lacks the settings it needs.
func newProvider(ctx context.Context, cfg *config.Config, name string) (translation.Provider, error) {
	switch name {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, nil
		}
		return translation.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "", nil)
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, nil
		}
		return translation.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, nil)
	case "google":
		// The gtx endpoint needs no key.
		return translation.NewGoogleProvider(cfg.GoogleTranslateEndpoint, nil), nil
	case "libre":
		if strings.TrimSpace(cfg.LibreTranslateEndpoint) == "" && strings.TrimSpace(cfg.LibreTranslateAPIKey) == "" {
			return nil, nil
		}
		return translation.NewLibreProvider(cfg.LibreTranslateEndpoint, cfg.LibreTranslateAPIKey, nil), nil
	case "local":
		if strings.TrimSpace(cfg.TranslationEndpoint) == "" {
			return nil, nil
		}
		return translation.NewLocalProvider(cfg.TranslationEndpoint, cfg.TranslationModel, nil), nil
	default:
		return nil, fmt.Errorf("unknown translation provider %q in TRANSLATION_PROVIDERS", name)
	}
}

func bindingOptions(cfg *config.Config, override config.ProviderOverride) translation.BindingOptions {
	opts := translation.BindingOptions{
		Timeout:            cfg.TranslationTimeout,
		MinInterval:        cfg.TranslationMinInterval,
		Concurrency:        cfg.TranslationProviderConcurrency,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerCooldown:    cfg.BreakerCooldown,
	}
	if override.Timeout > 0 {
		opts.Timeout = override.Timeout
	}
	if override.MinInterval > 0 {
		opts.MinInterval = override.MinInterval
	}
	if override.Concurrency > 0 {
		opts.Concurrency = override.Concurrency
	}
	return opts
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/spherical/pitchdeck-analyzer/internal/analysis"
	"github.com/spherical/pitchdeck-analyzer/internal/cache"
	"github.com/spherical/pitchdeck-analyzer/internal/config"
	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/extract"
	"github.com/spherical/pitchdeck-analyzer/internal/founders"
	"github.com/spherical/pitchdeck-analyzer/internal/llm"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/ocr"
	"github.com/spherical/pitchdeck-analyzer/internal/pdf"
	"github.com/spherical/pitchdeck-analyzer/internal/profile"
	"github.com/spherical/pitchdeck-analyzer/internal/search"
)

// Components is the wired application
type Components struct {
	Service     *Service
	Coordinator *founders.Coordinator
	cache       cache.Client
}

// Close releases the profile cache connection
func (c *Components) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

// Build wires every stage from configuration. OCR and analysis credentials
// are required; founder lookup degrades to skipped without its credentials.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Components, error) {
	if err := cfg.CheckModelCredentials(); err != nil {
		return nil, domain.ConfigError("Missing model credentials", err)
	}

	vision, err := NewCompleter(ctx, cfg.Vision, logger)
	if err != nil {
		return nil, err
	}
	analysisModel, err := NewCompleter(ctx, cfg.Analysis, logger)
	if err != nil {
		return nil, err
	}

	assembler := extract.NewAssembler(
		pdf.NewOpener(logger),
		pdf.NewTextExtractor(pdf.TrustPolicy{
			MinChars:        cfg.Extraction.MinChars,
			MaxGarbledRatio: cfg.Extraction.MaxGarbledRatio,
		}),
		pdf.NewRasterizer(cfg.Extraction.DPI),
		ocr.NewClient(vision, logger),
		extract.Options{Concurrency: cfg.Extraction.PageConcurrency},
		logger,
	)
	analyzer := analysis.NewAnalyzer(analysisModel, logger)

	coordinator, store, err := BuildCoordinator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var enricher FounderEnricher
	if cfg.SearchEnabled() {
		enricher = coordinator
	}

	return &Components{
		Service:     NewService(assembler, analyzer, enricher, logger),
		Coordinator: coordinator,
		cache:       store,
	}, nil
}

// BuildCoordinator wires founder lookup only. Without search credentials the
// coordinator marks every founder skipped.
func BuildCoordinator(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*founders.Coordinator, cache.Client, error) {
	lookup := LookupConfig(cfg)

	var resolver *founders.Resolver
	if cfg.SearchEnabled() {
		searcher := search.NewGoogleClient(search.Options{
			APIKey:     cfg.Search.APIKey,
			CX:         cfg.Search.CX,
			BaseURL:    cfg.Search.BaseURL,
			Timeout:    cfg.Search.Timeout,
			MaxRetries: cfg.Search.MaxRetries,
			Logger:     logger,
		})
		resolver = founders.NewResolver(searcher, lookup, logger)
	} else {
		logger.Warn().Msg("Search credentials missing, founder lookup will be skipped")
	}

	var fetcher *founders.Fetcher
	var store cache.Client
	if cfg.ProfileEnabled() {
		var err error
		store, err = NewCache(ctx, cfg.Cache)
		if err != nil {
			return nil, nil, err
		}
		provider := profile.NewClient(profile.Options{
			APIKey:     cfg.Profile.APIKey,
			BaseURL:    cfg.Profile.BaseURL,
			Timeout:    cfg.Profile.Timeout,
			MaxRetries: cfg.Profile.MaxRetries,
			Logger:     logger,
		})
		fetcher = founders.NewFetcher(provider, lookup.AccountID, store, cfg.Cache.TTL, logger)
	} else if resolver != nil {
		logger.Warn().Msg("Profile credentials missing, founders will be resolved to handles only")
	}

	return founders.NewCoordinator(resolver, fetcher, lookup.Concurrency, logger), store, nil
}

// LookupConfig maps configuration to the lookup stage settings
func LookupConfig(cfg *config.Config) domain.LookupConfig {
	return domain.LookupConfig{
		Domain:            cfg.Lookup.Domain,
		ProfilePathPrefix: cfg.Lookup.ProfilePathPrefix,
		MaxResults:        cfg.Lookup.MaxResults,
		MatchThreshold:    cfg.Lookup.MatchThreshold,
		MaxRetries:        cfg.Profile.MaxRetries,
		Concurrency:       cfg.Lookup.Concurrency,
		AccountID:         cfg.Profile.AccountID,
	}
}

// NewCompleter creates the model client for a provider
func NewCompleter(ctx context.Context, mc config.ModelConfig, logger *observability.Logger) (llm.Completer, error) {
	opts := llm.Options{
		APIKey:     mc.APIKey,
		Model:      mc.Model,
		BaseURL:    mc.BaseURL,
		Timeout:    mc.Timeout,
		MaxRetries: mc.MaxRetries,
		Logger:     logger,
	}

	switch mc.Provider {
	case config.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderOpenRouter, "":
		return llm.NewClient(opts), nil
	default:
		return nil, domain.ConfigError(fmt.Sprintf("Unknown model provider %q", mc.Provider), nil)
	}
}

// NewCache creates the profile cache selected by cfg.Driver. It returns nil
// for the "none" driver.
func NewCache(ctx context.Context, cfg config.CacheConfig) (cache.Client, error) {
	switch cfg.Driver {
	case "memory":
		return cache.NewMemoryClient(cfg.MaxEntries), nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, domain.ConfigError("Failed to connect to the profile cache", err)
		}
		return client, nil
	default:
		return nil, nil
	}
}

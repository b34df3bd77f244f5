// Package app wires configuration, storage, caches, metrics and the
// generation gateway into the services used by the HTTP server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/Conceptual-Machines/workplan-api/internal/cache"
	"github.com/Conceptual-Machines/workplan-api/internal/config"
	"github.com/Conceptual-Machines/workplan-api/internal/database"
	"github.com/Conceptual-Machines/workplan-api/internal/gateway"
	"github.com/Conceptual-Machines/workplan-api/internal/llm"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/metrics"
	"github.com/Conceptual-Machines/workplan-api/internal/observability"
	"github.com/Conceptual-Machines/workplan-api/internal/prompt"
	"github.com/Conceptual-Machines/workplan-api/internal/services"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"gorm.io/gorm"
)

const (
	redisKeyPrefix = "workplan:"

	mockModelLabel    = "mock"
	mockProviderLabel = "mock"
)

// App holds the wired services. Close releases them in reverse order.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Cache  cache.Cache

	Store      *services.GormStore
	References *services.ReferenceService
	Usage      *services.UsageService
	WorkPlans  *services.WorkPlanService

	CloudWatch *metrics.Client
	Recorder   metrics.Recorder
	Tracer     *observability.Tracer

	closers []func()
}

// New connects to the database, runs migrations and builds the services
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: db}
	a.closers = append(a.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := database.Migrate(db); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := a.initCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	cw, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.CloudWatch = cw
	a.Recorder = metrics.Multi{cw, metrics.NewSentryMetrics()}
	a.closers = append(a.closers, cw.Wait)

	a.Store = services.NewGormStore(db)
	a.References = services.NewReferenceService(a.Store, a.Cache, cfg.ReferenceCacheTTL, cfg.PromptExamplesLimit)

	prompts, err := prompt.NewPromptBuilder(prompt.WithExamplesLimit(cfg.PromptExamplesLimit))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	gw, model, providerName, err := a.newGateway(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Usage = services.NewUsageService(a.Store, a.Recorder, model, providerName)
	a.closers = append(a.closers, a.Usage.Wait)

	a.WorkPlans = services.NewWorkPlanService(a.References, gw, prompts,
		services.WithObserver(a.Usage),
		services.WithMetrics(a.Recorder),
		services.WithTimeouts(cfg.LLMTimeout, cfg.LLMMaxTimeout),
	)

	logger.Info("Services initialized", logger.Fields{
		"mode":     cfg.AIServiceMode,
		"model":    model,
		"provider": providerName,
	})
	return a, nil
}

func (a *App) initCache(ctx context.Context) error {
	if a.Config.RedisURL == "" {
		a.Cache = cache.NewMemoryCache()
		logger.Info("Using in-process cache", nil)
		return nil
	}

	redisCfg := cache.RedisConfig{URL: a.Config.RedisURL, KeyPrefix: redisKeyPrefix}
	client, err := redisCfg.NewRedisClient(ctx)
	if err != nil {
		return err
	}
	rc := cache.NewRedisCache(client, redisCfg.KeyPrefix)
	a.Cache = rc
	a.closers = append(a.closers, func() { _ = rc.Close() })
	return nil
}

// newGateway returns the configured gateway and the model and provider
// labels written to usage logs
func (a *App) newGateway(ctx context.Context) (workplan.Gateway, string, string, error) {
	cfg := a.Config
	if cfg.IsMockMode() {
		logger.Info("AI service in mock mode", logger.Fields{"delay": cfg.MockDelay.String()})
		return gateway.NewMockGateway(a.References.LoadSnapshot, cfg.MockDelay), mockModelLabel, mockProviderLabel, nil
	}

	openRouter := llm.OpenRouterConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Referer: cfg.OpenRouterReferer,
		Title:   cfg.OpenRouterTitle,
	}
	provider, err := llm.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey, openRouter).
		GetProvider(ctx, cfg.LLMModel, cfg.LLMProvider)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to create LLM provider: %w", err)
	}

	var fetch observability.PricingFetcher
	if cfg.OpenRouterAPIKey != "" {
		fetch = llm.NewOpenRouterProvider(openRouter).FetchPricing
	}
	pricing := observability.NewPricingCache(a.Cache, fetch, cfg.PricingCacheTTL)

	// the client keeps this context for Flush, which runs after shutdown starts
	a.Tracer = observability.NewTracer(context.WithoutCancel(ctx), cfg)
	a.closers = append(a.closers, a.Tracer.Flush)

	llmCfg := gateway.LLMConfig{
		Model:         cfg.LLMModel,
		Temperature:   cfg.LLMTemperature,
		MaxTokens:     cfg.LLMMaxTokens,
		ReasoningMode: cfg.LLMReasoning,
	}
	gw := gateway.NewLLMGateway(provider, llmCfg,
		gateway.WithPricing(pricing),
		gateway.WithTracer(a.Tracer),
		gateway.WithRecorder(a.Recorder),
	)
	return gw, cfg.LLMModel, provider.Name(), nil
}

// Close waits for pending usage logs and metrics, flushes traces and closes
// connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

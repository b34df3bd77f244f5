package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/cache"
	"github.com/Conceptual-Machines/workplan-api/internal/llm"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Pricing constants
const (
	tokensPerMillion    = 1_000_000.0
	costFormatPrecision = 6

	pricingCacheKey = "pricing:models"
)

// FallbackPricing is used when a model has no known price: Claude 3.5 Haiku
// estimates in USD per 1M tokens.
var FallbackPricing = llm.ModelPricing{InputPerMillion: 0.25, OutputPerMillion: 1.25}

// PricingTable holds static prices for models not listed by OpenRouter
var PricingTable = map[string]llm.ModelPricing{
	"gpt-4o-mini":           {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4.1-mini":          {InputPerMillion: 0.40, OutputPerMillion: 1.60},
	"gpt-5-mini":            {InputPerMillion: 0.25, OutputPerMillion: 2.00},
	"gemini-2.5-flash":      {InputPerMillion: 0.30, OutputPerMillion: 2.50},
	"gemini-2.5-flash-lite": {InputPerMillion: 0.10, OutputPerMillion: 0.40},
}

// PricingFetcher lists current model prices, e.g. OpenRouterProvider.FetchPricing
type PricingFetcher func(ctx context.Context) (map[string]llm.ModelPricing, error)

// PricingCache resolves model prices from a fetched listing kept in a cache
// for a TTL. Concurrent misses share a single fetch.
type PricingCache struct {
	cache cache.Cache
	fetch PricingFetcher
	ttl   time.Duration
	group singleflight.Group
}

// NewPricingCache creates a pricing cache. A nil fetch resolves from the static table only.
func NewPricingCache(c cache.Cache, fetch PricingFetcher, ttl time.Duration) *PricingCache {
	return &PricingCache{cache: c, fetch: fetch, ttl: ttl}
}

// Resolve returns the price of model. It never fails: unknown models and
// fetch errors fall back to PricingTable and then FallbackPricing.
func (p *PricingCache) Resolve(ctx context.Context, model string) llm.ModelPricing {
	if p != nil && p.fetch != nil {
		listing, err := p.listing(ctx)
		if err != nil {
			logger.Warn("Failed to fetch model pricing, using fallback", logger.Fields{
				"model": model,
				"error": err.Error(),
			})
		} else if pricing, ok := listing[model]; ok {
			return pricing
		}
	}

	if pricing, ok := PricingTable[model]; ok {
		return pricing
	}
	logger.Debug("Pricing not found for model, using fallback estimate", logger.Fields{"model": model})
	return FallbackPricing
}

func (p *PricingCache) listing(ctx context.Context) (map[string]llm.ModelPricing, error) {
	var listing map[string]llm.ModelPricing
	found, err := cache.GetJSON(ctx, p.cache, pricingCacheKey, &listing)
	if err == nil && found {
		return listing, nil
	}

	v, err, _ := p.group.Do(pricingCacheKey, func() (interface{}, error) {
		fetched, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(ctx, p.cache, pricingCacheKey, fetched, p.ttl); err != nil {
			logger.Warn("Failed to cache model pricing", logger.Fields{"error": err.Error()})
		}
		return fetched, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pricing: %w", err)
	}
	return v.(map[string]llm.ModelPricing), nil
}

// Invalidate drops the cached listing
func (p *PricingCache) Invalidate(ctx context.Context) error {
	return p.cache.Delete(ctx, pricingCacheKey)
}

// ComputeCost converts token usage to USD cost using per-1M pricing
func ComputeCost(inputTokens, outputTokens int, p llm.ModelPricing) (inputCost, outputCost, total float64) {
	inputCost = p.InputPerMillion * float64(inputTokens) / tokensPerMillion
	outputCost = p.OutputPerMillion * float64(outputTokens) / tokensPerMillion
	total = inputCost + outputCost
	return
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + formatFloat(cost, costFormatPrecision)
}

// formatFloat formats a float with specified precision using strconv
func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'f', precision, 64)
}

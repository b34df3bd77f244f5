package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderFactory creates providers based on model name or explicit provider choice
type ProviderFactory struct {
	openaiAPIKey string
	geminiAPIKey string
	openRouter   OpenRouterConfig
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(openaiAPIKey, geminiAPIKey string, openRouter OpenRouterConfig) *ProviderFactory {
	return &ProviderFactory{
		openaiAPIKey: openaiAPIKey,
		geminiAPIKey: geminiAPIKey,
		openRouter:   openRouter,
	}
}

// GetProvider returns the appropriate provider for the given model/provider name
func (f *ProviderFactory) GetProvider(ctx context.Context, model, providerName string) (Provider, error) {
	// If provider is explicitly specified, use that
	if providerName != "" {
		return f.getProviderByName(ctx, providerName)
	}

	// Otherwise, infer from model name
	return f.getProviderByName(ctx, InferProviderName(model))
}

// InferProviderName maps a model identifier to a provider name.
// Vendor-prefixed ids ("anthropic/claude-3.5-haiku") go through OpenRouter.
func InferProviderName(model string) string {
	modelLower := strings.ToLower(model)

	switch {
	case strings.Contains(modelLower, "/"):
		return providerNameOpenRouter
	case strings.HasPrefix(modelLower, "gpt-"), strings.HasPrefix(modelLower, "o3"), strings.HasPrefix(modelLower, "o4"):
		return providerNameOpenAI
	case strings.HasPrefix(modelLower, "gemini-"):
		return providerNameGemini
	default:
		// Default to OpenRouter, which routes most model ids
		return providerNameOpenRouter
	}
}

// getProviderByName creates a provider by explicit name
func (f *ProviderFactory) getProviderByName(ctx context.Context, providerName string) (Provider, error) {
	switch strings.ToLower(providerName) {
	case providerNameOpenAI:
		if f.openaiAPIKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		return NewOpenAIProvider(f.openaiAPIKey), nil

	case providerNameGemini:
		if f.geminiAPIKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		return NewGeminiProvider(ctx, f.geminiAPIKey)

	case providerNameOpenRouter:
		if f.openRouter.APIKey == "" {
			return nil, fmt.Errorf("openrouter API key not configured")
		}
		return NewOpenRouterProvider(f.openRouter), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: openai, gemini, openrouter)", providerName)
	}
}

// Package gateway implements workplan.Gateway on top of the LLM providers
// and a mock used when AI_SERVICE_MODE=mock.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/llm"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/metrics"
	"github.com/Conceptual-Machines/workplan-api/internal/observability"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
)

// LLMConfig holds the generation parameters sent with every call
type LLMConfig struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	ReasoningMode string
}

// LLMGateway sends prompts to an llm.Provider with the educational metadata
// output schema and reports usage, cost and traces.
type LLMGateway struct {
	provider llm.Provider
	cfg      LLMConfig
	pricing  *observability.PricingCache
	tracer   *observability.Tracer
	recorder metrics.Recorder
}

// Option configures an LLMGateway
type Option func(*LLMGateway)

// WithPricing resolves call cost through the given pricing cache
func WithPricing(p *observability.PricingCache) Option {
	return func(g *LLMGateway) { g.pricing = p }
}

// WithTracer traces every call in Langfuse
func WithTracer(t *observability.Tracer) Option {
	return func(g *LLMGateway) { g.tracer = t }
}

// WithRecorder reports token usage metrics
func WithRecorder(r metrics.Recorder) Option {
	return func(g *LLMGateway) { g.recorder = r }
}

func NewLLMGateway(provider llm.Provider, cfg LLMConfig, opts ...Option) *LLMGateway {
	g := &LLMGateway{
		provider: provider,
		cfg:      cfg,
		recorder: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements workplan.Gateway
func (g *LLMGateway) Generate(ctx context.Context, prompt workplan.Prompt) (*workplan.GatewayResponse, error) {
	start := time.Now()

	temperature := g.cfg.Temperature
	request := &llm.GenerationRequest{
		Model:         g.cfg.Model,
		SystemPrompt:  prompt.System,
		InputArray:    llm.UserInput(prompt.User),
		Temperature:   &temperature,
		MaxTokens:     g.cfg.MaxTokens,
		ReasoningMode: g.cfg.ReasoningMode,
		OutputSchema:  llm.EducationalMetadataSchema(),
	}

	span := g.tracer.StartGeneration(observability.SpanStart{
		Provider:  g.provider.Name(),
		Model:     g.cfg.Model,
		RequestID: logger.RequestIDFromContext(ctx),
		BulkRunID: logger.BulkRunIDFromContext(ctx),
		Params: map[string]interface{}{
			"temperature": temperature,
			"max_tokens":  g.cfg.MaxTokens,
		},
		Input: request.InputArray,
	})
	defer span.End()

	resp, err := g.provider.Generate(ctx, request)
	if err != nil {
		span.Fail(err)
		return nil, classify(err)
	}

	modelName := resp.Model
	if modelName == "" {
		modelName = g.cfg.Model
	}
	pricing := g.pricing.Resolve(ctx, modelName)
	_, _, cost := observability.ComputeCost(resp.Usage.InputTokens, resp.Usage.OutputTokens, pricing)

	span.Succeed(modelName, resp.RawOutput, resp.Usage, pricing)

	g.recorder.RecordTokenUsage(ctx, modelName, resp.Usage.TotalTokens, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	logger.LogGenerationRequest(ctx, modelName, time.Since(start), resp.Usage.AsMap(), logger.Fields{
		"provider": g.provider.Name(),
		"cost_usd": cost,
	})

	return &workplan.GatewayResponse{
		Text:     resp.RawOutput,
		Model:    modelName,
		Provider: g.provider.Name(),
		Usage: workplan.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		CostUSD: cost,
	}, nil
}

// classify maps provider errors onto the gateway error classes
func classify(err error) error {
	switch {
	case errors.Is(err, llm.ErrTimeout):
		return fmt.Errorf("%w: %w", workplan.ErrGatewayTimeout, err)
	case errors.Is(err, llm.ErrEmptyOutput):
		return fmt.Errorf("%w: %w", workplan.ErrGatewayMalformed, err)
	default:
		return fmt.Errorf("%w: %w", workplan.ErrGatewayUnavailable, err)
	}
}

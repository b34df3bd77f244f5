package observability

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/config"
	"github.com/Conceptual-Machines/workplan-api/internal/llm"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
)

const levelError model.ObservationLevel = "ERROR"

// Tracer sends one Langfuse trace per gateway call. A nil or disabled
// Tracer hands out no-op spans.
type Tracer struct {
	client *langfuse.Langfuse
	// flushCtx outlives request contexts; Flush runs during shutdown
	flushCtx context.Context
	now      func() time.Time
}

// NewTracer returns a disabled Tracer unless Langfuse is enabled and both
// keys are set. The SDK itself reads LANGFUSE_HOST and the keys from the
// environment.
func NewTracer(ctx context.Context, cfg *config.Config) *Tracer {
	t := &Tracer{flushCtx: ctx, now: time.Now}
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" || cfg.LangfusePublicKey == "" {
		logger.Info("Langfuse tracing disabled", logger.Fields{"enabled": cfg.LangfuseEnabled})
		return t
	}
	t.client = langfuse.New(ctx)
	logger.Info("Langfuse tracing enabled", logger.Fields{"host": cfg.LangfuseHost})
	return t
}

// Enabled reports whether spans are sent anywhere
func (t *Tracer) Enabled() bool {
	return t != nil && t.client != nil
}

// Flush blocks until queued events are delivered
func (t *Tracer) Flush() {
	if t.Enabled() {
		t.client.Flush(t.flushCtx)
	}
}

// SpanStart describes one metadata generation call
type SpanStart struct {
	Provider  string
	Model     string
	RequestID string
	BulkRunID string
	Params    map[string]interface{}
	Input     interface{}
}

// StartGeneration opens a "fill-work-plan" trace holding a single
// "llm.generate" generation
func (t *Tracer) StartGeneration(start SpanStart) *Span {
	if !t.Enabled() {
		return &Span{}
	}

	traceMeta := map[string]interface{}{"provider": start.Provider}
	if start.RequestID != "" {
		traceMeta["request_id"] = start.RequestID
	}
	if start.BulkRunID != "" {
		traceMeta["bulk_run_id"] = start.BulkRunID
	}
	trace, err := t.client.Trace(&model.Trace{Name: "fill-work-plan", Metadata: traceMeta})
	if err != nil {
		logger.Warn("Langfuse trace rejected", logger.Fields{"error": err.Error()})
		return &Span{}
	}

	startedAt := t.now()
	gen, err := t.client.Generation(&model.Generation{
		TraceID:   trace.ID,
		Name:      "llm.generate",
		Model:     start.Model,
		StartTime: &startedAt,
		Metadata:  start.Params,
		Input:     start.Input,
	}, nil)
	if err != nil {
		logger.Warn("Langfuse generation rejected", logger.Fields{"error": err.Error(), "trace_id": trace.ID})
		return &Span{}
	}
	return &Span{gen: gen, client: t.client, now: t.now}
}

// Span is an open Langfuse generation. The zero value discards everything.
type Span struct {
	gen    *model.Generation
	client *langfuse.Langfuse
	now    func() time.Time
}

// Succeed attaches the raw model output with token usage priced per million
func (s *Span) Succeed(modelName, output string, usage llm.TokenUsage, pricing llm.ModelPricing) {
	if s.gen == nil {
		return
	}
	if modelName != "" {
		s.gen.Model = modelName
	}
	in, out, total := ComputeCost(usage.InputTokens, usage.OutputTokens, pricing)
	s.gen.Output = output
	s.gen.Usage = model.Usage{
		Input:      usage.InputTokens,
		Output:     usage.OutputTokens,
		Total:      usage.TotalTokens,
		Unit:       model.ModelUsageUnitTokens,
		InputCost:  in,
		OutputCost: out,
		TotalCost:  total,
	}
}

// Fail marks the generation as an error and keeps the message in metadata
func (s *Span) Fail(err error) {
	if s.gen == nil || err == nil {
		return
	}
	s.gen.Level = levelError
	meta, _ := s.gen.Metadata.(map[string]interface{})
	merged := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		merged[k] = v
	}
	merged["error"] = err.Error()
	s.gen.Metadata = merged
}

// End stamps the end time and queues the generation
func (s *Span) End() {
	if s.gen == nil {
		return
	}
	endedAt := s.now()
	s.gen.EndTime = &endedAt
	if _, err := s.client.GenerationEnd(s.gen); err != nil {
		logger.Warn("Langfuse generation end rejected", logger.Fields{"error": err.Error()})
	}
	s.gen = nil
}

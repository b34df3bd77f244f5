package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryMetrics attaches measurements as child spans of the transaction in
// ctx. Nothing is recorded while Sentry has no client.
type SentryMetrics struct{}

func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{}
}

type spanData map[string]interface{}

func (m *SentryMetrics) record(ctx context.Context, op, description string, ok bool, tags map[string]string, data spanData) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	span := sentry.StartSpan(ctx, op)
	defer span.Finish()
	span.Description = description
	for k, v := range tags {
		span.SetTag(k, v)
	}
	for k, v := range data {
		span.SetData(k, v)
	}
	span.Status = sentry.SpanStatusOK
	if !ok {
		span.Status = sentry.SpanStatusInternalError
	}
}

// RecordAPIRequest records one HTTP request. 4xx and 5xx count as failures.
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	ok := statusCode < http.StatusBadRequest
	m.record(ctx, "api.request", "API Request: "+endpoint, ok,
		map[string]string{
			"endpoint":    endpoint,
			"status_code": strconv.Itoa(statusCode),
			"success":     strconv.FormatBool(ok),
		},
		spanData{"duration_ms": duration.Milliseconds()},
	)
}

// RecordTokenUsage also tags the enclosing transaction with the model
func (m *SentryMetrics) RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int) {
	data := spanData{
		"total_tokens":  totalTokens,
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
	}
	if tx := sentry.TransactionFromContext(ctx); tx != nil {
		tx.SetTag("llm.model", model)
		for k, v := range data {
			tx.SetData("llm."+k, v)
		}
	}
	m.record(ctx, "llm.token_usage", "Token Usage: "+model, true, map[string]string{"model": model}, data)
}

func (m *SentryMetrics) RecordGenerationOutcome(ctx context.Context, model, status string, duration time.Duration) {
	m.record(ctx, "workplan.generate", "Generation: "+status, status != StatusFailed,
		map[string]string{"model": model, "status": status},
		spanData{"duration_ms": duration.Milliseconds()},
	)
}

func (m *SentryMetrics) RecordBulkRun(ctx context.Context, total, succeeded, failed int, duration time.Duration) {
	m.record(ctx, "workplan.bulk", fmt.Sprintf("Bulk Run: %d/%d succeeded", succeeded, total), true, nil,
		spanData{
			"total":       total,
			"succeeded":   succeeded,
			"failed":      failed,
			"duration_ms": duration.Milliseconds(),
		},
	)
}

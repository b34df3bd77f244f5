package metrics

import (
	"context"
	"time"
)

// Generation statuses reported to RecordGenerationOutcome
const (
	StatusAccepted = "accepted"
	StatusRepaired = "repaired"
	StatusFailed   = "failed"
)

// Recorder receives generation metrics
type Recorder interface {
	RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int)
	RecordGenerationOutcome(ctx context.Context, model, status string, duration time.Duration)
	RecordBulkRun(ctx context.Context, total, succeeded, failed int, duration time.Duration)
}

// Multi fans out every record call to all recorders
type Multi []Recorder

func (m Multi) RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int) {
	for _, r := range m {
		r.RecordTokenUsage(ctx, model, totalTokens, inputTokens, outputTokens)
	}
}

func (m Multi) RecordGenerationOutcome(ctx context.Context, model, status string, duration time.Duration) {
	for _, r := range m {
		r.RecordGenerationOutcome(ctx, model, status, duration)
	}
}

func (m Multi) RecordBulkRun(ctx context.Context, total, succeeded, failed int, duration time.Duration) {
	for _, r := range m {
		r.RecordBulkRun(ctx, total, succeeded, failed, duration)
	}
}

// Noop discards all metrics
type Noop struct{}

func (Noop) RecordTokenUsage(context.Context, string, int, int, int) {}
func (Noop) RecordGenerationOutcome(context.Context, string, string, time.Duration) {}
func (Noop) RecordBulkRun(context.Context, int, int, int, time.Duration) {}

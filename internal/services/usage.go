package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/metrics"
	"github.com/Conceptual-Machines/workplan-api/internal/models"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
)

const usageWriteTimeout = 5 * time.Second

// UsageService records every generation attempt in generation_logs and
// reports its outcome to metrics. Writes are asynchronous and a failed
// write is only logged.
type UsageService struct {
	store    Store
	recorder metrics.Recorder
	model    string
	provider string
	wg       sync.WaitGroup
}

// NewUsageService creates a usage service. model and provider label attempts
// that never reached the gateway.
func NewUsageService(store Store, recorder metrics.Recorder, model, provider string) *UsageService {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &UsageService{
		store:    store,
		recorder: recorder,
		model:    model,
		provider: provider,
	}
}

// ObserveAttempt implements workplan.Observer
func (s *UsageService) ObserveAttempt(ctx context.Context, attempt workplan.Attempt) {
	entry := s.generationLog(ctx, attempt)
	s.recorder.RecordGenerationOutcome(ctx, entry.Model, entry.Status, attempt.Duration)

	writeCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(writeCtx, usageWriteTimeout)
		defer cancel()

		if err := s.store.CreateGenerationLog(ctx, entry); err != nil {
			logger.Warn("Failed to store generation log", logger.Fields{
				"request_id": entry.RequestID,
				"item_id":    entry.ItemID,
				"error":      err.Error(),
			})
		}
	}()
}

// Wait blocks until pending log writes finish
func (s *UsageService) Wait() {
	s.wg.Wait()
}

// GetStats aggregates generation logs in [from, to)
func (s *UsageService) GetStats(ctx context.Context, from, to time.Time) (*UsageStats, error) {
	return s.store.UsageStats(ctx, from, to)
}

func (s *UsageService) generationLog(ctx context.Context, attempt workplan.Attempt) *models.GenerationLog {
	entry := &models.GenerationLog{
		RequestID:  logger.RequestIDFromContext(ctx),
		BulkRunID:  logger.BulkRunIDFromContext(ctx),
		ItemID:     attempt.Request.ID,
		Model:      s.model,
		Provider:   s.provider,
		DurationMS: attempt.Duration.Milliseconds(),
	}

	if resp := attempt.Response; resp != nil {
		if resp.Model != "" {
			entry.Model = resp.Model
		}
		if resp.Provider != "" {
			entry.Provider = resp.Provider
		}
		entry.InputTokens = resp.Usage.InputTokens
		entry.OutputTokens = resp.Usage.OutputTokens
		entry.TotalTokens = resp.Usage.TotalTokens
		entry.CostUSD = resp.CostUSD
	}

	switch {
	case attempt.Err != nil:
		entry.Status = models.GenerationFailed
		entry.ErrorKind = string(attempt.Err.Kind)
		entry.ErrorCode = attempt.Err.Code()
	case attempt.Outcome != nil && attempt.Outcome.Status == workplan.StatusRepaired:
		entry.Status = models.GenerationRepaired
	default:
		entry.Status = models.GenerationAccepted
	}

	if attempt.Outcome != nil {
		entry.Notes = strings.Join(attempt.Outcome.Notes(), "\n")
	}
	return entry
}

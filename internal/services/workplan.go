package services

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/apperror"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/Conceptual-Machines/workplan-api/internal/metrics"
	"github.com/Conceptual-Machines/workplan-api/internal/workplan"
	"github.com/google/uuid"
)

// BulkResult is a finished bulk run with its id
type BulkResult struct {
	RunID string `json:"run_id"`
	*workplan.BulkRunReport
}

// WorkPlanService fills work plan metadata for single activities and bulk runs
type WorkPlanService struct {
	refs       *ReferenceService
	gateway    workplan.Gateway
	prompts    workplan.PromptBuilder
	observer   workplan.Observer
	recorder   metrics.Recorder
	timeout    time.Duration
	maxTimeout time.Duration
}

// WorkPlanOption configures a WorkPlanService
type WorkPlanOption func(*WorkPlanService)

// WithObserver reports every generation attempt to obs
func WithObserver(obs workplan.Observer) WorkPlanOption {
	return func(s *WorkPlanService) { s.observer = obs }
}

// WithMetrics reports bulk run totals to r
func WithMetrics(r metrics.Recorder) WorkPlanOption {
	return func(s *WorkPlanService) { s.recorder = r }
}

// WithTimeouts sets the default per-call timeout and the ceiling a caller may request
func WithTimeouts(timeout, maxTimeout time.Duration) WorkPlanOption {
	return func(s *WorkPlanService) {
		if timeout > 0 {
			s.timeout = timeout
		}
		if maxTimeout > 0 {
			s.maxTimeout = maxTimeout
		}
	}
}

func NewWorkPlanService(refs *ReferenceService, gateway workplan.Gateway, prompts workplan.PromptBuilder, opts ...WorkPlanOption) *WorkPlanService {
	s := &WorkPlanService{
		refs:       refs,
		gateway:    gateway,
		prompts:    prompts,
		recorder:   metrics.Noop{},
		timeout:    workplan.DefaultTimeout,
		maxTimeout: workplan.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxTimeout < s.timeout {
		s.maxTimeout = s.timeout
	}
	return s
}

// EffectiveTimeout returns the per-call timeout for a requested value:
// the default when requested is not positive, capped at the ceiling.
func (s *WorkPlanService) EffectiveTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return s.timeout
	}
	return min(requested, s.maxTimeout)
}

// FillOne generates metadata for one activity. Generation failures are
// returned as *workplan.GenerationError; a snapshot load failure is a
// database error.
func (s *WorkPlanService) FillOne(ctx context.Context, req workplan.GenerationRequest, timeout time.Duration) (*workplan.GeneratedMetadata, error) {
	snapshot, err := s.refs.LoadSnapshot(ctx)
	if err != nil {
		return nil, apperror.Database(err)
	}

	metadata, err := s.orchestrator(timeout).GenerateOne(ctx, req, snapshot)
	if err != nil {
		return nil, err
	}

	if metadata.ModuleSuggested {
		s.registerSuggestions(ctx, []string{metadata.Module})
	}
	return metadata, nil
}

// FillBulk runs every request through one snapshot, strictly in order.
// onProgress fires once per item.
func (s *WorkPlanService) FillBulk(ctx context.Context, requests []workplan.GenerationRequest, timeout time.Duration, onProgress workplan.ProgressFunc) (*BulkResult, error) {
	runID := uuid.New().String()
	ctx = logger.ContextWithBulkRunID(ctx, runID)
	start := time.Now()

	snapshot, err := s.refs.LoadSnapshot(ctx)
	if err != nil {
		return nil, apperror.Database(err)
	}

	logger.Info("Bulk run started", logger.Fields{
		"bulk_run_id": runID,
		"items":       len(requests),
	})

	report := s.orchestrator(timeout).RunBulk(ctx, requests, snapshot, onProgress)

	var suggested []string
	for _, item := range report.Succeeded {
		if item.Metadata.ModuleSuggested {
			suggested = append(suggested, item.Metadata.Module)
		}
	}
	s.registerSuggestions(ctx, suggested)

	duration := time.Since(start)
	s.recorder.RecordBulkRun(ctx, report.Total, len(report.Succeeded), len(report.Failed), duration)
	logger.Info("Bulk run completed", logger.Fields{
		"bulk_run_id": runID,
		"total":       report.Total,
		"succeeded":   len(report.Succeeded),
		"failed":      len(report.Failed),
		"duration_ms": duration.Milliseconds(),
	})

	return &BulkResult{RunID: runID, BulkRunReport: report}, nil
}

// Snapshot returns the reference snapshot the next run would use
func (s *WorkPlanService) Snapshot(ctx context.Context) (*workplan.ReferenceSnapshot, error) {
	snapshot, err := s.refs.LoadSnapshot(ctx)
	if err != nil {
		return nil, apperror.Database(err)
	}
	return snapshot, nil
}

func (s *WorkPlanService) orchestrator(timeout time.Duration) *workplan.Orchestrator {
	opts := []workplan.Option{workplan.WithTimeout(s.EffectiveTimeout(timeout))}
	if s.observer != nil {
		opts = append(opts, workplan.WithObserver(s.observer))
	}
	return workplan.NewOrchestrator(s.gateway, s.prompts, opts...)
}

func (s *WorkPlanService) registerSuggestions(ctx context.Context, names []string) {
	if len(names) == 0 {
		return
	}
	if _, err := s.refs.RegisterSuggestedModules(ctx, names); err != nil {
		logger.Warn("Failed to register suggested modules", logger.Fields{
			"modules": names,
			"error":   err.Error(),
		})
	}
}

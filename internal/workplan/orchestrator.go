package workplan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// DefaultTimeout bounds a single gateway call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Attempt describes one GenerateOne call for observers.
type Attempt struct {
	Request  GenerationRequest
	Response *GatewayResponse   // nil when the gateway was not reached or failed
	Outcome  *ValidationOutcome // nil unless the output was parsed
	Err      *GenerationError
	Duration time.Duration
}

// Observer is notified after every GenerateOne call. It must not block.
type Observer interface {
	ObserveAttempt(ctx context.Context, attempt Attempt)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, attempt Attempt)

func (f ObserverFunc) ObserveAttempt(ctx context.Context, attempt Attempt) {
	f(ctx, attempt)
}

// Orchestrator runs one request through prompt building, the gateway and
// validation. It holds no per-call state and is safe for concurrent use.
type Orchestrator struct {
	gateway  Gateway
	prompts  PromptBuilder
	timeout  time.Duration
	observer Observer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the per-call gateway timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithObserver registers an observer for every attempt.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

func NewOrchestrator(gateway Gateway, prompts PromptBuilder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway: gateway,
		prompts: prompts,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Timeout returns the configured per-call timeout.
func (o *Orchestrator) Timeout() time.Duration {
	return o.timeout
}

// GenerateOne produces validated metadata for a single request. Accepted and
// repaired outcomes both succeed; every failure is a *GenerationError and is
// never retried here.
func (o *Orchestrator) GenerateOne(ctx context.Context, req GenerationRequest, refs *ReferenceSnapshot) (*GeneratedMetadata, error) {
	start := time.Now()
	attempt := Attempt{Request: req}

	metadata, err := o.generate(ctx, req, refs, &attempt)

	attempt.Duration = time.Since(start)
	if err != nil {
		attempt.Err = err
	}
	if o.observer != nil {
		o.observer.ObserveAttempt(ctx, attempt)
	}

	if err != nil {
		return nil, err
	}
	return metadata, nil
}

func (o *Orchestrator) generate(ctx context.Context, req GenerationRequest, refs *ReferenceSnapshot, attempt *Attempt) (*GeneratedMetadata, *GenerationError) {
	if strings.TrimSpace(req.ActivityText) == "" {
		return nil, newGenerationError(KindEmptyActivity, errors.New("activity text is empty"))
	}

	prompt, err := o.prompts.BuildGenerationPrompt(req, refs)
	if err != nil {
		return nil, newGenerationError(KindInternal, fmt.Errorf("failed to build prompt: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.gateway.Generate(callCtx, prompt)
	if err != nil {
		return nil, classifyGatewayError(callCtx, err)
	}
	if resp == nil {
		return nil, newGenerationError(KindMalformedOutput, fmt.Errorf("%w: nil response", ErrGatewayMalformed))
	}
	attempt.Response = resp

	raw, err := ParseRawModelOutput(resp.Text)
	if err != nil {
		return nil, newGenerationError(KindMalformedOutput, err)
	}

	outcome := Validate(raw, refs)
	attempt.Outcome = &outcome
	if outcome.Status == StatusRejected {
		return nil, validationError(outcome.Failure)
	}
	return outcome.Metadata, nil
}

func classifyGatewayError(callCtx context.Context, err error) *GenerationError {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrGatewayTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return newGenerationError(KindTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return newGenerationError(KindTimeout, err)
	case errors.Is(err, ErrGatewayMalformed):
		return newGenerationError(KindMalformedOutput, err)
	default:
		return newGenerationError(KindUnavailable, err)
	}
}

package workplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPrompts is a PromptBuilder that echoes the request.
type stubPrompts struct {
	buildFunc func(req GenerationRequest, refs *ReferenceSnapshot) (Prompt, error)
}

func (s *stubPrompts) BuildGenerationPrompt(req GenerationRequest, refs *ReferenceSnapshot) (Prompt, error) {
	if s.buildFunc != nil {
		return s.buildFunc(req, refs)
	}
	return Prompt{
		System: "modules: " + strings.Join(refs.Modules(), ", "),
		User:   req.ActivityText,
	}, nil
}

func textGateway(text string) GatewayFunc {
	return func(ctx context.Context, prompt Prompt) (*GatewayResponse, error) {
		return &GatewayResponse{Text: text, Model: "test-model", Provider: "test"}, nil
	}
}

const validResponse = `{"module":"MATEMATYKA","curriculum_refs":["4.15","4.18"],"objectives":["Dziecko potrafi przeliczać w zakresie 5"]}`

func TestGenerateOne_Success(t *testing.T) {
	var gotPrompt Prompt
	gateway := GatewayFunc(func(ctx context.Context, prompt Prompt) (*GatewayResponse, error) {
		gotPrompt = prompt
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return &GatewayResponse{Text: validResponse}, nil
	})
	o := NewOrchestrator(gateway, &stubPrompts{})

	metadata, err := o.GenerateOne(context.Background(), GenerationRequest{ID: "1", ActivityText: "Liczenie kasztanów"}, testRefs())

	require.NoError(t, err)
	assert.Equal(t, "MATEMATYKA", metadata.Module)
	assert.Equal(t, []string{"4.15", "4.18"}, metadata.CurriculumRefs)
	assert.Equal(t, []string{"Dziecko potrafi przeliczać w zakresie 5"}, metadata.Objectives)
	assert.Equal(t, "Liczenie kasztanów", gotPrompt.User)
	assert.Contains(t, gotPrompt.System, "MATEMATYKA")
}

func TestGenerateOne_RepairedIsSuccess(t *testing.T) {
	o := NewOrchestrator(textGateway(`{"module":"matematyka","curriculum_refs":["4.15","9.99"],"objectives":["Dziecko liczy do pięciu","ok"]}`), &stubPrompts{})

	metadata, err := o.GenerateOne(context.Background(), GenerationRequest{ActivityText: "Liczenie"}, testRefs())

	require.NoError(t, err)
	assert.Equal(t, "MATEMATYKA", metadata.Module)
	assert.Equal(t, []string{"4.15"}, metadata.CurriculumRefs)
	assert.Equal(t, []string{"Dziecko liczy do pięciu"}, metadata.Objectives)
}

func TestGenerateOne_UnquotedCodeKeepsItsParagraph(t *testing.T) {
	refs := NewSnapshotFromSets([]string{"MATEMATYKA"}, []string{"4.1", "4.10"})
	o := NewOrchestrator(textGateway(`{"module":"MATEMATYKA","curriculum_refs":[4.10],"objectives":["Dziecko liczy do dziesięciu"]}`), &stubPrompts{})

	metadata, err := o.GenerateOne(context.Background(), GenerationRequest{ActivityText: "Liczenie liści"}, refs)

	require.NoError(t, err)
	assert.Equal(t, []string{"4.10"}, metadata.CurriculumRefs)
}

func TestGenerateOne_EmptyActivitySkipsGateway(t *testing.T) {
	called := false
	gateway := GatewayFunc(func(ctx context.Context, prompt Prompt) (*GatewayResponse, error) {
		called = true
		return nil, nil
	})
	o := NewOrchestrator(gateway, &stubPrompts{})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := o.GenerateOne(context.Background(), GenerationRequest{ActivityText: text}, testRefs())
		assert.ErrorIs(t, err, ErrEmptyActivity)
	}
	assert.False(t, called)
}

func TestGenerateOne_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		gateway  Gateway
		wantKind ErrorKind
		wantCode string
	}{
		{
			name: "gateway timeout sentinel",
			gateway: GatewayFunc(func(ctx context.Context, p Prompt) (*GatewayResponse, error) {
				return nil, fmt.Errorf("openrouter: %w", ErrGatewayTimeout)
			}),
			wantKind: KindTimeout,
			wantCode: "LLM_TIMEOUT",
		},
		{
			name: "deadline exceeded",
			gateway: GatewayFunc(func(ctx context.Context, p Prompt) (*GatewayResponse, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}),
			wantKind: KindTimeout,
			wantCode: "LLM_TIMEOUT",
		},
		{
			name: "transport failure",
			gateway: GatewayFunc(func(ctx context.Context, p Prompt) (*GatewayResponse, error) {
				return nil, errors.New("dial tcp: connection refused")
			}),
			wantKind: KindUnavailable,
			wantCode: "SERVICE_UNAVAILABLE",
		},
		{
			name: "gateway malformed sentinel",
			gateway: GatewayFunc(func(ctx context.Context, p Prompt) (*GatewayResponse, error) {
				return nil, fmt.Errorf("empty choices: %w", ErrGatewayMalformed)
			}),
			wantKind: KindMalformedOutput,
			wantCode: "INTERNAL_ERROR",
		},
		{
			name: "nil response",
			gateway: GatewayFunc(func(ctx context.Context, p Prompt) (*GatewayResponse, error) {
				return nil, nil
			}),
			wantKind: KindMalformedOutput,
			wantCode: "INTERNAL_ERROR",
		},
		{
			name:     "unparseable text",
			gateway:  textGateway("Przepraszam, nie mogę pomóc."),
			wantKind: KindMalformedOutput,
			wantCode: "INTERNAL_ERROR",
		},
		{
			name:     "rejected output",
			gateway:  textGateway(`{"module":"MATEMATYKA","curriculum_refs":["9.99"],"objectives":["Dziecko liczy do pięciu"]}`),
			wantKind: KindValidationFailed,
			wantCode: "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(tt.gateway, &stubPrompts{}, WithTimeout(20*time.Millisecond))

			metadata, err := o.GenerateOne(context.Background(), GenerationRequest{ActivityText: "Zabawa ruchowa"}, testRefs())

			require.Error(t, err)
			assert.Nil(t, metadata)
			var genErr *GenerationError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.wantKind, genErr.Kind)
			assert.Equal(t, tt.wantCode, genErr.Code())
			assert.NotEmpty(t, genErr.Message())
		})
	}
}

func TestGenerateOne_ValidationFailureCarriesReason(t *testing.T) {
	o := NewOrchestrator(textGateway(`{"module":"NIEZNANY","curriculum_refs":["4.15","99.99"],"objectives":["ok"]}`), &stubPrompts{})

	_, err := o.GenerateOne(context.Background(), GenerationRequest{ActivityText: "Liczenie"}, testRefs())

	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.ErrorIs(t, err, &GenerationError{Kind: KindValidationFailed, Reason: NoUsableObjectives})
	assert.NotErrorIs(t, err, &GenerationError{Kind: KindValidationFailed, Reason: NoValidCurriculumRefs})
}

func TestGenerateOne_PromptFailureIsInternal(t *testing.T) {
	prompts := &stubPrompts{buildFunc: func(GenerationRequest, *ReferenceSnapshot) (Prompt, error) {
		return Prompt{}, errors.New("template missing")
	}}
	o := NewOrchestrator(textGateway(validResponse), prompts)

	_, err := o.GenerateOne(context.Background(), GenerationRequest{ActivityText: "Liczenie"}, testRefs())

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindInternal, genErr.Kind)
	assert.False(t, genErr.Retryable())
}

func TestGenerateOne_NotifiesObserver(t *testing.T) {
	var (
		mu       sync.Mutex
		attempts []Attempt
	)
	observer := ObserverFunc(func(ctx context.Context, a Attempt) {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, a)
	})
	gateway := GatewayFunc(func(ctx context.Context, p Prompt) (*GatewayResponse, error) {
		return &GatewayResponse{
			Text:  `{"module":"MATEMATYKA","curriculum_refs":["4.15","4.15"],"objectives":["Dziecko liczy do pięciu"]}`,
			Usage: TokenUsage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120},
		}, nil
	})
	o := NewOrchestrator(gateway, &stubPrompts{}, WithObserver(observer))

	_, err := o.GenerateOne(context.Background(), GenerationRequest{ID: "a", ActivityText: "Liczenie"}, testRefs())
	require.NoError(t, err)
	_, err = o.GenerateOne(context.Background(), GenerationRequest{ID: "b"}, testRefs())
	require.Error(t, err)

	require.Len(t, attempts, 2)
	assert.Equal(t, "a", attempts[0].Request.ID)
	require.NotNil(t, attempts[0].Outcome)
	assert.Equal(t, StatusRepaired, attempts[0].Outcome.Status)
	assert.Equal(t, 120, attempts[0].Response.Usage.TotalTokens)
	assert.Nil(t, attempts[0].Err)

	assert.Equal(t, "b", attempts[1].Request.ID)
	assert.Nil(t, attempts[1].Response)
	require.NotNil(t, attempts[1].Err)
	assert.Equal(t, KindEmptyActivity, attempts[1].Err.Kind)
}

func TestWithTimeout_IgnoresNonPositive(t *testing.T) {
	o := NewOrchestrator(textGateway(validResponse), &stubPrompts{}, WithTimeout(0), WithTimeout(-time.Second))
	assert.Equal(t, DefaultTimeout, o.Timeout())

	o = NewOrchestrator(textGateway(validResponse), &stubPrompts{}, WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, o.Timeout())
}

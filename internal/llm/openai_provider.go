package llm

import (
	"context"

	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const (
	providerNameOpenAI = "openai"

	reasoningNone    = "none"
	reasoningMinimal = "minimal"
	reasoningLow     = "low"
	reasoningMedium  = "medium"
	reasoningHigh    = "high"
)

// Only the GPT-5 family accepts a reasoning parameter
var modelsWithReasoning = map[string]bool{
	"gpt-5":        true,
	"gpt-5-mini":   true,
	"gpt-5-nano":   true,
	"gpt-5.1":      true,
	"gpt-5.1-mini": true,
	"gpt-5.1-nano": true,
}

// OpenAIProvider implements the Provider interface using OpenAI's Responses API
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIProvider{
		client: &client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate calls the Responses API with the request's JSON schema as the
// text format
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	params := p.buildRequestParams(request)
	return instrument(ctx, providerNameOpenAI, request, func(ctx context.Context) (callOutcome, error) {
		resp, err := p.client.Responses.New(ctx, params)
		if err != nil {
			return callOutcome{}, err
		}
		return callOutcome{
			text: resp.OutputText(),
			usage: TokenUsage{
				InputTokens:  int(resp.Usage.InputTokens),
				OutputTokens: int(resp.Usage.OutputTokens),
				TotalTokens:  int(resp.Usage.TotalTokens),
			},
			rawUsage: resp.Usage,
			logExtra: logger.Fields{"reasoning_tokens": resp.Usage.OutputTokensDetails.ReasoningTokens},
		}, nil
	})
}

func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) responses.ResponseNewParams {
	inputItems := responses.ResponseInputParam{}

	for _, item := range request.InputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)

		if !hasRole || !hasContent {
			logger.Warn("Skipping invalid input item (missing role or content)", nil)
			continue
		}

		roleEnum := responses.EasyInputMessageRoleUser
		if role == developerRole || role == systemRole {
			roleEnum = responses.EasyInputMessageRoleDeveloper
		}

		inputItems = append(inputItems,
			responses.ResponseInputItemParamOfMessage(content, roleEnum),
		)
	}

	params := responses.ResponseNewParams{
		Model: request.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
		Instructions: openai.String(request.SystemPrompt),
	}

	if request.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(request.MaxTokens))
	}

	if modelsWithReasoning[request.Model] {
		params.Reasoning = shared.ReasoningParam{
			Effort: reasoningEffort(request.ReasoningMode),
		}
	} else if request.Temperature != nil {
		// Reasoning models reject temperature
		params.Temperature = openai.Float(*request.Temperature)
	}

	if request.OutputSchema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(
				request.OutputSchema.Name,
				request.OutputSchema.Schema,
			),
		}
	}

	return params
}

func reasoningEffort(mode string) shared.ReasoningEffort {
	switch mode {
	case reasoningMinimal, reasoningNone, "":
		return shared.ReasoningEffort(reasoningMinimal)
	case reasoningLow:
		return shared.ReasoningEffortLow
	case reasoningMedium:
		return shared.ReasoningEffortMedium
	case reasoningHigh:
		return shared.ReasoningEffortHigh
	default:
		return shared.ReasoningEffortLow
	}
}

package llm

import (
	"context"
	"strconv"

	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	providerNameOpenRouter = "openrouter"

	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

	tokensPerMillion = 1_000_000
)

// OpenRouterConfig configures the OpenRouter provider
type OpenRouterConfig struct {
	APIKey     string
	BaseURL    string
	Referer    string // sent as HTTP-Referer for app attribution
	Title      string // sent as X-Title
	MaxRetries int
}

// OpenRouterProvider implements the Provider interface using OpenRouter's
// OpenAI-compatible chat completions endpoint
type OpenRouterProvider struct {
	client *openai.Client
}

// NewOpenRouterProvider creates a new OpenRouter provider
func NewOpenRouterProvider(cfg OpenRouterConfig, opts ...option.RequestOption) *OpenRouterProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}

	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Referer != "" {
		options = append(options, option.WithHeader("HTTP-Referer", cfg.Referer))
	}
	if cfg.Title != "" {
		options = append(options, option.WithHeader("X-Title", cfg.Title))
	}
	options = append(options, opts...)

	client := openai.NewClient(options...)
	return &OpenRouterProvider{client: &client}
}

// Name returns the provider name
func (p *OpenRouterProvider) Name() string {
	return providerNameOpenRouter
}

// Generate sends a chat completion with a json_schema response format.
// A response without choices counts as empty output.
func (p *OpenRouterProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	params := p.buildChatParams(request)
	return instrument(ctx, providerNameOpenRouter, request, func(ctx context.Context) (callOutcome, error) {
		completion, err := p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return callOutcome{}, err
		}
		out := callOutcome{
			model: completion.Model,
			usage: TokenUsage{
				InputTokens:  int(completion.Usage.PromptTokens),
				OutputTokens: int(completion.Usage.CompletionTokens),
				TotalTokens:  int(completion.Usage.TotalTokens),
			},
			rawUsage: completion.Usage,
		}
		if len(completion.Choices) > 0 {
			out.text = completion.Choices[0].Message.Content
			out.logExtra = logger.Fields{"finish_reason": completion.Choices[0].FinishReason}
		}
		return out, nil
	})
}

func (p *OpenRouterProvider) buildChatParams(request *GenerationRequest) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(request.SystemPrompt))
	}

	for _, item := range request.InputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)
		if !hasRole || !hasContent {
			continue
		}
		if role == systemRole || role == developerRole {
			messages = append(messages, openai.SystemMessage(content))
			continue
		}
		messages = append(messages, openai.UserMessage(content))
	}

	params := openai.ChatCompletionNewParams{
		Model:    request.Model,
		Messages: messages,
	}

	if request.Temperature != nil {
		params.Temperature = openai.Float(*request.Temperature)
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}

	if request.OutputSchema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        request.OutputSchema.Name,
					Description: openai.String(request.OutputSchema.Description),
					Schema:      request.OutputSchema.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	return params
}

// ModelPricing is the price of a model in USD per 1M tokens
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

type openRouterModelList struct {
	Data []struct {
		ID      string `json:"id"`
		Pricing struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// FetchPricing lists OpenRouter models and returns their prices per 1M tokens.
// OpenRouter reports prices per token as decimal strings.
func (p *OpenRouterProvider) FetchPricing(ctx context.Context) (map[string]ModelPricing, error) {
	var list openRouterModelList
	if err := p.client.Get(ctx, "models", nil, &list); err != nil {
		return nil, classifyError(providerNameOpenRouter, err)
	}

	pricing := make(map[string]ModelPricing, len(list.Data))
	for _, m := range list.Data {
		input, errIn := strconv.ParseFloat(m.Pricing.Prompt, 64)
		output, errOut := strconv.ParseFloat(m.Pricing.Completion, 64)
		if errIn != nil || errOut != nil || input < 0 || output < 0 {
			continue
		}
		pricing[m.ID] = ModelPricing{
			InputPerMillion:  input * tokensPerMillion,
			OutputPerMillion: output * tokensPerMillion,
		}
	}
	return pricing, nil
}

package workplan

import "context"

// Prompt is the fully rendered input for one gateway call.
type Prompt struct {
	System string
	User   string
}

// TokenUsage reports token consumption of one gateway call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// GatewayResponse is the raw text returned by the model plus call metadata.
type GatewayResponse struct {
	Text     string
	Model    string
	Provider string
	Usage    TokenUsage
	CostUSD  float64
}

// Gateway sends a prompt to a language model. Implementations wrap
// ErrGatewayTimeout, ErrGatewayUnavailable or ErrGatewayMalformed so the
// orchestrator can classify failures; other errors count as unavailable.
type Gateway interface {
	Generate(ctx context.Context, prompt Prompt) (*GatewayResponse, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, prompt Prompt) (*GatewayResponse, error)

func (f GatewayFunc) Generate(ctx context.Context, prompt Prompt) (*GatewayResponse, error) {
	return f(ctx, prompt)
}

// PromptBuilder renders the prompt for a request. The prompt must carry
// the full module and curriculum vocabularies of refs.
type PromptBuilder interface {
	BuildGenerationPrompt(req GenerationRequest, refs *ReferenceSnapshot) (Prompt, error)
}

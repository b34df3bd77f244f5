package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name         string
	generateFunc func(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, request)
	}
	return &GenerationResponse{}, nil
}

func TestProviderInterface(t *testing.T) {
	var provider Provider = &MockProvider{name: "mock"}
	assert.Equal(t, "mock", provider.Name())
}

func TestMockProvider_Generate(t *testing.T) {
	mock := &MockProvider{
		name: "mock",
		generateFunc: func(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
			return &GenerationResponse{
				RawOutput: `{"module":"MATEMATYKA"}`,
				Model:     request.Model,
				Usage:     TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
			}, nil
		},
	}

	resp, err := mock.Generate(context.Background(), &GenerationRequest{Model: "test-model"})

	require.NoError(t, err)
	assert.Equal(t, "test-model", resp.Model)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestTokenUsage_AsMap(t *testing.T) {
	usage := TokenUsage{InputTokens: 1200, OutputTokens: 80, TotalTokens: 1280}

	assert.Equal(t, map[string]interface{}{
		"input_tokens":  1200,
		"output_tokens": 80,
		"total_tokens":  1280,
	}, usage.AsMap())
}

func TestUserInput(t *testing.T) {
	input := UserInput("Aktywność: liczenie kasztanów")

	require.Len(t, input, 1)
	assert.Equal(t, "user", input[0]["role"])
	assert.Equal(t, "Aktywność: liczenie kasztanów", input[0]["content"])
}

func TestEducationalMetadataSchema(t *testing.T) {
	schema := EducationalMetadataSchema()

	require.NotNil(t, schema)
	assert.Equal(t, "educational_metadata", schema.Name)
	assert.Equal(t, false, schema.Schema["additionalProperties"])
	assert.ElementsMatch(t, []string{"module", "curriculum_refs", "objectives"}, schema.Schema["required"])

	props, ok := schema.Schema["properties"].(map[string]any)
	require.True(t, ok)
	refs := props["curriculum_refs"].(map[string]any)
	assert.Equal(t, 10, refs["maxItems"])
	objectives := props["objectives"].(map[string]any)
	assert.Equal(t, 5, objectives["maxItems"])
}

package llm

import (
	"context"

	"github.com/Harshitk-cp/tenet/internal/domain"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what GenerateResponse returns.
type MockClient struct {
	GenerateResponseText  string
	GenerateResponseError error

	// Call tracking for assertions
	GenerateResponseCalls []struct {
		SystemPrompt string
		ContextBlock string
		Question     string
	}
}

func NewMockClient() *MockClient {
	return &MockClient{
		GenerateResponseText: `{"answer": "Mock analysis", "sources": []}`,
	}
}

func (c *MockClient) GenerateResponse(ctx context.Context, systemPrompt, contextBlock, question string) (*domain.LLMResponse, error) {
	c.GenerateResponseCalls = append(c.GenerateResponseCalls, struct {
		SystemPrompt string
		ContextBlock string
		Question     string
	}{systemPrompt, contextBlock, question})

	if c.GenerateResponseError != nil {
		return nil, c.GenerateResponseError
	}
	return &domain.LLMResponse{
		Text:   c.GenerateResponseText,
		Tokens: 42,
		Cost:   0,
	}, nil
}

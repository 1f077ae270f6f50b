package embedding

import (
	"context"
	"hash/fnv"
)

// MockClient produces deterministic pseudo-embeddings derived from the input
// text, so similarity behavior is stable across test runs without network
// access.
type MockClient struct {
	Dimensions int

	EmbedCalls []string
	EmbedError error
}

func NewMockClient() *MockClient {
	return &MockClient{Dimensions: Dimensions}
}

func (c *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	c.EmbedCalls = append(c.EmbedCalls, text)
	if c.EmbedError != nil {
		return nil, c.EmbedError
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, c.Dimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33))/float32(1<<31)*2 - 1
	}
	return vec, nil
}

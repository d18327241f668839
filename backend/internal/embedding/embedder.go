// Package embedding adapts an OpenAI-compatible embedding endpoint for
// semantic name similarity. Gateways like LiteLLM or a local inference
// server work through the configurable base URL.
package embedding

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "orgbrain/backend/pkg/errors"
	"orgbrain/backend/pkg/logger"
)

// Client produces embeddings for short texts, typically entity names
type Client struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewClient creates an embedding client. baseURL may point at any
// OpenAI-compatible endpoint; gateways often accept a dummy API key.
func NewClient(baseURL, apiKey, model string) *Client {
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL + "/v1"
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.Get(),
	}
}

// Embed returns the embedding vector for one text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, apperrors.NewEmbeddingFailed(c.model, err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewEmbeddingFailed(c.model, nil)
	}

	c.logger.Debug("embedding created",
		zap.String("model", c.model),
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
	)
	return resp.Data[0].Embedding, nil
}

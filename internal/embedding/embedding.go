package embedding

import (
	"context"
	"errors"

	"github.com/conduitchat/conduit/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

// Embedder is a pluggable text-embedding provider
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewOpenAI constructs an embedder from configuration
func NewOpenAI(cfg *config.AgentConfig) *OpenAIEmbedder {
	return NewOpenAIWithClient(openai.NewClient(cfg.OpenAIKey), cfg.EmbeddingModel)
}

// NewOpenAIWithClient wraps an existing client; used by tests to point the
// embedder at a local server.
func NewOpenAIWithClient(client *openai.Client, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: client,
		model:  openai.EmbeddingModel(model),
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embedding provider returned no vector")
	}
	return resp.Data[0].Embedding, nil
}

package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type openAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder builds an embedder against any OpenAI-compatible
// embeddings endpoint (OpenRouter in the default configuration).
func NewOpenAIEmbedder(opts Options) (Embedder, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("embedding api key not set")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &openAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.Model,
	}, nil
}

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data))
	}

	results := make([][]float32, len(texts))
	for i, datum := range resp.Data {
		idx := datum.Index
		if idx < 0 || idx >= len(results) {
			idx = i
		}
		if len(datum.Embedding) == 0 {
			return nil, fmt.Errorf("embedding response missing vector for input %d", idx)
		}
		results[idx] = datum.Embedding
	}

	return results, nil
}

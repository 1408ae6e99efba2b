// Package embeddings converts text into fixed-length vectors via an external
// OpenAI-compatible API.
package embeddings

import "context"

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	APIKey  string
	BaseURL string
	Model   string
}

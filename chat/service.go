// Package chat answers questions by retrieving stored document chunks and
// forwarding them as context to the completion API.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ragchat/embeddings"
	"ragchat/llm"
	"ragchat/vectorstore"
)

const (
	topK = 5

	// FallbackAnswer is returned when the completion API yields no usable
	// answer. The request still succeeds.
	FallbackAnswer = "No answer generated."

	promptTemplate = `You are a helpful AI assistant that answers questions using the provided document context.
If the answer isn't in the document, say: "I couldn't find relevant information in the document."

Context:
%s

Question:
%s

Answer:
`
)

type Service struct {
	embedder embeddings.Embedder
	store    vectorstore.Store
	llm      llm.Client
	logger   zerolog.Logger
}

func NewService(embedder embeddings.Embedder, store vectorstore.Store, llmClient llm.Client, logger zerolog.Logger) *Service {
	return &Service{
		embedder: embedder,
		store:    store,
		llm:      llmClient,
		logger:   logger,
	}
}

// Answer embeds the question, retrieves the closest chunks, and asks the
// completion API to answer from that context alone. Zero retrieved chunks is
// not an error; the prompt simply carries an empty context block.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question cannot be empty")
	}
	if s.embedder == nil {
		return "", fmt.Errorf("embedder not configured")
	}
	if s.store == nil {
		return "", fmt.Errorf("vector store not configured")
	}
	if s.llm == nil {
		return "", fmt.Errorf("llm client not configured")
	}

	vecs, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) == 0 {
		return "", fmt.Errorf("embedder returned no vectors")
	}

	matches, err := s.store.Query(ctx, vecs[0], topK)
	if err != nil {
		return "", fmt.Errorf("vector search: %w", err)
	}
	s.logger.Debug().Int("matches", len(matches)).Msg("retrieved context chunks")

	prompt := fmt.Sprintf(promptTemplate, buildContext(matches), question)

	answer, err := s.llm.Generate(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		if errors.Is(err, llm.ErrNoCompletion) {
			return FallbackAnswer, nil
		}
		return "", fmt.Errorf("generate answer: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return FallbackAnswer, nil
	}
	return answer, nil
}

// buildContext labels the retrieved chunks in store order, which is already
// descending by similarity.
func buildContext(matches []vectorstore.Match) string {
	parts := make([]string, 0, len(matches))
	for i, match := range matches {
		parts = append(parts, fmt.Sprintf("Chunk %d:\n%s", i+1, match.Metadata.Text))
	}
	return strings.Join(parts, "\n\n")
}

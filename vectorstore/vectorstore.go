// Package vectorstore persists chunk embeddings and answers top-K similarity
// queries. All durable state lives here; the rest of the service is stateless.
package vectorstore

import (
	"context"
	"fmt"
)

// Metadata travels with every stored vector and comes back on query matches.
type Metadata struct {
	Text       string `json:"text"`
	FileName   string `json:"fileName"`
	ChunkIndex int    `json:"chunkIndex"`
	ParserUsed string `json:"parserUsed"`
}

// Record is one embedded chunk ready for upsert. IDs are derived from the
// source file name and chunk index, so re-uploading a file overwrites its
// previous vectors instead of duplicating them.
type Record struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Match is a query result, ordered by descending similarity.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	DeleteByChunkIndex(ctx context.Context, chunkIndex int) error
}

// APIError carries a non-2xx upstream response verbatim so operators can see
// what the vector store actually said.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vector store request failed (%d): %s", e.Status, e.Body)
}

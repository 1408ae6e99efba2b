package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ragchat/embeddings"
	"ragchat/vectorstore"
)

const defaultEmbedConcurrency = 8

// Service runs the ingestion pipeline: parse, chunk, embed, upsert.
type Service struct {
	embedder     embeddings.Embedder
	store        vectorstore.Store
	logger       zerolog.Logger
	chunkSize    int
	chunkOverlap int
	concurrency  int
}

// Result summarizes a completed ingestion.
type Result struct {
	ChunkCount int
	Parser     string
}

func NewService(embedder embeddings.Embedder, store vectorstore.Store, logger zerolog.Logger, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}

	return &Service{
		embedder:     embedder,
		store:        store,
		logger:       logger,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		concurrency:  concurrency,
	}
}

// Ingest parses and chunks the uploaded document, embeds every chunk, and
// upserts the records. Records already committed before a later batch fails
// stay in the store; there is no rollback.
func (s *Service) Ingest(ctx context.Context, fileName string, data []byte) (Result, error) {
	if s.embedder == nil {
		return Result{}, fmt.Errorf("embedder not configured")
	}
	if s.store == nil {
		return Result{}, fmt.Errorf("vector store not configured")
	}

	parsed, err := ParseDocument(fileName, data)
	if err != nil {
		return Result{}, err
	}
	if len(parsed.Text) < MinTextLength {
		return Result{}, &ParseError{
			Parser: parsed.Parser,
			Sample: truncate(parsed.Text, textSampleLength),
			Err:    fmt.Errorf("extracted text too short (%d chars)", len(parsed.Text)),
		}
	}
	s.logger.Info().Str("file", fileName).Str("parser", parsed.Parser).Int("chars", len(parsed.Text)).Msg("extracted text")

	chunks, err := SplitText(parsed.Text, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return Result{}, fmt.Errorf("split text: %w", err)
	}
	if len(chunks) == 0 {
		return Result{}, &ParseError{Parser: parsed.Parser, Err: fmt.Errorf("no chunks produced")}
	}
	s.logger.Info().Str("file", fileName).Int("chunks", len(chunks)).Msg("split text into chunks")

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return Result{}, fmt.Errorf("generate embeddings: %w", err)
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = vectorstore.Record{
			ID:     RecordID(fileName, i),
			Values: vectors[i],
			Metadata: vectorstore.Metadata{
				Text:       chunk,
				FileName:   fileName,
				ChunkIndex: i,
				ParserUsed: parsed.Parser,
			},
		}
	}

	if err := s.store.Upsert(ctx, records); err != nil {
		return Result{}, fmt.Errorf("upsert vectors: %w", err)
	}

	s.logger.Info().Str("file", fileName).Int("chunks", len(chunks)).Msg("ingested document")
	return Result{ChunkCount: len(chunks), Parser: parsed.Parser}, nil
}

// embedChunks fans out embedding calls with a bounded worker pool. Chunks
// have no ordering dependency; results land at their chunk's index.
func (s *Service) embedChunks(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			vecs, err := s.embedder.Embed(ctx, []string{chunk})
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			if len(vecs) == 0 {
				return fmt.Errorf("embed chunk %d: no vector returned", i)
			}
			vectors[i] = vecs[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return vectors, nil
}

// RecordID derives a stable vector identifier from the file name and chunk
// index. Re-uploading the same file overwrites its previous vectors.
func RecordID(fileName string, index int) string {
	sanitized := strings.Join(strings.Fields(fileName), "_")
	return sanitized + "-" + strconv.Itoa(index)
}

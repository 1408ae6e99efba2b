package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"
)

// PostgresStore keeps vectors in a pgvector-enabled Postgres table. It exists
// for deployments that prefer self-hosted storage over the Pinecone SaaS.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, logger: logger}
}

func (s *PostgresStore) Upsert(ctx context.Context, records []Record) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.upsertBatch(ctx, records[start:end]); err != nil {
			return fmt.Errorf("upsert batch %d: %w", start/upsertBatchSize+1, err)
		}
	}
	return nil
}

func (s *PostgresStore) upsertBatch(ctx context.Context, records []Record) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Warn().Err(rbErr).Msg("rollback error")
			}
		}
	}()

	for _, rec := range records {
		if _, err = tx.Exec(ctx, `
			INSERT INTO rag_vectors (id, content, file_name, chunk_index, parser, embedding, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				file_name = EXCLUDED.file_name,
				chunk_index = EXCLUDED.chunk_index,
				parser = EXCLUDED.parser,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()
		`, rec.ID, rec.Metadata.Text, rec.Metadata.FileName, rec.Metadata.ChunkIndex, rec.Metadata.ParserUsed,
			pgvector.NewVector(rec.Values)); err != nil {
			return fmt.Errorf("insert vector %s: %w", rec.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if topK <= 0 {
		topK = 5
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, content, file_name, chunk_index, parser,
		       1 - (embedding <=> $1::vector) AS score
		FROM rag_vectors
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("query similar vectors: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, topK)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.Metadata.Text, &m.Metadata.FileName, &m.Metadata.ChunkIndex, &m.Metadata.ParserUsed, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return matches, nil
}

func (s *PostgresStore) DeleteByChunkIndex(ctx context.Context, chunkIndex int) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := s.pool.Exec(ctx, "DELETE FROM rag_vectors WHERE chunk_index = $1", chunkIndex)
	if err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	// Zero-match deletes are a success, just worth noting.
	s.logger.Info().Int("chunk_index", chunkIndex).Int64("deleted", tag.RowsAffected()).Msg("deleted vectors by chunk index")
	return nil
}

// Stats returns the stored vector count, used as a startup connectivity check.
func (s *PostgresStore) Stats(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM rag_vectors").Scan(&count); err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return count, nil
}

var _ Store = (*PostgresStore)(nil)

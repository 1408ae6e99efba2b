package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/vectorstore"
)

type stubEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(s.calls)}
		s.calls++
	}
	return vectors, nil
}

type stubStore struct {
	mu      sync.Mutex
	records []vectorstore.Record
	err     error
}

func (s *stubStore) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *stubStore) Query(ctx context.Context, vector []float32, topK int) ([]vectorstore.Match, error) {
	return nil, nil
}

func (s *stubStore) DeleteByChunkIndex(ctx context.Context, chunkIndex int) error {
	return nil
}

func TestIngestStoresRecordsWithDerivedIDs(t *testing.T) {
	embedder := &stubEmbedder{}
	store := &stubStore{}
	svc := NewService(embedder, store, zerolog.Nop(), 1)

	text := strings.Repeat("a", 4000)
	result, err := svc.Ingest(context.Background(), "my report.txt", []byte(text))
	require.NoError(t, err)

	assert.Equal(t, 4, result.ChunkCount)
	assert.Equal(t, ParserPlainText, result.Parser)
	require.Len(t, store.records, 4)

	for i, rec := range store.records {
		assert.Equal(t, RecordID("my report.txt", i), rec.ID)
		assert.Equal(t, i, rec.Metadata.ChunkIndex)
		assert.Equal(t, "my report.txt", rec.Metadata.FileName)
		assert.Equal(t, ParserPlainText, rec.Metadata.ParserUsed)
		assert.NotEmpty(t, rec.Metadata.Text)
		require.Len(t, rec.Values, 1)
	}
	assert.Equal(t, "my_report.txt-0", store.records[0].ID)
	assert.Equal(t, "my_report.txt-3", store.records[3].ID)
}

func TestIngestAssignsVectorsToChunkOrder(t *testing.T) {
	// Concurrency 1 makes the stub's call counter line up with chunk order.
	embedder := &stubEmbedder{}
	store := &stubStore{}
	svc := NewService(embedder, store, zerolog.Nop(), 1)

	_, err := svc.Ingest(context.Background(), "doc.txt", []byte(strings.Repeat("b", 4000)))
	require.NoError(t, err)

	require.Len(t, store.records, 4)
	for i, rec := range store.records {
		assert.Equal(t, float32(i), rec.Values[0])
	}
}

func TestIngestRejectsShortText(t *testing.T) {
	svc := NewService(&stubEmbedder{}, &stubStore{}, zerolog.Nop(), 1)

	_, err := svc.Ingest(context.Background(), "tiny.txt", []byte("too short"))
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, ParserPlainText, parseErr.Parser)
	assert.Equal(t, "too short", parseErr.Sample)
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	svc := NewService(&stubEmbedder{}, &stubStore{}, zerolog.Nop(), 1)

	_, err := svc.Ingest(context.Background(), "empty.txt", nil)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestIngestPropagatesEmbedderError(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("quota exceeded")}
	svc := NewService(embedder, &stubStore{}, zerolog.Nop(), 2)

	_, err := svc.Ingest(context.Background(), "doc.txt", []byte(strings.Repeat("c", 200)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestIngestPropagatesStoreError(t *testing.T) {
	store := &stubStore{err: errors.New("index unavailable")}
	svc := NewService(&stubEmbedder{}, store, zerolog.Nop(), 1)

	_, err := svc.Ingest(context.Background(), "doc.txt", []byte(strings.Repeat("d", 200)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestIngestRequiresDependencies(t *testing.T) {
	svc := NewService(nil, &stubStore{}, zerolog.Nop(), 1)
	_, err := svc.Ingest(context.Background(), "doc.txt", []byte("x"))
	assert.Error(t, err)

	svc = NewService(&stubEmbedder{}, nil, zerolog.Nop(), 1)
	_, err = svc.Ingest(context.Background(), "doc.txt", []byte("x"))
	assert.Error(t, err)
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "report.pdf-0", RecordID("report.pdf", 0))
	assert.Equal(t, "annual_report_2024.pdf-12", RecordID("annual report 2024.pdf", 12))
	assert.Equal(t, "a_b-3", RecordID("a \t b", 3))
}

package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultControlURL = "https://api.pinecone.io"
	// Pinecone caps upsert payload sizes; batches above this are split and
	// submitted sequentially.
	upsertBatchSize = 50

	maxErrorBodyBytes = 4096
)

// Pinecone is a minimal REST client for the Pinecone data plane. The index
// host is resolved from the control plane on first use unless configured
// directly.
type Pinecone struct {
	apiKey     string
	index      string
	controlURL string
	client     *http.Client
	logger     zerolog.Logger

	mu   sync.Mutex
	host string
}

type PineconeConfig struct {
	APIKey  string
	Index   string
	Host    string
	Control string
	Timeout time.Duration
}

func NewPinecone(cfg PineconeConfig, logger zerolog.Logger) (*Pinecone, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone api key not set")
	}
	if cfg.Index == "" && cfg.Host == "" {
		return nil, fmt.Errorf("pinecone index name not set")
	}
	control := strings.TrimRight(cfg.Control, "/")
	if control == "" {
		control = defaultControlURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Pinecone{
		apiKey:     cfg.APIKey,
		index:      cfg.Index,
		controlURL: control,
		host:       normalizeHost(cfg.Host),
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type pineconeVector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

func (p *Pinecone) Upsert(ctx context.Context, records []Record) error {
	host, err := p.ensureHost(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(records); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}

		vectors := make([]pineconeVector, 0, end-start)
		for _, rec := range records[start:end] {
			vectors = append(vectors, pineconeVector{ID: rec.ID, Values: rec.Values, Metadata: rec.Metadata})
		}

		body := map[string]any{"vectors": vectors}
		if err := p.postJSON(ctx, host+"/vectors/upsert", body, nil); err != nil {
			return fmt.Errorf("upsert batch %d: %w", start/upsertBatchSize+1, err)
		}
		p.logger.Debug().Int("batch", start/upsertBatchSize+1).Int("vectors", end-start).Msg("uploaded batch")
	}

	return nil
}

func (p *Pinecone) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	host, err := p.ensureHost(ctx)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}

	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	var resp struct {
		Matches []struct {
			ID       string   `json:"id"`
			Score    float64  `json:"score"`
			Metadata Metadata `json:"metadata"`
		} `json:"matches"`
	}
	if err := p.postJSON(ctx, host+"/query", body, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

// DeleteByChunkIndex removes every vector whose chunkIndex metadata equals
// the given value. Pinecone does not report how many vectors matched, so a
// zero-match delete is indistinguishable from a real one and is treated as
// success.
func (p *Pinecone) DeleteByChunkIndex(ctx context.Context, chunkIndex int) error {
	host, err := p.ensureHost(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"filter": map[string]any{
			"chunkIndex": map[string]any{"$eq": chunkIndex},
		},
	}
	return p.postJSON(ctx, host+"/vectors/delete", body, nil)
}

// Stats returns the total vector count, used as a startup connectivity check.
func (p *Pinecone) Stats(ctx context.Context) (int, error) {
	host, err := p.ensureHost(ctx)
	if err != nil {
		return 0, err
	}

	var resp struct {
		TotalVectorCount int `json:"totalVectorCount"`
	}
	if err := p.postJSON(ctx, host+"/describe_index_stats", map[string]any{}, &resp); err != nil {
		return 0, err
	}
	return resp.TotalVectorCount, nil
}

func (p *Pinecone) ensureHost(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.host != "" {
		return p.host, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/indexes/%s", p.controlURL, p.index), nil)
	if err != nil {
		return "", fmt.Errorf("create describe index request: %w", err)
	}
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("describe index %s: %w", p.index, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	var desc struct {
		Host string `json:"host"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return "", fmt.Errorf("decode describe index response: %w", err)
	}
	if desc.Host == "" {
		return "", fmt.Errorf("describe index %s returned no host", p.index)
	}

	p.host = normalizeHost(desc.Host)
	p.logger.Debug().Str("index", p.index).Str("host", p.host).Msg("resolved index host")
	return p.host, nil
}

func (p *Pinecone) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("call pinecone: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode pinecone response: %w", err)
		}
	}
	return nil
}

func normalizeHost(host string) string {
	if host == "" {
		return ""
	}
	host = strings.TrimRight(host, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return host
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

var _ Store = (*Pinecone)(nil)

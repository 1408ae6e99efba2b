package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LISTEN_ADDR", "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL",
		"OPENROUTER_CHAT_MODEL", "EMBEDDING_MODEL", "VECTOR_STORE",
		"UPLOAD_TIMEOUT_SECONDS", "EMBED_CONCURRENCY", "EMBEDDING_DIMENSION",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "mistralai/mistral-7b-instruct", cfg.ChatModel)
	assert.Equal(t, "mistralai/mistral-embed-2312", cfg.EmbeddingModel)
	assert.Equal(t, StorePinecone, cfg.VectorStore)
	assert.Equal(t, 300*time.Second, cfg.UploadTimeout)
	assert.Equal(t, 8, cfg.EmbedConcurrency)
	assert.Equal(t, 1024, cfg.VectorDimension)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("VECTOR_STORE", StorePgvector)
	t.Setenv("UPLOAD_TIMEOUT_SECONDS", "60")
	t.Setenv("EMBED_CONCURRENCY", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, StorePgvector, cfg.VectorStore)
	assert.Equal(t, 60*time.Second, cfg.UploadTimeout)
	// Unparseable numeric values fall back to the default.
	assert.Equal(t, 8, cfg.EmbedConcurrency)
}

func TestValidate(t *testing.T) {
	cfg := Config{APIKey: "key", VectorStore: StorePinecone}
	require.NoError(t, cfg.Validate())

	cfg.APIKey = ""
	assert.Error(t, cfg.Validate())

	cfg = Config{APIKey: "key", VectorStore: "chroma"}
	assert.Error(t, cfg.Validate())
}

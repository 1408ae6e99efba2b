// Package config loads service configuration from the environment once at
// process start. Every consumer receives an explicit Config instead of
// reading environment variables itself.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// StorePinecone selects the Pinecone REST vector store.
	StorePinecone = "pinecone"
	// StorePgvector selects the Postgres/pgvector vector store.
	StorePgvector = "pgvector"
)

type Config struct {
	ListenAddr string

	// OpenAI-compatible completion/embedding API (OpenRouter by default).
	APIKey         string
	APIBaseURL     string
	ChatModel      string
	EmbeddingModel string

	// Vector store selection and credentials.
	VectorStore     string
	PineconeAPIKey  string
	PineconeIndex   string
	PineconeHost    string
	PostgresDSN     string
	VectorDimension int

	UploadTimeout    time.Duration
	EmbedConcurrency int
}

func Load() Config {
	return Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		APIKey:           os.Getenv("OPENROUTER_API_KEY"),
		APIBaseURL:       getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		ChatModel:        getEnv("OPENROUTER_CHAT_MODEL", "mistralai/mistral-7b-instruct"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "mistralai/mistral-embed-2312"),
		VectorStore:      getEnv("VECTOR_STORE", StorePinecone),
		PineconeAPIKey:   os.Getenv("PINECONE_API_KEY"),
		PineconeIndex:    os.Getenv("PINECONE_INDEX_NAME"),
		PineconeHost:     os.Getenv("PINECONE_INDEX_HOST"),
		PostgresDSN:      getEnv("POSTGRES_DSN", "postgres://localhost:5432/ragchat?sslmode=disable"),
		VectorDimension:  getEnvInt("EMBEDDING_DIMENSION", 1024),
		UploadTimeout:    time.Duration(getEnvInt("UPLOAD_TIMEOUT_SECONDS", 300)) * time.Second,
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 8),
	}
}

// Validate checks the settings every operation depends on. Store-specific
// credentials are checked by the store constructors.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY not set")
	}
	switch c.VectorStore {
	case StorePinecone, StorePgvector:
	default:
		return fmt.Errorf("unknown vector store: %s", c.VectorStore)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"ragchat/api"
	"ragchat/chat"
	"ragchat/config"
	"ragchat/database"
	"ragchat/embeddings"
	"ragchat/ingestion"
	"ragchat/llm"
	"ragchat/vectorstore"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embedder, err := embeddings.NewOpenAIEmbedder(embeddings.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.APIBaseURL,
		Model:   cfg.EmbeddingModel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("embedder setup")
	}

	llmClient, err := llm.NewOpenAIClient(llm.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.APIBaseURL,
		Model:   cfg.ChatModel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("llm setup")
	}

	store, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("vector store setup")
	}
	defer cleanup()

	ingestSvc := ingestion.NewService(embedder, store, logger, cfg.EmbedConcurrency)
	chatSvc := chat.NewService(embedder, store, llmClient, logger)
	server := api.New(cfg, logger, ingestSvc, chatSvc, store)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Str("addr", cfg.ListenAddr).Str("store", cfg.VectorStore).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

// buildStore constructs the configured vector store and reports its size as a
// connectivity check. The returned cleanup closes any held connections.
func buildStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (vectorstore.Store, func(), error) {
	switch cfg.VectorStore {
	case config.StorePgvector:
		pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureVectorSchema(ctx, pool, cfg.VectorDimension); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store := vectorstore.NewPostgresStore(pool, logger)
		logStats(ctx, store, logger)
		return store, pool.Close, nil
	default:
		store, err := vectorstore.NewPinecone(vectorstore.PineconeConfig{
			APIKey: cfg.PineconeAPIKey,
			Index:  cfg.PineconeIndex,
			Host:   cfg.PineconeHost,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		logStats(ctx, store, logger)
		return store, func() {}, nil
	}
}

func logStats(ctx context.Context, store interface {
	Stats(ctx context.Context) (int, error)
}, logger zerolog.Logger) {
	statsCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	count, err := store.Stats(statsCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("vector store stats unavailable")
		return
	}
	logger.Info().Int("vectors", count).Msg("connected to vector store")
}

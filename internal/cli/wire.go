package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"regrag/config"
	"regrag/internal/adapter/chunker"
	"regrag/internal/adapter/embedding"
	"regrag/internal/adapter/fs"
	"regrag/internal/adapter/llm"
	"regrag/internal/adapter/retriever"
	"regrag/internal/adapter/store"
	"regrag/internal/port"
	"regrag/internal/usecase"
)

// newPipeline wires adapters and use cases from config. The returned pipeline
// owns the store connection; callers must Close it.
func newPipeline(ctx context.Context, cfg *config.Config) (*usecase.Pipeline, error) {
	st, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	model, err := llm.NewOpenAIClient(
		cfg.LLM.APIKeyEnv,
		cfg.LLM.Model,
		cfg.LLM.BaseURL,
		time.Duration(cfg.LLM.TimeoutSecs)*time.Second,
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("llm client: %w", err)
	}

	var summarizer port.LLM
	if cfg.Chunking.SummarizeTables {
		summarizer = model
	}
	chk := chunker.New(cfg.Chunking.MaxChunkSize, cfg.Chunking.MinChunkSize, cfg.Chunking.Overlap, summarizer)

	walker := fs.NewWalker(cfg.Documents.Includes, cfg.Documents.Excludes)
	ingestUC := usecase.NewIngestUseCase(walker, chk, embedder, st, cfg.Documents.Dir, cfg.Embedding.BatchSize, logger)

	expander := retriever.NewKeywordExpander(model, embedder, cfg.Retrieve.KeywordTopK, logger)
	reranker := retriever.NewReranker(cfg.Retrieve.KeywordBonus)
	answerUC := usecase.NewAnswerUseCase(embedder, st, model, expander, reranker, logger)

	return usecase.NewPipeline(ingestUC, answerUC, st, logger), nil
}

func newStore(ctx context.Context, cfg *config.Config) (port.VectorStore, error) {
	switch cfg.Store.Type {
	case "", "qdrant":
		return store.ConnectQdrant(ctx, store.QdrantConfig{
			Host:           cfg.Store.Qdrant.Host,
			Port:           cfg.Store.Qdrant.Port,
			APIKey:         envOrEmpty(cfg.Store.Qdrant.APIKeyEnv),
			UseTLS:         cfg.Store.Qdrant.UseTLS,
			Collection:     cfg.Store.Qdrant.Collection,
			Dimension:      cfg.Embedding.Dimension,
			ConnectRetries: cfg.Store.Qdrant.ConnectRetries,
			RetryDelay:     time.Duration(cfg.Store.Qdrant.RetryDelaySecs) * time.Second,
			UpsertBatch:    cfg.Store.Qdrant.UpsertBatch,
		}, logger)
	case "local":
		return store.OpenLocal(cfg.Store.Local.Path, cfg.Embedding.Dimension)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "", "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimension), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimension)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

package usecase

import (
	"context"

	"go.uber.org/zap"

	"regrag/internal/port"
)

// Pipeline coordinates ingestion and retrieval over one shared vector store
// connection. The process entry point constructs exactly one Pipeline and
// passes it by reference wherever needed; the connection is never reopened
// per request.
type Pipeline struct {
	ingest *IngestUseCase
	answer *AnswerUseCase
	store  port.VectorStore
	logger *zap.Logger
}

func NewPipeline(ingest *IngestUseCase, answer *AnswerUseCase, store port.VectorStore, logger *zap.Logger) *Pipeline {
	return &Pipeline{ingest: ingest, answer: answer, store: store, logger: logger}
}

// BuildIndex runs normalization, chunking, embedding and upsert over all
// documents at the configured input location.
func (p *Pipeline) BuildIndex(ctx context.Context, progress ProgressFunc) (*IngestResult, error) {
	return p.ingest.Run(ctx, progress)
}

// Answer runs the retrieval orchestrator for one query.
func (p *Pipeline) Answer(ctx context.Context, query string, opts AnswerOptions) (*AnswerResult, error) {
	return p.answer.Answer(ctx, query, opts)
}

// IsReady reports whether the collection exists and already holds points.
// A freshly created, empty collection is not ready: callers use this to
// decide whether to trigger BuildIndex before accepting queries.
func (p *Pipeline) IsReady(ctx context.Context) (bool, error) {
	existed, err := p.store.EnsureCollection(ctx)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	count, err := p.store.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Close releases the vector store connection.
func (p *Pipeline) Close() error {
	return p.store.Close()
}

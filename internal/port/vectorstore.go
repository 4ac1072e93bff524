package port

import (
	"context"

	"regrag/internal/domain"
)

// VectorStore owns the vector database connection and collection lifecycle.
// Implementations batch writes internally and must tolerate searching an
// empty collection by returning an empty result list.
type VectorStore interface {
	// EnsureCollection creates the configured collection if absent. Returns
	// true if the collection already existed, false if it was just created.
	// Idempotent: repeated calls never error on an existing collection.
	EnsureCollection(ctx context.Context) (existed bool, err error)

	// Upsert writes records in fixed-size batches, each batch atomic. Every
	// point carries a freshly generated identifier, so re-ingesting the same
	// document without clearing the collection produces duplicates.
	Upsert(ctx context.Context, records []domain.EmbeddingRecord) error

	// Search returns the top-k nearest points with payload and score.
	Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievedResult, error)

	// Count returns the number of stored points.
	Count(ctx context.Context) (int, error)

	Close() error
}

package port

import (
	"context"

	"regrag/internal/domain"
)

// Chunker splits one normalized document into retrievable chunks.
type Chunker interface {
	Chunk(ctx context.Context, doc domain.Document) ([]domain.Chunk, error)
}

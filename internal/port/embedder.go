package port

import "context"

// Embedder generates vector embeddings for text. The same embedder must be
// used at ingest and query time so both live in the same vector space.
type Embedder interface {
	// Embed generates embeddings for the given texts, one vector per input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

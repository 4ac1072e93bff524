package domain

// ChunkType distinguishes narrative prose from tabular data.
type ChunkType string

const (
	ChunkNarrative ChunkType = "narrative"
	ChunkTable     ChunkType = "table"
)

// Document is one source file after text extraction: a single text blob plus
// any raw tables the extractor pulled out separately. Immutable once loaded.
type Document struct {
	SourceFile string
	Content    string
	Tables     []string
}

// Chunk is the atomic retrievable unit produced by the chunker. Chunks are
// never mutated after creation, only consumed downstream.
type Chunk struct {
	Content       string
	Type          ChunkType
	SourceFile    string
	Section       string
	ContentLength int
}

// EmbeddingRecord is a chunk paired with its vector and a generated point ID.
// The vector dimension must match the collection's configured dimension; a
// record whose vector generation failed is dropped, never stored empty.
type EmbeddingRecord struct {
	ID     string
	Vector []float32
	Chunk  Chunk
}

// RetrievedResult is a stored payload plus its similarity score, as returned
// by a vector search. Results live only for the duration of one query.
type RetrievedResult struct {
	ID         string
	Score      float64
	Content    string
	Type       ChunkType
	SourceFile string
	Section    string
	Vector     []float32
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDatabaseUnavailable means the vector database could not be reached
	// after exhausting connection retries. Fatal for both ingestion and query.
	ErrDatabaseUnavailable = errors.New("vector database unavailable")

	// ErrNoRetrievableContext means a query produced zero results with usable
	// vectors. Surfaced to the caller instead of answering ungrounded.
	ErrNoRetrievableContext = errors.New("no retrievable context for query")
)

// NormalizationError marks a document whose raw text could not be normalized.
// Recoverable: the document is skipped and the run continues.
type NormalizationError struct {
	SourceFile string
	Err        error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: %v", e.SourceFile, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// ChunkingError marks a document with unexpected structure. Recoverable in
// the same way as NormalizationError.
type ChunkingError struct {
	SourceFile string
	Err        error
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunk %s: %v", e.SourceFile, e.Err)
}

func (e *ChunkingError) Unwrap() error { return e.Err }

// EmbeddingGenerationError fails a whole embedding batch; partial successes
// within the batch are discarded so the caller can retry the batch as a unit.
type EmbeddingGenerationError struct {
	Batch int
	Err   error
}

func (e *EmbeddingGenerationError) Error() string {
	return fmt.Sprintf("embedding batch %d: %v", e.Batch, e.Err)
}

func (e *EmbeddingGenerationError) Unwrap() error { return e.Err }

// InsertionError reports a failed upsert batch with enough context to retry
// only that batch.
type InsertionError struct {
	Batch int
	Err   error
}

func (e *InsertionError) Error() string {
	return fmt.Sprintf("upsert batch %d: %v", e.Batch, e.Err)
}

func (e *InsertionError) Unwrap() error { return e.Err }

// AnswerSynthesisError wraps a failed language-model call during the query
// path. Never retried, never converted into a fabricated answer.
type AnswerSynthesisError struct {
	Stage string
	Err   error
}

func (e *AnswerSynthesisError) Error() string {
	return fmt.Sprintf("answer synthesis (%s): %v", e.Stage, e.Err)
}

func (e *AnswerSynthesisError) Unwrap() error { return e.Err }

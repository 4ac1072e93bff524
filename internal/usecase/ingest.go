package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"regrag/internal/adapter/fs"
	"regrag/internal/adapter/normalizer"
	"regrag/internal/domain"
	"regrag/internal/port"
)

// IngestUseCase runs the ingestion path: discover extracted documents,
// normalize, chunk, embed in batches and upsert into the vector store.
type IngestUseCase struct {
	walker     *fs.Walker
	chunker    port.Chunker
	embedder   port.Embedder
	store      port.VectorStore
	inputDir   string
	embedBatch int
	logger     *zap.Logger
}

func NewIngestUseCase(
	walker *fs.Walker,
	chunker port.Chunker,
	embedder port.Embedder,
	store port.VectorStore,
	inputDir string,
	embedBatch int,
	logger *zap.Logger,
) *IngestUseCase {
	if embedBatch <= 0 {
		embedBatch = 1000
	}
	return &IngestUseCase{
		walker:     walker,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		inputDir:   inputDir,
		embedBatch: embedBatch,
		logger:     logger,
	}
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	DocumentsLoaded  int
	DocumentsSkipped int
	ChunksCreated    int
	RecordsUpserted  int
	Errors           []string
}

// ProgressFunc reports per-document ingestion progress.
type ProgressFunc func(processed, total int, current string)

// Run executes the full ingestion pipeline. Per-document failures are
// isolated: a document that fails normalization or chunking is skipped and
// recorded, never aborting the run. Embedding and upsert failures are
// batch-granular and fatal for the run, carrying the batch index for retry.
func (u *IngestUseCase) Run(ctx context.Context, progress ProgressFunc) (*IngestResult, error) {
	if _, err := u.store.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	paths, err := u.walker.Walk(u.inputDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", u.inputDir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents found in %s", u.inputDir)
	}

	result := &IngestResult{}
	var chunks []domain.Chunk

	for i, path := range paths {
		docChunks, err := u.processDocument(ctx, path)
		if err != nil {
			result.DocumentsSkipped++
			result.Errors = append(result.Errors, err.Error())
			u.logger.Warn("skipping document", zap.String("path", path), zap.Error(err))
		} else {
			result.DocumentsLoaded++
			chunks = append(chunks, docChunks...)
		}
		if progress != nil {
			progress(i+1, len(paths), path)
		}
	}
	result.ChunksCreated = len(chunks)

	if len(chunks) == 0 {
		return result, fmt.Errorf("no chunks produced from %d documents", len(paths))
	}

	upserted, err := u.embedAndStore(ctx, chunks)
	result.RecordsUpserted = upserted
	if err != nil {
		return result, err
	}

	u.logger.Info("ingestion complete",
		zap.Int("documents", result.DocumentsLoaded),
		zap.Int("skipped", result.DocumentsSkipped),
		zap.Int("chunks", result.ChunksCreated),
		zap.Int("records", result.RecordsUpserted))
	return result, nil
}

func (u *IngestUseCase) processDocument(ctx context.Context, path string) ([]domain.Chunk, error) {
	doc, err := fs.LoadDocument(path)
	if err != nil {
		return nil, &domain.NormalizationError{SourceFile: path, Err: err}
	}
	doc.Content = normalizer.Normalize(doc.Content)
	if doc.Content == "" && len(doc.Tables) == 0 {
		return nil, &domain.NormalizationError{SourceFile: doc.SourceFile, Err: fmt.Errorf("no text after normalization")}
	}
	chunks, err := u.chunker.Chunk(ctx, doc)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// embedAndStore embeds chunks in fixed-size batches and upserts the
// resulting records. Each batch either embeds completely or fails as a unit;
// partial successes inside a batch are never silently dropped.
func (u *IngestUseCase) embedAndStore(ctx context.Context, chunks []domain.Chunk) (int, error) {
	dimension := u.embedder.Dimension()
	upserted := 0

	for start := 0; start < len(chunks); start += u.embedBatch {
		end := start + u.embedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		batchIdx := start / u.embedBatch

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return upserted, &domain.EmbeddingGenerationError{Batch: batchIdx, Err: err}
		}
		if len(vectors) != len(batch) {
			return upserted, &domain.EmbeddingGenerationError{Batch: batchIdx, Err: fmt.Errorf(
				"embedder returned %d vectors for %d chunks", len(vectors), len(batch))}
		}

		records := make([]domain.EmbeddingRecord, len(batch))
		for i, vec := range vectors {
			if len(vec) != dimension {
				return upserted, &domain.EmbeddingGenerationError{Batch: batchIdx, Err: fmt.Errorf(
					"vector %d has dimension %d, expected %d", i, len(vec), dimension)}
			}
			records[i] = domain.EmbeddingRecord{
				ID:     uuid.NewString(),
				Vector: vec,
				Chunk:  batch[i],
			}
		}

		if err := u.store.Upsert(ctx, records); err != nil {
			return upserted, err
		}
		upserted += len(records)
	}
	return upserted, nil
}

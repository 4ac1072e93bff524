// Package store provides vector store clients: a Qdrant-backed client for
// deployments and a bbolt-backed local store for offline use and tests.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"regrag/internal/domain"
)

const (
	payloadContent       = "content"
	payloadType          = "type"
	payloadSourceFile    = "source_file"
	payloadSection       = "section"
	payloadContentLength = "content_length"
)

// QdrantConfig holds connection and collection settings for Qdrant.
type QdrantConfig struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	Collection     string
	Dimension      int
	ConnectRetries int
	RetryDelay     time.Duration
	UpsertBatch    int
}

func (c *QdrantConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "document_embeddings"
	}
	if c.Dimension <= 0 {
		c.Dimension = 384
	}
	if c.ConnectRetries <= 0 {
		c.ConnectRetries = 5
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.UpsertBatch <= 0 {
		c.UpsertBatch = 100
	}
}

// QdrantStore implements port.VectorStore against a Qdrant server over gRPC.
// It exclusively owns the connection; callers share one instance per process.
type QdrantStore struct {
	client *qdrant.Client
	cfg    QdrantConfig
	logger *zap.Logger
}

// ConnectQdrant opens a connection and verifies it with a round-trip call
// (listing collections), retrying up to cfg.ConnectRetries with a fixed delay
// between attempts. After exhausting retries it fails with
// domain.ErrDatabaseUnavailable.
func ConnectQdrant(ctx context.Context, cfg QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	cfg.applyDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.ConnectRetries; attempt++ {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host:   cfg.Host,
			Port:   cfg.Port,
			APIKey: cfg.APIKey,
			UseTLS: cfg.UseTLS,
		})
		if err == nil {
			// Socket establishment is not enough; prove the server answers.
			if _, err = client.ListCollections(ctx); err == nil {
				logger.Info("connected to qdrant",
					zap.String("host", cfg.Host),
					zap.Int("port", cfg.Port),
					zap.Int("attempt", attempt))
				return &QdrantStore{client: client, cfg: cfg, logger: logger}, nil
			}
			_ = client.Close()
		}
		lastErr = err
		logger.Warn("qdrant connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.ConnectRetries),
			zap.Error(err))
		if attempt < cfg.ConnectRetries {
			select {
			case <-time.After(cfg.RetryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrDatabaseUnavailable, ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrDatabaseUnavailable, lastErr)
}

// EnsureCollection creates the collection with the configured dimension and
// cosine distance if it does not exist. Returns true when the collection
// pre-existed. Losing a creation race to a concurrent caller is not an error.
func (s *QdrantStore) EnsureCollection(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return false, fmt.Errorf("collection check: %w", err)
	}
	if exists {
		return true, nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.cfg.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		if exists, checkErr := s.client.CollectionExists(ctx, s.cfg.Collection); checkErr == nil && exists {
			return true, nil
		}
		return false, fmt.Errorf("collection create: %w", err)
	}
	s.logger.Info("created collection",
		zap.String("collection", s.cfg.Collection),
		zap.Int("dimension", s.cfg.Dimension))
	return false, nil
}

// Upsert writes records in batches, each batch as an atomic unit. Records
// without an ID get a fresh UUID, so re-ingesting without clearing the
// collection duplicates points. A failed batch is reported with its index so
// the caller can retry just that batch.
func (s *QdrantStore) Upsert(ctx context.Context, records []domain.EmbeddingRecord) error {
	for batchIdx, batch := range splitBatches(records, s.cfg.UpsertBatch) {
		points := make([]*qdrant.PointStruct, 0, len(batch))
		for _, rec := range batch {
			if len(rec.Vector) != s.cfg.Dimension {
				return &domain.InsertionError{Batch: batchIdx, Err: fmt.Errorf(
					"vector dimension %d does not match collection dimension %d", len(rec.Vector), s.cfg.Dimension)}
			}
			id := rec.ID
			if id == "" {
				id = uuid.NewString()
			}
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(rec.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					payloadContent:       rec.Chunk.Content,
					payloadType:          string(rec.Chunk.Type),
					payloadSourceFile:    rec.Chunk.SourceFile,
					payloadSection:       rec.Chunk.Section,
					payloadContentLength: int64(rec.Chunk.ContentLength),
				}),
			})
		}

		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.cfg.Collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return &domain.InsertionError{Batch: batchIdx, Err: err}
		}
		s.logger.Debug("upserted batch",
			zap.Int("batch", batchIdx),
			zap.Int("points", len(points)))
	}
	return nil
}

// Search returns the top-k nearest points by cosine distance with payload,
// score and stored vector. An empty collection yields an empty result list.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievedResult, error) {
	if k <= 0 {
		k = 5
	}
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	results := make([]domain.RetrievedResult, 0, len(points))
	for _, p := range points {
		r := domain.RetrievedResult{
			ID:    p.GetId().GetUuid(),
			Score: float64(p.GetScore()),
		}
		payload := p.GetPayload()
		if v, ok := payload[payloadContent]; ok {
			r.Content = v.GetStringValue()
		}
		if v, ok := payload[payloadType]; ok {
			r.Type = domain.ChunkType(v.GetStringValue())
		}
		if v, ok := payload[payloadSourceFile]; ok {
			r.SourceFile = v.GetStringValue()
		}
		if v, ok := payload[payloadSection]; ok {
			r.Section = v.GetStringValue()
		}
		if vec := p.GetVectors().GetVector(); vec != nil {
			r.Vector = vec.GetData()
		}
		results = append(results, r)
	}
	return results, nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(n), nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

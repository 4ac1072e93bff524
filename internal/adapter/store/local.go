package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"regrag/internal/domain"
)

var bucketPoints = []byte("points")

// LocalStore implements port.VectorStore on bbolt with brute-force cosine
// search. Meant for offline runs and tests; Qdrant remains the deployment
// target.
type LocalStore struct {
	db        *bbolt.DB
	dimension int
	batchSize int

	mu     sync.RWMutex
	points map[string]storedPoint
}

type storedPoint struct {
	Vector        []float32        `json:"v"`
	Content       string           `json:"content"`
	Type          domain.ChunkType `json:"type"`
	SourceFile    string           `json:"source_file"`
	Section       string           `json:"section,omitempty"`
	ContentLength int              `json:"content_length"`
}

// OpenLocal opens (or creates) a bbolt-backed store at path.
func OpenLocal(path string, dimension int) (*LocalStore, error) {
	if dimension <= 0 {
		dimension = 384
	}
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDatabaseUnavailable, err)
	}
	s := &LocalStore{
		db:        db,
		dimension: dimension,
		batchSize: 100,
		points:    make(map[string]storedPoint),
	}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load local store: %w", err)
	}
	return s, nil
}

func (s *LocalStore) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketPoints)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var p storedPoint
			if err := json.Unmarshal(v, &p); err != nil {
				return nil // skip corrupted entries
			}
			s.points[string(k)] = p
			return nil
		})
	})
}

// EnsureCollection creates the points bucket if absent. Returns true when it
// already existed.
func (s *LocalStore) EnsureCollection(_ context.Context) (bool, error) {
	existed := true
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketPoints) == nil {
			existed = false
			_, err := tx.CreateBucket(bucketPoints)
			return err
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("collection create: %w", err)
	}
	return existed, nil
}

// Upsert writes records batch by batch, each batch in one transaction.
func (s *LocalStore) Upsert(_ context.Context, records []domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for batchIdx, batch := range splitBatches(records, s.batchSize) {
		staged := make(map[string]storedPoint, len(batch))
		err := s.db.Update(func(tx *bbolt.Tx) error {
			b, err := tx.CreateBucketIfNotExists(bucketPoints)
			if err != nil {
				return err
			}
			for _, rec := range batch {
				if len(rec.Vector) != s.dimension {
					return fmt.Errorf("vector dimension %d does not match store dimension %d", len(rec.Vector), s.dimension)
				}
				id := rec.ID
				if id == "" {
					id = uuid.NewString()
				}
				p := storedPoint{
					Vector:        rec.Vector,
					Content:       rec.Chunk.Content,
					Type:          rec.Chunk.Type,
					SourceFile:    rec.Chunk.SourceFile,
					Section:       rec.Chunk.Section,
					ContentLength: rec.Chunk.ContentLength,
				}
				data, err := json.Marshal(p)
				if err != nil {
					return err
				}
				if err := b.Put([]byte(id), data); err != nil {
					return err
				}
				staged[id] = p
			}
			return nil
		})
		if err != nil {
			return &domain.InsertionError{Batch: batchIdx, Err: err}
		}
		// Cache only after the transaction commits so a failed batch leaves
		// no half-written local state.
		for id, p := range staged {
			s.points[id] = p
		}
	}
	return nil
}

// Search returns the top-k points by cosine similarity. An empty store
// returns an empty list.
func (s *LocalStore) Search(_ context.Context, query []float32, k int) ([]domain.RetrievedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension %d does not match store dimension %d", len(query), s.dimension)
	}
	if k <= 0 {
		k = 5
	}

	scored := make([]domain.RetrievedResult, 0, len(s.points))
	for id, p := range s.points {
		scored = append(scored, domain.RetrievedResult{
			ID:         id,
			Score:      cosineSimilarity(query, p.Vector),
			Content:    p.Content,
			Type:       p.Type,
			SourceFile: p.SourceFile,
			Section:    p.Section,
			Vector:     p.Vector,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Count returns the number of stored points.
func (s *LocalStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points), nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

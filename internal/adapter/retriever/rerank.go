package retriever

import (
	"math"
	"sort"
	"strings"

	"regrag/internal/domain"
)

// Reranker recomputes result ordering with a composite score: the stored
// similarity score, plus cosine similarity between the query vector and the
// result's own stored vector, plus a fixed bonus per expanded keyword found
// in the result content.
type Reranker struct {
	keywordBonus float64
}

func NewReranker(keywordBonus float64) *Reranker {
	if keywordBonus <= 0 {
		keywordBonus = 0.1
	}
	return &Reranker{keywordBonus: keywordBonus}
}

// Rerank filters out results without a usable vector, scores the remainder
// and sorts descending by composite score. The sort is stable: equal scores
// keep their original retrieval order. Returns domain.ErrNoRetrievableContext
// when no result carries a usable vector.
func (r *Reranker) Rerank(results []domain.RetrievedResult, queryVector []float32, keywords []string) ([]domain.RetrievedResult, error) {
	usable := make([]domain.RetrievedResult, 0, len(results))
	for _, res := range results {
		if len(res.Vector) == 0 || hasNaN(res.Vector) {
			continue
		}
		usable = append(usable, res)
	}
	if len(usable) == 0 {
		return nil, domain.ErrNoRetrievableContext
	}

	for i := range usable {
		usable[i].Score += cosineSimilarity(queryVector, usable[i].Vector)
		usable[i].Score += r.keywordBonus * float64(keywordMatches(usable[i].Content, keywords))
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Score > usable[j].Score
	})
	return usable, nil
}

// keywordMatches counts expanded keywords appearing as case-insensitive
// substrings of the content.
func keywordMatches(content string, keywords []string) int {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}

func hasNaN(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) {
			return true
		}
	}
	return false
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

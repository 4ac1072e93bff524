// Package retriever implements query-time ranking: keyword expansion from a
// language-model call and composite-score reranking of vector search results.
package retriever

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"regrag/internal/port"
)

const keywordSystemPrompt = `Eres un asistente de búsqueda para reglamentación alimentaria. Dada una consulta, genera una lista corta de palabras clave relevantes, separadas por comas. Responde solo con las palabras clave, sin explicaciones ni numeración.`

// KeywordExpander extracts keywords from a query with a language-model call
// and expands each with its nearest neighbors among the extracted set by
// embedding similarity.
type KeywordExpander struct {
	llm      port.LLM
	embedder port.Embedder
	topK     int
	logger   *zap.Logger
}

func NewKeywordExpander(llm port.LLM, embedder port.Embedder, topK int, logger *zap.Logger) *KeywordExpander {
	if topK <= 0 {
		topK = 3
	}
	return &KeywordExpander{llm: llm, embedder: embedder, topK: topK, logger: logger}
}

// Expand returns the expanded keyword set for a query. Keyword extraction is
// an enrichment step: on model failure it degrades to no keywords rather
// than failing the query.
func (e *KeywordExpander) Expand(ctx context.Context, query string) []string {
	if e.llm == nil {
		return nil
	}
	response, err := e.llm.GenerateWithSystem(ctx, keywordSystemPrompt, "Consulta: "+query)
	if err != nil {
		e.logger.Warn("keyword extraction failed", zap.Error(err))
		return nil
	}

	keywords := parseKeywords(response)
	if len(keywords) < 2 || e.embedder == nil {
		return keywords
	}
	expanded, err := e.expandBySimilarity(ctx, keywords)
	if err != nil {
		e.logger.Warn("keyword expansion failed", zap.Error(err))
		return keywords
	}
	return expanded
}

// expandBySimilarity adds, for each keyword, its topK nearest neighbors
// among the extracted set (excluding itself). With everything drawn from one
// set this is effectively a de-duplicating union that preserves extraction
// order, mirroring how the keyword set is consumed downstream.
func (e *KeywordExpander) expandBySimilarity(ctx context.Context, keywords []string) ([]string, error) {
	vectors, err := e.embedder.Embed(ctx, keywords)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(keywords))
	expanded := make([]string, 0, len(keywords))
	add := func(kw string) {
		if !seen[kw] {
			seen[kw] = true
			expanded = append(expanded, kw)
		}
	}

	for i, kw := range keywords {
		add(kw)
		for _, j := range nearest(vectors, i, e.topK) {
			add(keywords[j])
		}
	}
	return expanded, nil
}

// nearest returns the indices of the k most similar vectors to vectors[i],
// excluding i itself.
func nearest(vectors [][]float32, i, k int) []int {
	type scored struct {
		idx   int
		score float64
	}
	candidates := make([]scored, 0, len(vectors)-1)
	for j := range vectors {
		if j == i {
			continue
		}
		candidates = append(candidates, scored{j, cosineSimilarity(vectors[i], vectors[j])})
	}
	// Insertion-select the top k; keyword sets are tiny.
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]int, 0, k)
	for n := 0; n < k; n++ {
		best := -1
		for c, cand := range candidates {
			if cand.idx < 0 {
				continue
			}
			if best == -1 || cand.score > candidates[best].score {
				best = c
			}
		}
		if best == -1 {
			break
		}
		out = append(out, candidates[best].idx)
		candidates[best].idx = -1
	}
	return out
}

func parseKeywords(response string) []string {
	fields := strings.FieldsFunc(response, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		kw := strings.ToLower(strings.TrimSpace(strings.Trim(f, ".-")))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

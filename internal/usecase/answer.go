package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"regrag/internal/adapter/retriever"
	"regrag/internal/domain"
	"regrag/internal/port"
)

// IrrelevantSentinel is the token the model returns instead of fabricating
// an answer when the supplied context holds nothing relevant.
const IrrelevantSentinel = "<irrelevant>"

const (
	synthesisSystemPrompt = `You are an expert in food regulations. You will be provided with a query and some context, both in Spanish. Answer the query in Spanish using only the supplied context. If the context contains no information relevant to the query, respond with the special token '<irrelevant>' and nothing else. Do not invent information.`

	chunkFilterSystemPrompt = `You are an expert in food regulations. You will be provided with a query and a chunk of text, both in Spanish. Extract the information from the chunk that directly addresses the query, quoting the original text where possible. If there is no relevant information, respond with the special token '<irrelevant>' and nothing else.`

	themeSystemPrompt = `You are an expert in food regulations. You will be provided with extracts retrieved from several regulatory documents, each tagged with its source. Identify the cross-document themes relevant to the query and attribute each theme to its sources. Answer in Spanish.`
)

// AnswerOptions tunes one query's retrieval behavior.
type AnswerOptions struct {
	TopK      int
	Summarize bool
}

// Source identifies where a piece of grounding context came from.
type Source struct {
	SourceFile string           `json:"source_file"`
	Section    string           `json:"section,omitempty"`
	Type       domain.ChunkType `json:"type"`
	Score      float64          `json:"score"`
}

// AnswerResult carries the synthesized answer and its provenance. When the
// summarized grounding path runs, SummarizedAnswer holds the second answer.
type AnswerResult struct {
	Answer           string   `json:"answer"`
	SummarizedAnswer string   `json:"summarized_answer,omitempty"`
	Themes           string   `json:"themes,omitempty"`
	Sources          []Source `json:"sources"`
}

// AnswerUseCase is the retrieval orchestrator: it embeds the query with the
// same embedder used at ingestion, searches the vector store, reranks,
// optionally summarizes, and synthesizes the final answer.
type AnswerUseCase struct {
	embedder port.Embedder
	store    port.VectorStore
	llm      port.LLM
	expander *retriever.KeywordExpander
	reranker *retriever.Reranker
	logger   *zap.Logger
}

func NewAnswerUseCase(
	embedder port.Embedder,
	store port.VectorStore,
	llm port.LLM,
	expander *retriever.KeywordExpander,
	reranker *retriever.Reranker,
	logger *zap.Logger,
) *AnswerUseCase {
	return &AnswerUseCase{
		embedder: embedder,
		store:    store,
		llm:      llm,
		expander: expander,
		reranker: reranker,
		logger:   logger,
	}
}

// Answer runs the query path as a strictly sequential pipeline. It either
// completes or fails atomically: no partial or ungrounded answer is ever
// returned.
func (u *AnswerUseCase) Answer(ctx context.Context, query string, opts AnswerOptions) (*AnswerResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: no vector returned")
	}
	queryVector := vectors[0]

	results, err := u.store.Search(ctx, queryVector, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(results) == 0 {
		return nil, domain.ErrNoRetrievableContext
	}

	keywords := u.expander.Expand(ctx, query)
	ranked, err := u.reranker.Rerank(results, queryVector, keywords)
	if err != nil {
		return nil, err
	}
	u.logger.Debug("reranked results",
		zap.Int("retrieved", len(results)),
		zap.Int("usable", len(ranked)),
		zap.Strings("keywords", keywords))

	result := &AnswerResult{Sources: sources(ranked)}

	rawContext := buildContext(ranked)
	result.Answer, err = u.synthesize(ctx, query, rawContext)
	if err != nil {
		return nil, &domain.AnswerSynthesisError{Stage: "synthesize", Err: err}
	}

	if opts.Summarize {
		themes, err := u.summarizeThemes(ctx, query, ranked)
		if err != nil {
			return nil, &domain.AnswerSynthesisError{Stage: "summarize", Err: err}
		}
		result.Themes = themes
		result.SummarizedAnswer, err = u.synthesize(ctx, query, themes)
		if err != nil {
			return nil, &domain.AnswerSynthesisError{Stage: "synthesize", Err: err}
		}
	}

	return result, nil
}

func (u *AnswerUseCase) synthesize(ctx context.Context, query, grounding string) (string, error) {
	userPrompt := fmt.Sprintf("Query: %s\n\nContext: %s", query, grounding)
	return u.llm.GenerateWithSystem(ctx, synthesisSystemPrompt, userPrompt)
}

// summarizeThemes filters each retrieved chunk down to query-relevant
// content, then asks the model for cross-document themes attributed to their
// sources. Chunks the model marks irrelevant are dropped from the summary.
func (u *AnswerUseCase) summarizeThemes(ctx context.Context, query string, ranked []domain.RetrievedResult) (string, error) {
	var extracts []string
	for _, r := range ranked {
		userPrompt := fmt.Sprintf("Query: %s\n\nChunk: %s", query, r.Content)
		reply, err := u.llm.GenerateWithSystem(ctx, chunkFilterSystemPrompt, userPrompt)
		if err != nil {
			return "", err
		}
		if isIrrelevant(reply) {
			continue
		}
		extracts = append(extracts, fmt.Sprintf("[source: %s] %s", r.SourceFile, reply))
	}
	if len(extracts) == 0 {
		return "", domain.ErrNoRetrievableContext
	}

	userPrompt := fmt.Sprintf("Query: %s\n\nExtracts:\n%s", query, strings.Join(extracts, "\n\n"))
	return u.llm.GenerateWithSystem(ctx, themeSystemPrompt, userPrompt)
}

// IsUngrounded reports whether an answer is the model's non-relevance
// sentinel rather than a grounded reply.
func IsUngrounded(answer string) bool {
	return isIrrelevant(answer)
}

func isIrrelevant(reply string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(reply), " ", ""))
	return normalized == IrrelevantSentinel
}

func buildContext(ranked []domain.RetrievedResult) string {
	var b strings.Builder
	for i, r := range ranked {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[source: %s", r.SourceFile)
		if r.Section != "" {
			fmt.Fprintf(&b, ", %s", r.Section)
		}
		b.WriteString("]\n")
		b.WriteString(r.Content)
	}
	return b.String()
}

func sources(ranked []domain.RetrievedResult) []Source {
	out := make([]Source, len(ranked))
	for i, r := range ranked {
		out[i] = Source{
			SourceFile: r.SourceFile,
			Section:    r.Section,
			Type:       r.Type,
			Score:      r.Score,
		}
	}
	return out
}

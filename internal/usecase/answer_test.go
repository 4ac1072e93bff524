package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"regrag/internal/adapter/retriever"
	"regrag/internal/domain"
)

type scriptedLLM struct {
	replies []string
	err     error
	calls   int
}

func (s *scriptedLLM) GenerateWithSystem(_ context.Context, _, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.replies) {
		return "", fmt.Errorf("unexpected call %d", s.calls)
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

func (s *scriptedLLM) ModelName() string { return "scripted" }

func newAnswer(store *fakeStore, llm *scriptedLLM) *AnswerUseCase {
	logger := zap.NewNop()
	return NewAnswerUseCase(
		&fakeEmbedder{dimension: 3},
		store,
		llm,
		retriever.NewKeywordExpander(nil, nil, 3, logger),
		retriever.NewReranker(0.1),
		logger,
	)
}

func twoResults() []domain.RetrievedResult {
	return []domain.RetrievedResult{
		{ID: "far", Content: "texto lejano", SourceFile: "b.pdf", Vector: []float32{0, 1, 0}},
		{ID: "near", Content: "texto cercano", SourceFile: "a.pdf", Section: "Capítulo 1", Vector: []float32{1, 0, 0}},
	}
}

func TestAnswerSynthesizesFromRetrievedContext(t *testing.T) {
	store := &fakeStore{results: twoResults()}
	llm := &scriptedLLM{replies: []string{"respuesta final"}}
	uc := newAnswer(store, llm)

	result, err := uc.Answer(context.Background(), "¿qué establece la norma?", AnswerOptions{TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer != "respuesta final" {
		t.Errorf("unexpected answer: %q", result.Answer)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(result.Sources))
	}
	// The query vector is (1,0,0); "near" must outrank "far" after reranking.
	if result.Sources[0].SourceFile != "a.pdf" {
		t.Errorf("sources not in reranked order: %+v", result.Sources)
	}
	if result.Sources[0].Section != "Capítulo 1" {
		t.Errorf("source section lost: %+v", result.Sources[0])
	}
}

func TestAnswerEmptyQuery(t *testing.T) {
	uc := newAnswer(&fakeStore{}, &scriptedLLM{})
	if _, err := uc.Answer(context.Background(), "   ", AnswerOptions{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestAnswerNoRetrievableContext(t *testing.T) {
	uc := newAnswer(&fakeStore{}, &scriptedLLM{})
	_, err := uc.Answer(context.Background(), "consulta", AnswerOptions{})
	if !errors.Is(err, domain.ErrNoRetrievableContext) {
		t.Fatalf("expected ErrNoRetrievableContext, got %v", err)
	}
}

func TestAnswerNoUsableVectors(t *testing.T) {
	store := &fakeStore{results: []domain.RetrievedResult{
		{ID: "a", Content: "sin vector", SourceFile: "a.pdf"},
	}}
	uc := newAnswer(store, &scriptedLLM{})

	_, err := uc.Answer(context.Background(), "consulta", AnswerOptions{})
	if !errors.Is(err, domain.ErrNoRetrievableContext) {
		t.Fatalf("expected ErrNoRetrievableContext, got %v", err)
	}
}

func TestAnswerSearchFailure(t *testing.T) {
	store := &fakeStore{searchErr: fmt.Errorf("connection reset")}
	uc := newAnswer(store, &scriptedLLM{})

	if _, err := uc.Answer(context.Background(), "consulta", AnswerOptions{}); err == nil {
		t.Fatal("expected search error to surface")
	}
}

func TestAnswerSynthesisFailure(t *testing.T) {
	store := &fakeStore{results: twoResults()}
	uc := newAnswer(store, &scriptedLLM{err: fmt.Errorf("model offline")})

	_, err := uc.Answer(context.Background(), "consulta", AnswerOptions{})
	var synthErr *domain.AnswerSynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected AnswerSynthesisError, got %v", err)
	}
	if synthErr.Stage != "synthesize" {
		t.Errorf("expected stage 'synthesize', got %q", synthErr.Stage)
	}
}

func TestAnswerSummarizedPath(t *testing.T) {
	store := &fakeStore{results: twoResults()}
	llm := &scriptedLLM{replies: []string{
		"respuesta directa",  // synthesis over raw context
		"extracto relevante", // chunk filter, first ranked chunk
		IrrelevantSentinel,   // chunk filter, second ranked chunk
		"temas comunes",      // theme summary
		"respuesta resumida", // synthesis over summarized context
	}}
	uc := newAnswer(store, llm)

	result, err := uc.Answer(context.Background(), "consulta", AnswerOptions{Summarize: true})
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer != "respuesta directa" {
		t.Errorf("unexpected raw answer: %q", result.Answer)
	}
	if result.Themes != "temas comunes" {
		t.Errorf("unexpected themes: %q", result.Themes)
	}
	if result.SummarizedAnswer != "respuesta resumida" {
		t.Errorf("unexpected summarized answer: %q", result.SummarizedAnswer)
	}
	if llm.calls != 5 {
		t.Errorf("expected 5 model calls, got %d", llm.calls)
	}
}

func TestAnswerSummarizeAllChunksIrrelevant(t *testing.T) {
	store := &fakeStore{results: twoResults()}
	llm := &scriptedLLM{replies: []string{
		"respuesta directa",
		IrrelevantSentinel,
		IrrelevantSentinel,
	}}
	uc := newAnswer(store, llm)

	_, err := uc.Answer(context.Background(), "consulta", AnswerOptions{Summarize: true})
	var synthErr *domain.AnswerSynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected AnswerSynthesisError, got %v", err)
	}
	if synthErr.Stage != "summarize" {
		t.Errorf("expected stage 'summarize', got %q", synthErr.Stage)
	}
	if !errors.Is(err, domain.ErrNoRetrievableContext) {
		t.Errorf("expected ErrNoRetrievableContext in chain, got %v", err)
	}
}

func TestIsUngrounded(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{IrrelevantSentinel, true},
		{"  <IRRELEVANT>  ", true},
		{"< irrelevant >", true},
		{"respuesta normal", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsUngrounded(tt.in); got != tt.want {
			t.Errorf("IsUngrounded(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

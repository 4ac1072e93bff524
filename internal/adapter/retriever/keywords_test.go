package retriever

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) GenerateWithSystem(_ context.Context, _, _ string) (string, error) {
	return f.reply, f.err
}

func (f *fakeLLM) ModelName() string { return "fake" }

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func (f *fakeEmbedder) ModelName() string { return "fake" }

func TestExpandParsesModelReply(t *testing.T) {
	e := NewKeywordExpander(&fakeLLM{reply: "Aditivos, Conservantes; colorantes\netiquetado"}, nil, 3, zap.NewNop())

	got := e.Expand(context.Background(), "¿qué aditivos permite?")
	want := []string{"aditivos", "conservantes", "colorantes", "etiquetado"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExpandDegradesOnModelFailure(t *testing.T) {
	e := NewKeywordExpander(&fakeLLM{err: fmt.Errorf("model offline")}, nil, 3, zap.NewNop())

	if got := e.Expand(context.Background(), "consulta"); got != nil {
		t.Errorf("expected nil keywords on failure, got %v", got)
	}
}

func TestExpandDegradesOnEmbedderFailure(t *testing.T) {
	llm := &fakeLLM{reply: "aditivos, conservantes"}
	embedder := &fakeEmbedder{err: fmt.Errorf("embedder offline")}
	e := NewKeywordExpander(llm, embedder, 3, zap.NewNop())

	got := e.Expand(context.Background(), "consulta")
	want := []string{"aditivos", "conservantes"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected unexpanded keywords, got %v", got)
	}
}

func TestExpandDeduplicates(t *testing.T) {
	llm := &fakeLLM{reply: "aditivos, conservantes, colorantes"}
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"aditivos":     {1, 0, 0},
		"conservantes": {0.9, 0.1, 0},
		"colorantes":   {0, 1, 0},
	}}
	e := NewKeywordExpander(llm, embedder, 1, zap.NewNop())

	got := e.Expand(context.Background(), "consulta")
	seen := make(map[string]int)
	for _, kw := range got {
		seen[kw]++
	}
	for kw, n := range seen {
		if n > 1 {
			t.Errorf("keyword %q appears %d times", kw, n)
		}
	}
	if len(got) != 3 {
		t.Errorf("expected all 3 keywords present, got %v", got)
	}
}

func TestNearest(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	got := nearest(vectors, 0, 2)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected [1 2], got %v", got)
	}
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"comma separated", "uno, dos, tres", []string{"uno", "dos", "tres"}},
		{"mixed separators", "uno; dos\ntres", []string{"uno", "dos", "tres"}},
		{"trims punctuation", "- uno., dos-", []string{"uno", "dos"}},
		{"lowercases", "ADITIVOS, Conservantes", []string{"aditivos", "conservantes"}},
		{"empty reply", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseKeywords(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

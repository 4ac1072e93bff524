package usecase

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"regrag/internal/domain"
)

func TestIsReady(t *testing.T) {
	tests := []struct {
		name    string
		existed bool
		upserts [][]domain.EmbeddingRecord
		want    bool
	}{
		{"fresh collection", false, nil, false},
		{"existing but empty", true, nil, false},
		{"existing with points", true, [][]domain.EmbeddingRecord{{{ID: "a"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{existed: tt.existed, upserts: tt.upserts}
			p := NewPipeline(nil, nil, store, zap.NewNop())

			ready, err := p.IsReady(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if ready != tt.want {
				t.Errorf("got ready=%v, want %v", ready, tt.want)
			}
		})
	}
}

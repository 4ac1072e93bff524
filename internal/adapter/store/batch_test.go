package store

import (
	"fmt"
	"testing"

	"regrag/internal/domain"
)

func makeRecords(n int) []domain.EmbeddingRecord {
	records := make([]domain.EmbeddingRecord, n)
	for i := range records {
		records[i] = domain.EmbeddingRecord{ID: fmt.Sprintf("rec-%d", i)}
	}
	return records
}

func TestSplitBatches(t *testing.T) {
	tests := []struct {
		name  string
		count int
		size  int
		want  []int
	}{
		{"exact split with remainder", 250, 100, []int{100, 100, 50}},
		{"single partial batch", 42, 100, []int{42}},
		{"exact multiple", 200, 100, []int{100, 100}},
		{"empty input", 0, 100, nil},
		{"zero size falls back to default", 150, 0, []int{100, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := splitBatches(makeRecords(tt.count), tt.size)
			if len(batches) != len(tt.want) {
				t.Fatalf("expected %d batches, got %d", len(tt.want), len(batches))
			}
			total := 0
			for i, b := range batches {
				if len(b) != tt.want[i] {
					t.Errorf("batch %d: expected %d records, got %d", i, tt.want[i], len(b))
				}
				total += len(b)
			}
			if total != tt.count {
				t.Errorf("batches cover %d records, expected %d", total, tt.count)
			}
		})
	}
}

func TestSplitBatchesPreservesOrder(t *testing.T) {
	batches := splitBatches(makeRecords(5), 2)
	idx := 0
	for _, b := range batches {
		for _, rec := range b {
			if rec.ID != fmt.Sprintf("rec-%d", idx) {
				t.Fatalf("record out of order: got %s at position %d", rec.ID, idx)
			}
			idx++
		}
	}
}

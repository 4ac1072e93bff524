package store

import "regrag/internal/domain"

// splitBatches partitions records into consecutive batches of at most size
// elements. 250 records with size 100 yields batches of 100, 100 and 50.
func splitBatches(records []domain.EmbeddingRecord, size int) [][]domain.EmbeddingRecord {
	if size <= 0 {
		size = 100
	}
	var batches [][]domain.EmbeddingRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}

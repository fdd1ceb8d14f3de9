package port

import "contextrag/internal/domain"

// VectorStore stores embedded text segments and searches them by vector
// similarity. The store is the sole persisted state of the pipeline; it is
// cleared and fully repopulated on each ingestion run.
type VectorStore interface {
	// Clear removes all stored entries.
	Clear() error

	// AddAll stores (embedding, segment) pairs. Both slices must have
	// equal length; embeddings[i] belongs to segments[i].
	AddAll(embeddings [][]float32, segments []domain.TextSegment) error

	// Query returns up to limit segments nearest to the embedding, best
	// similarity first. Ties keep insertion order.
	Query(embedding []float32, limit int) ([]Match, error)

	// Count returns the number of stored segments.
	Count() (int, error)
}

// Match is one nearest-neighbour search result.
type Match struct {
	Segment domain.TextSegment
	Score   float64
}

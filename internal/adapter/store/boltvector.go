package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"contextrag/internal/domain"
	"contextrag/internal/port"
)

var bucketSegments = []byte("segments")

// BoltVectorStore implements port.VectorStore using BoltDB for persistence.
// Uses brute-force cosine search for simplicity; entries are kept in an
// in-memory slice in insertion order so that equal scores rank stably.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int
	mu        sync.RWMutex
	entries   []vectorEntry
}

type vectorEntry struct {
	vector  []float32
	segment domain.TextSegment
}

type storedSegment struct {
	Text     string            `json:"t"`
	Vector   []float32         `json:"v"`
	Metadata map[string]string `json:"m,omitempty"`
}

// NewBoltVectorStore opens (or creates) a BoltDB-backed vector store at
// path for vectors of the given dimension.
func NewBoltVectorStore(path string, dimension int) (*BoltVectorStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSegments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create segments bucket: %w", err)
	}

	store := &BoltVectorStore{
		db:        db,
		dimension: dimension,
	}

	if err := store.loadEntries(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}

	return store, nil
}

// loadEntries loads all stored segments into memory. Keys are sequential
// big-endian integers, so bucket iteration restores insertion order.
func (s *BoltVectorStore) loadEntries() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSegments)
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var stored storedSegment
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.entries = append(s.entries, vectorEntry{
				vector: stored.Vector,
				segment: domain.TextSegment{
					Text:     stored.Text,
					Metadata: stored.Metadata,
				},
			})
			return nil
		})
	})
}

// Clear removes all stored entries.
func (s *BoltVectorStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketSegments); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketSegments)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}

	s.entries = nil
	return nil
}

// AddAll stores (embedding, segment) pairs in insertion order.
func (s *BoltVectorStore) AddAll(embeddings [][]float32, segments []domain.TextSegment) error {
	if len(embeddings) != len(segments) {
		return fmt.Errorf("embeddings and segments length mismatch: %d vs %d", len(embeddings), len(segments))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSegments)
		if b == nil {
			return fmt.Errorf("segments bucket not found")
		}

		for i, embedding := range embeddings {
			if len(embedding) != s.dimension {
				return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(embedding))
			}

			seq, err := b.NextSequence()
			if err != nil {
				return err
			}

			data, err := json.Marshal(storedSegment{
				Text:     segments[i].Text,
				Vector:   embedding,
				Metadata: segments[i].Metadata,
			})
			if err != nil {
				return err
			}

			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)
			if err := b.Put(key, data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	for i, embedding := range embeddings {
		s.entries = append(s.entries, vectorEntry{
			vector:  embedding,
			segment: segments[i],
		})
	}

	return nil
}

// Query returns up to limit segments nearest to the embedding, best
// similarity first. Ties keep insertion order.
func (s *BoltVectorStore) Query(embedding []float32, limit int) ([]port.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(embedding))
	}

	if len(s.entries) == 0 || limit <= 0 {
		return nil, nil
	}

	matches := make([]port.Match, 0, len(s.entries))
	for _, entry := range s.entries {
		score, err := domain.CosineSimilarity(embedding, entry.vector)
		if err != nil {
			return nil, fmt.Errorf("stored vector corrupt: %w", err)
		}
		matches = append(matches, port.Match{
			Segment: entry.segment,
			Score:   score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > len(matches) {
		limit = len(matches)
	}

	return matches[:limit], nil
}

// Count returns the number of stored segments.
func (s *BoltVectorStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Close closes the underlying database.
func (s *BoltVectorStore) Close() error {
	return s.db.Close()
}

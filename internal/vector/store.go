// Package vector provides an append-only store of fixed-dimension embeddings
// and brute-force distance computation over it.
package vector

import (
	"fmt"
	"sync"
)

// ErrDimensionMismatch is returned when a vector's length does not match the
// store's locked dimension.
var ErrDimensionMismatch = fmt.Errorf("vector dimension mismatch")

// Distance pairs a stored vector's ordinal with its squared L2 distance from a query.
type Distance struct {
	Ordinal   int
	SquaredL2 float64
}

// Store is an ordered, append-only collection of fixed-dimension float32
// vectors. The dimension is unset until the first Append, which locks it for
// the lifetime of the store. Append is the only mutator; a reader never
// observes a vector without it being reflected in Count.
type Store struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewStore creates an empty store with the dimension unset.
func NewStore() *Store {
	return &Store{vectors: make([][]float32, 0)}
}

// Append stores a copy of vec and returns its ordinal position. The first
// call locks the store's dimension to len(vec); later calls fail with
// ErrDimensionMismatch if the length differs. Empty vectors are rejected
// since the dimension cannot be locked to zero.
func (s *Store) Append(vec []float32) (int, error) {
	if len(vec) == 0 {
		return 0, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimensions == 0 {
		s.dimensions = len(vec)
	} else if len(vec) != s.dimensions {
		return 0, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), s.dimensions)
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	s.vectors = append(s.vectors, cp)
	return len(s.vectors) - 1, nil
}

// DistancesTo computes the squared L2 distance from query to every stored
// vector and returns one Distance per vector in ordinal order. The caller
// ranks and selects; this method does neither. Fails with
// ErrDimensionMismatch if the query length differs from the locked dimension.
func (s *Store) DistancesTo(query []float32) ([]Distance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimensions != 0 && len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), s.dimensions)
	}
	out := make([]Distance, len(s.vectors))
	for i, vec := range s.vectors {
		out[i] = Distance{Ordinal: i, SquaredL2: SquaredL2(query, vec)}
	}
	return out, nil
}

// At returns the stored vector at ordinal, or false if out of range.
// The returned slice must not be modified.
func (s *Store) At(ordinal int) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(s.vectors) {
		return nil, false
	}
	return s.vectors[ordinal], true
}

// Count returns the number of stored vectors.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Dimensions returns the locked dimension, or 0 when no vector has been added yet.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// Package index provides the semantic similarity index: embeddings plus media
// metadata, nearest-neighbor search over them, and load/save of both.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/internal/vector"
)

const (
	// DefaultMinSimilarity is the similarity floor below which a candidate is
	// treated as noise rather than a result.
	DefaultMinSimilarity = 0.3
	// DefaultOversample is the candidate-pool multiplier: the pool holds
	// oversample*k nearest vectors before the similarity floor is applied,
	// approximating "best k above threshold" without a second pass.
	DefaultOversample = 2
)

// Options tune search behavior. Zero values fall back to the defaults.
type Options struct {
	// MinSimilarity is the cosine-similarity floor for search results.
	MinSimilarity float64
	// Oversample is the candidate-pool multiplier.
	Oversample int
}

func (o Options) withDefaults() Options {
	if o.MinSimilarity == 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	if o.Oversample <= 0 {
		o.Oversample = DefaultOversample
	}
	return o
}

// SimilarityIndex composes the vector store and the metadata store and owns
// their alignment: one entry per vector at the same ordinal, dimension locked
// on the first add.
//
// Concurrency: single writer. Add and Save take the write lock; Search and
// Stats take the read lock, so reads never run concurrently with mutation.
type SimilarityIndex struct {
	vectors *vector.Store
	meta    *MetaStore
	opts    Options
	now     func() time.Time
	mu      sync.RWMutex
}

// New creates an empty index with the dimension unset.
func New(opts Options) *SimilarityIndex {
	return &SimilarityIndex{
		vectors: vector.NewStore(),
		meta:    NewMetaStore(),
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

// Add appends embedding and a metadata entry for filePath as one logical
// transaction and returns the new entry's ordinal. The first successful call
// locks the index dimension; later calls with a different length fail with
// ErrDimensionMismatch and change nothing. All-zero embeddings are accepted
// like any other vector: the producer may use them as a "could not embed"
// sentinel, but the index has no way to tell and does not special-case them.
func (idx *SimilarityIndex) Add(ctx context.Context, embedding []float32, filePath string, fileType models.FileType) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !fileType.Valid() {
		return 0, fmt.Errorf("invalid file type %q", fileType)
	}
	entry := models.MediaEntry{
		FilePath: filePath,
		FileType: fileType,
		AddedAt:  idx.now(),
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	// Vector append is validated and may fail; the metadata append after it
	// cannot, so a success here never leaves the stores misaligned.
	pos, err := idx.vectors.Append(embedding)
	if err != nil {
		return 0, err
	}
	ordinal := idx.meta.Append(entry)
	if ordinal != pos {
		// Stores out of step; nothing external can cause this.
		panic(fmt.Sprintf("index misaligned: vector at %d, entry at %d", pos, ordinal))
	}
	return ordinal, nil
}

// Search returns up to k entries ranked by cosine similarity to query,
// highest first. An index that never had a successful add returns empty
// results for any query; there is no dimension to validate against. A query
// whose length differs from the locked dimension fails with
// ErrDimensionMismatch and performs no partial work.
func (idx *SimilarityIndex) Search(ctx context.Context, query []float32, k int) ([]models.ScoredEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n := idx.vectors.Count()
	if n == 0 {
		return []models.ScoredEntry{}, nil
	}

	distances, err := idx.vectors.DistancesTo(query)
	if err != nil {
		return nil, err
	}

	// Nearest first; equal distances resolved by smaller ordinal so results
	// are deterministic (earliest inserted wins).
	sort.Slice(distances, func(i, j int) bool {
		if distances[i].SquaredL2 != distances[j].SquaredL2 {
			return distances[i].SquaredL2 < distances[j].SquaredL2
		}
		return distances[i].Ordinal < distances[j].Ordinal
	})
	poolSize := idx.opts.Oversample * k
	if poolSize > n {
		poolSize = n
	}
	pool := distances[:poolSize]

	results := make([]models.ScoredEntry, 0, len(pool))
	for _, d := range pool {
		similarity := vector.CosineFromSquaredL2(d.SquaredL2)
		if similarity < idx.opts.MinSimilarity {
			continue
		}
		entry, err := idx.meta.Get(d.Ordinal)
		if err != nil {
			return nil, err
		}
		results = append(results, models.ScoredEntry{
			MediaEntry:      entry,
			SquaredDistance: d.SquaredL2,
			Similarity:      similarity,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Ordinal < results[j].Ordinal
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Stats counts entries by file type. Computed from the metadata store at call
// time; nothing is cached across mutations.
func (idx *SimilarityIndex) Stats() models.IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	images, videos := idx.meta.CountByType()
	return models.IndexStats{
		Total:      idx.meta.Count(),
		Images:     images,
		Videos:     videos,
		Dimensions: idx.vectors.Dimensions(),
	}
}

// Count returns the number of indexed entries.
func (idx *SimilarityIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.meta.Count()
}

// Dimensions returns the locked embedding dimension, or 0 when unset.
func (idx *SimilarityIndex) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.vectors.Dimensions()
}

// Entry returns the metadata entry at ordinal.
func (idx *SimilarityIndex) Entry(ordinal int) (models.MediaEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.meta.Get(ordinal)
}

// Entries returns a restartable iterator over all entries in insertion order.
func (idx *SimilarityIndex) Entries() func(yield func(int, models.MediaEntry) bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.meta.All()
}

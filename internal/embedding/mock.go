package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/hyperjump/omoide/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests and development without
// a model. The same input always gets the same unit-normalized embedding, so
// a file embedded and then queried by its own path ranks itself first.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings
// of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockEmbedder{dimensions: dimensions}
}

func (e *MockEmbedder) embed(seed string) []float32 {
	h := HashString(seed)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*uint64(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb
}

// EmbedImage returns a deterministic embedding derived from the path.
func (e *MockEmbedder) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(path), nil
}

// EmbedVideo returns a deterministic embedding derived from the path.
func (e *MockEmbedder) EmbedVideo(ctx context.Context, path string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(path), nil
}

// EmbedText returns a deterministic embedding derived from the text.
func (e *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// HashString returns a stable 64-bit hash of s.
func HashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

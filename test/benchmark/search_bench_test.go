package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/index"
	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/internal/vector"
)

func BenchmarkIndexSearch(b *testing.B) {
	idx := index.New(index.Options{})
	embedder := embedding.NewMockEmbedder(512)
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		path := fmt.Sprintf("/photos/IMG_%04d.jpg", i)
		emb, _ := embedder.EmbedImage(ctx, path)
		if _, err := idx.Add(ctx, emb, path, models.FileTypeImage); err != nil {
			b.Fatal(err)
		}
	}
	query, _ := embedder.EmbedText(ctx, "dog playing in snow")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 10)
	}
}

func BenchmarkSquaredL2(b *testing.B) {
	embedder := embedding.NewMockEmbedder(512)
	ctx := context.Background()
	x, _ := embedder.EmbedText(ctx, "x")
	y, _ := embedder.EmbedText(ctx, "y")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = vector.SquaredL2(x, y)
	}
}

func BenchmarkMockEmbedderEmbedText(b *testing.B) {
	e := embedding.NewMockEmbedder(512)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.EmbedText(ctx, "benchmark query text for embedding")
	}
}

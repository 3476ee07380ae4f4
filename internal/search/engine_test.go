package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/omoide/internal/config"
	"github.com/hyperjump/omoide/internal/index"
	"github.com/hyperjump/omoide/internal/models"
)

// stubEmbedder returns canned vectors per query text.
type stubEmbedder struct {
	dims int
	vecs map[string][]float32
}

func (e *stubEmbedder) EmbedImage(_ context.Context, path string) ([]float32, error) {
	return e.vecs[path], nil
}

func (e *stubEmbedder) EmbedVideo(_ context.Context, path string) ([]float32, error) {
	return e.vecs[path], nil
}

func (e *stubEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if v, ok := e.vecs[text]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no embedding for %q", text)
}

func (e *stubEmbedder) Dimensions() int { return e.dims }
func (e *stubEmbedder) Close() error    { return nil }

func testConfig() *config.SearchConfig {
	return &config.SearchConfig{DefaultLimit: 10, MaxLimit: 100, MinSimilarity: 0.3, Oversample: 2}
}

// unit returns a 4-dim unit vector with a 1 at position i.
func unit(i int) []float32 {
	v := make([]float32, 4)
	v[i] = 1
	return v
}

func TestSearchRanksByDescription(t *testing.T) {
	dir := t.TempDir()
	beach := filepath.Join(dir, "beach.jpg")
	forest := filepath.Join(dir, "forest.jpg")
	for _, p := range []string{beach, forest} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	idx := index.New(index.Options{})
	ctx := context.Background()
	if _, err := idx.Add(ctx, unit(0), beach, models.FileTypeImage); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Add(ctx, unit(1), forest, models.FileTypeImage); err != nil {
		t.Fatal(err)
	}

	embedder := &stubEmbedder{dims: 4, vecs: map[string][]float32{
		"sunny beach": unit(0),
	}}
	engine := NewEngine(embedder, idx, testConfig())

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "sunny beach"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 result above the similarity floor, got %d", resp.Total)
	}
	if resp.Results[0].FilePath != beach {
		t.Errorf("expected %s first, got %s", beach, resp.Results[0].FilePath)
	}
	if resp.Results[0].Similarity < 0.999 {
		t.Errorf("expected similarity ~1.0, got %f", resp.Results[0].Similarity)
	}
	if resp.Query != "sunny beach" {
		t.Errorf("response should echo the query, got %q", resp.Query)
	}
	if resp.QueryTime < 0 {
		t.Errorf("negative query time: %d", resp.QueryTime)
	}
}

func TestSearchDropsDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.jpg")
	if err := os.WriteFile(kept, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	deleted := filepath.Join(dir, "deleted.jpg")

	idx := index.New(index.Options{})
	ctx := context.Background()
	if _, err := idx.Add(ctx, unit(0), deleted, models.FileTypeImage); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Add(ctx, unit(0), kept, models.FileTypeImage); err != nil {
		t.Fatal(err)
	}

	embedder := &stubEmbedder{dims: 4, vecs: map[string][]float32{"q": unit(0)}}
	engine := NewEngine(embedder, idx, testConfig())

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected the deleted file to be dropped, got %d results", resp.Total)
	}
	if resp.Results[0].FilePath != kept {
		t.Errorf("expected %s, got %s", kept, resp.Results[0].FilePath)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	engine := NewEngine(&stubEmbedder{dims: 4}, index.New(index.Options{}), testConfig())

	if _, err := engine.Search(context.Background(), &models.SearchQuery{}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	embedder := &stubEmbedder{dims: 4, vecs: map[string][]float32{"q": unit(0)}}
	engine := NewEngine(embedder, index.New(index.Options{}), testConfig())

	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 || len(resp.Results) != 0 {
		t.Errorf("expected empty response, got %+v", resp)
	}
	if resp.Results == nil {
		t.Error("results should be an empty slice, not nil")
	}
}

func TestSearchAppliesLimit(t *testing.T) {
	dir := t.TempDir()
	idx := index.New(index.Options{})
	ctx := context.Background()
	q := unit(0)
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, fmt.Sprintf("p%d.jpg", i))
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := idx.Add(ctx, q, p, models.FileTypeImage); err != nil {
			t.Fatal(err)
		}
	}

	embedder := &stubEmbedder{dims: 4, vecs: map[string][]float32{"q": q}}
	engine := NewEngine(embedder, idx, testConfig())

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "q", Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Errorf("expected 2 results, got %d", resp.Total)
	}
}

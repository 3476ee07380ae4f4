// Package integration exercises the full ingest, persist, and search flow.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/omoide/internal/catalog"
	"github.com/hyperjump/omoide/internal/config"
	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/index"
	"github.com/hyperjump/omoide/internal/ingest"
	"github.com/hyperjump/omoide/internal/models"
	"github.com/hyperjump/omoide/internal/search"
)

func TestIntegration_IngestAndSearch(t *testing.T) {
	dir := t.TempDir()
	mediaDir := filepath.Join(dir, "media")
	indexDir := filepath.Join(dir, "index")
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		t.Fatal(err)
	}

	photos := []string{"beach.jpg", "forest.jpg", "city.jpg"}
	for _, name := range photos {
		if err := os.WriteFile(filepath.Join(mediaDir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	embedder := embedding.NewMockEmbedder(64)
	defer embedder.Close()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	idx := index.New(index.Options{
		MinSimilarity: cfg.Search.MinSimilarity,
		Oversample:    cfg.Search.Oversample,
	})
	in := ingest.New(idx, embedder, []string{".jpg"}, []string{".mp4"}, ingest.WithCatalog(cat))
	ctx := context.Background()

	result, err := in.Run(ctx, []string{mediaDir}, indexDir)
	if err != nil {
		t.Fatal(err)
	}
	if result.Indexed != 3 {
		t.Fatalf("expected 3 indexed, got %+v", result)
	}

	// Restart: reload the persisted index and search against it.
	reloaded, err := index.Load(indexDir, index.Options{
		MinSimilarity: cfg.Search.MinSimilarity,
		Oversample:    cfg.Search.Oversample,
	})
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Count() != 3 {
		t.Fatalf("reloaded index has %d entries", reloaded.Count())
	}

	engine := search.NewEngine(embedder, reloaded, &cfg.Search)
	// The mock embedder gives a file and its own path text identical
	// embeddings, so querying a path ranks that file first.
	target := filepath.Join(mediaDir, "beach.jpg")
	resp, err := engine.Search(ctx, &models.SearchQuery{Query: target, Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total < 1 {
		t.Fatalf("expected at least 1 result, got %d", resp.Total)
	}
	if resp.Results[0].FilePath != target {
		t.Errorf("expected %s first, got %s", target, resp.Results[0].FilePath)
	}

	// A second ingest pass touches nothing.
	again, err := in.Run(ctx, []string{mediaDir}, indexDir)
	if err != nil {
		t.Fatal(err)
	}
	if again.Indexed != 0 || again.Skipped != 3 {
		t.Errorf("expected all skipped on second pass, got %+v", again)
	}
}

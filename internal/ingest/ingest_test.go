package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/omoide/internal/catalog"
	"github.com/hyperjump/omoide/internal/embedding"
	"github.com/hyperjump/omoide/internal/index"
)

var (
	imageExts = []string{".jpg", ".png"}
	videoExts = []string{".mp4"}
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunIndexesMediaFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"))
	writeFile(t, filepath.Join(dir, "sub", "b.mp4"))
	writeFile(t, filepath.Join(dir, "notes.txt"))

	idx := index.New(index.Options{})
	in := New(idx, embedding.NewMockEmbedder(64), imageExts, videoExts)

	result, err := in.Run(context.Background(), []string{dir}, "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Indexed != 2 || result.Failed != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if idx.Count() != 2 {
		t.Errorf("expected 2 index entries, got %d", idx.Count())
	}

	stats := idx.Stats()
	if stats.Images != 1 || stats.Videos != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRunSkipsUnchangedFiles(t *testing.T) {
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"))

	idx := index.New(index.Options{})
	in := New(idx, embedding.NewMockEmbedder(64), imageExts, videoExts, WithCatalog(cat))
	ctx := context.Background()

	first, err := in.Run(ctx, []string{dir}, "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Indexed != 1 || first.Skipped != 0 {
		t.Errorf("unexpected first result: %+v", first)
	}

	second, err := in.Run(ctx, []string{dir}, "")
	if err != nil {
		t.Fatal(err)
	}
	if second.Indexed != 0 || second.Skipped != 1 {
		t.Errorf("unexpected second result: %+v", second)
	}
	if idx.Count() != 1 {
		t.Errorf("index should not grow on unchanged files, count=%d", idx.Count())
	}

	run, err := cat.GetRun(ctx, second.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Skipped != 1 {
		t.Errorf("run counters not recorded: %+v", run)
	}
}

// mismatchEmbedder returns a wrong-size embedding for every path but the
// first one it sees.
type mismatchEmbedder struct {
	*embedding.MockEmbedder
	seen bool
}

func (e *mismatchEmbedder) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	if !e.seen {
		e.seen = true
		return e.MockEmbedder.EmbedImage(ctx, path)
	}
	return []float32{1, 0}, nil
}

func TestRunCountsDimensionMismatchAsFailed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"))
	writeFile(t, filepath.Join(dir, "b.jpg"))

	idx := index.New(index.Options{})
	in := New(idx, &mismatchEmbedder{MockEmbedder: embedding.NewMockEmbedder(64)}, imageExts, videoExts)

	result, err := in.Run(context.Background(), []string{dir}, "")
	if err != nil {
		t.Fatalf("a mismatched file should not end the pass: %v", err)
	}
	if result.Indexed != 1 || result.Failed != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRunSavesIndex(t *testing.T) {
	dir := t.TempDir()
	indexDir := filepath.Join(t.TempDir(), "index")
	writeFile(t, filepath.Join(dir, "a.jpg"))

	idx := index.New(index.Options{})
	in := New(idx, embedding.NewMockEmbedder(32), imageExts, videoExts)

	if _, err := in.Run(context.Background(), []string{dir}, indexDir); err != nil {
		t.Fatal(err)
	}

	loaded, err := index.Load(indexDir, index.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Count() != 1 || loaded.Dimensions() != 32 {
		t.Errorf("reloaded index: count=%d dims=%d", loaded.Count(), loaded.Dimensions())
	}
}

func TestRunMissingDirectory(t *testing.T) {
	idx := index.New(index.Options{})
	in := New(idx, embedding.NewMockEmbedder(32), imageExts, videoExts)

	if _, err := in.Run(context.Background(), []string{filepath.Join(t.TempDir(), "absent")}, ""); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestRunCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := index.New(index.Options{})
	in := New(idx, embedding.NewMockEmbedder(32), imageExts, videoExts)
	if _, err := in.Run(ctx, []string{dir}, ""); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestIngestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	writeFile(t, path)

	idx := index.New(index.Options{})
	in := New(idx, embedding.NewMockEmbedder(32), imageExts, videoExts)
	ctx := context.Background()

	result, err := in.IngestFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if result.Indexed != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	// Non-media paths are a no-op.
	other := filepath.Join(dir, "notes.txt")
	writeFile(t, other)
	result, err = in.IngestFile(ctx, other)
	if err != nil {
		t.Fatal(err)
	}
	if result.Indexed != 0 {
		t.Errorf("text file should not be indexed: %+v", result)
	}
}

package index

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/omoide/internal/models"
)

func TestCodec_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx := New(Options{})
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.5, 0.5, 0.5, 0.5},
	}
	paths := []string{"a.jpg", "b.mp4", "c.png"}
	types := []models.FileType{models.FileTypeImage, models.FileTypeVideo, models.FileTypeImage}
	for i := range vecs {
		if _, err := idx.Add(ctx, vecs[i], paths[i], types[i]); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Count() != 3 {
		t.Fatalf("count = %d, want 3", loaded.Count())
	}
	if loaded.Dimensions() != 4 {
		t.Errorf("dimensions = %d, want 4", loaded.Dimensions())
	}
	for i := range vecs {
		entry, err := loaded.Entry(i)
		if err != nil {
			t.Fatal(err)
		}
		if entry.Ordinal != i || entry.FilePath != paths[i] || entry.FileType != types[i] {
			t.Errorf("entry %d = %+v", i, entry)
		}
		orig, _ := idx.Entry(i)
		if !entry.AddedAt.Equal(orig.AddedAt) {
			t.Errorf("entry %d timestamp drifted: %v vs %v", i, entry.AddedAt, orig.AddedAt)
		}
		got, ok := loaded.vectors.At(i)
		if !ok {
			t.Fatalf("vector %d missing after load", i)
		}
		for j := range vecs[i] {
			if math.Abs(float64(got[j]-vecs[i][j])) > 1e-6 {
				t.Errorf("vector %d[%d] = %v, want %v", i, j, got[j], vecs[i][j])
			}
		}
	}
}

func TestCodec_LoadMissingIsFreshIndex(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "never-saved"), Options{})
	if err != nil {
		t.Fatalf("missing artifacts must not be an error: %v", err)
	}
	if idx.Count() != 0 || idx.Dimensions() != 0 {
		t.Errorf("expected fresh empty index, got count=%d dim=%d", idx.Count(), idx.Dimensions())
	}
}

func TestCodec_LoadOneArtifactMissing(t *testing.T) {
	dir := t.TempDir()
	idx := New(Options{})
	if _, err := idx.Add(context.Background(), []float32{1, 0}, "a.jpg", models.FileTypeImage); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, MetadataFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, Options{}); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestCodec_LoadCountMismatch(t *testing.T) {
	dir := t.TempDir()
	idx := New(Options{})
	ctx := context.Background()
	for _, p := range []string{"a.jpg", "b.jpg"} {
		if _, err := idx.Add(ctx, []float32{1, 0}, p, models.FileTypeImage); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}

	// Drop one entry from the metadata list so the counts disagree.
	one := `[{"ordinal":0,"file_path":"a.jpg","file_type":"image","added_at":"2024-01-01T00:00:00Z"}]`
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), []byte(one), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, Options{}); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestCodec_LoadTruncatedBlob(t *testing.T) {
	dir := t.TempDir()
	idx := New(Options{})
	if _, err := idx.Add(context.Background(), []float32{1, 0, 0, 0}, "a.jpg", models.FileTypeImage); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, VectorsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-4], 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, Options{}); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestCodec_LoadBadOrdinals(t *testing.T) {
	dir := t.TempDir()
	idx := New(Options{})
	if _, err := idx.Add(context.Background(), []float32{1, 0}, "a.jpg", models.FileTypeImage); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	bad := `[{"ordinal":7,"file_path":"a.jpg","file_type":"image","added_at":"2024-01-01T00:00:00Z"}]`
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, Options{}); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestCodec_SaveEmptyIndexRoundTrips(t *testing.T) {
	dir := t.TempDir()
	idx := New(Options{})
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Count() != 0 || loaded.Dimensions() != 0 {
		t.Errorf("expected empty index, got count=%d dim=%d", loaded.Count(), loaded.Dimensions())
	}
}

func TestCodec_SaveDoesNotMutate(t *testing.T) {
	dir := t.TempDir()
	idx := New(Options{})
	ctx := context.Background()
	if _, err := idx.Add(ctx, []float32{1, 0}, "a.jpg", models.FileTypeImage); err != nil {
		t.Fatal(err)
	}
	before := idx.Stats()
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
	if after := idx.Stats(); after != before {
		t.Errorf("save mutated index: %+v -> %+v", before, after)
	}
	// Saving twice over the same artifacts is fine.
	if err := idx.Save(dir); err != nil {
		t.Fatal(err)
	}
}

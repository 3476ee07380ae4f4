package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(128)
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "cat on a couch")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	b, err := e.EmbedText(ctx, "cat on a couch")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different embeddings at %d", i)
		}
	}

	other, _ := e.EmbedText(ctx, "dog on a beach")
	same := true
	for i := range a {
		if a[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}
}

func TestMockEmbedderUnitNorm(t *testing.T) {
	e := NewMockEmbedder(64)

	emb, err := e.EmbedImage(context.Background(), "/photos/IMG_0001.jpg")
	if err != nil {
		t.Fatalf("EmbedImage failed: %v", err)
	}
	if len(emb) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(emb))
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Errorf("embedding is not unit norm: %f", math.Sqrt(sum))
	}
}

func TestMockEmbedderDefaultDimensions(t *testing.T) {
	e := NewMockEmbedder(0)
	if e.Dimensions() != 512 {
		t.Errorf("expected default 512 dimensions, got %d", e.Dimensions())
	}
}

func TestMockEmbedderCancelledContext(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.EmbedVideo(ctx, "/videos/clip.mp4"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

package vector

import (
	"math"
	"testing"
)

func TestSquaredL2(t *testing.T) {
	if got := SquaredL2([]float32{1, 0}, []float32{0, 1}); got != 2 {
		t.Errorf("SquaredL2 orthogonal unit vectors = %v, want 2", got)
	}
	if got := SquaredL2([]float32{1, 2, 3}, []float32{1, 2, 3}); got != 0 {
		t.Errorf("SquaredL2 identical vectors = %v, want 0", got)
	}
	if got := SquaredL2([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("SquaredL2 mismatched lengths = %v, want 0", got)
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("InnerProduct parallel unit vectors = %v, want 1", got)
	}
	if got := InnerProduct([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("InnerProduct orthogonal vectors = %v, want 0", got)
	}
	if got := InnerProduct([]float32{1, 2}, []float32{3}); got != 0 {
		t.Errorf("InnerProduct mismatched lengths = %v, want 0", got)
	}

	// For unit vectors the inner product and the distance-derived cosine agree.
	a := []float32{0.6, 0.8}
	b := []float32{0.8, 0.6}
	fromDist := CosineFromSquaredL2(SquaredL2(a, b))
	if diff := math.Abs(InnerProduct(a, b) - fromDist); diff > 1e-6 {
		t.Errorf("inner product and distance-derived cosine differ by %v", diff)
	}
}

func TestL2Norm(t *testing.T) {
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm(3,4) = %v, want 5", got)
	}
	if got := L2Norm(nil); got != 0 {
		t.Errorf("L2Norm(nil) = %v, want 0", got)
	}
}

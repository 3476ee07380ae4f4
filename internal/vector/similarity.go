// Package vector provides similarity helpers for normalized vectors.
package vector

import "math"

// SquaredL2 returns the squared Euclidean distance between two vectors.
// Returns 0 if the lengths differ (callers validate dimensions first).
func SquaredL2(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return sum
}

// CosineFromSquaredL2 converts a squared L2 distance between two unit vectors
// to their cosine similarity: since ||a-b||² = 2 - 2·cos(a,b), the similarity
// is 1 - d²/2. The result is clamped to ≥0 to guard against floating-point
// drift when vectors are nearly identical or not perfectly normalized.
func CosineFromSquaredL2(squaredDistance float64) float64 {
	return math.Max(0, 1-squaredDistance/2)
}

// InnerProduct returns the inner product of two vectors (for normalized
// vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	return math.Sqrt(sum)
}

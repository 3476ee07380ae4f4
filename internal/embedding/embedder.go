// Package embedding produces vector embeddings for media files and text
// queries in a shared similarity space.
package embedding

import "context"

// Embedder produces unit-normalized embeddings for images, videos, and text
// queries, all in the same similarity space.
//
// Producer contract: when a file can be reached but not decoded, Embed*
// returns an all-zero vector of full dimension rather than an error. Callers
// cannot distinguish the sentinel from a legitimate vector and should not try.
type Embedder interface {
	EmbedImage(ctx context.Context, path string) ([]float32, error)
	EmbedVideo(ctx context.Context, path string) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

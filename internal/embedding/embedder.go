// Package embedding provides text embedding via a local ONNX model, with a
// deterministic fallback embedder and an LRU cache.
package embedding

import "context"

// Embedder produces fixed-length vector embeddings for text. Implementations
// are deterministic: the same text always yields the same vector. EmbedBatch
// preserves input order and is numerically equivalent to repeated Embed calls.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Package embed turns text into fixed-dimension float32 vectors for
// semantic retrieval. The production path is the OpenAI embeddings API
// wrapped with retries and an LRU cache; StaticEmbedder serves offline
// runs and tests.
package embed

import "context"

// Embedder generates embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector length.
	Dimensions() int

	// ModelName returns the model identifier, used in cache keys.
	ModelName() string

	Close() error
}

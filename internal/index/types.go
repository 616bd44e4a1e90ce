// Package index provides tenant-scoped vector and full-text retrieval
// over document chunks. Two adapter families exist: an embedded pair
// (HNSW graph + Bleve) for single-node deployments and a PostgreSQL
// pair (pgvector + tsvector) for shared deployments.
package index

import "context"

// Chunk is the indexed unit: a contiguous piece of a document.
// Metadata is an opaque string map carried through search unmodified.
type Chunk struct {
	ID         string
	DocumentID string
	TenantID   string
	Content    string
	Position   int
	Page       int
	Metadata   map[string]string
	Embedding  []float32
}

// VectorHit is a semantic search candidate with a cosine similarity in [0, 1].
type VectorHit struct {
	ChunkID    string
	DocumentID string
	Content    string
	Position   int
	Page       int
	Metadata   map[string]string
	Similarity float64
}

// TextHit is a full-text search candidate. Score is backend-specific
// (BM25 for Bleve, ts_rank_cd for Postgres) and only its ordering matters.
type TextHit struct {
	ChunkID    string
	DocumentID string
	Content    string
	Position   int
	Page       int
	Metadata   map[string]string
	Score      float64
}

// VectorIndex performs approximate nearest neighbor search over chunk embeddings.
type VectorIndex interface {
	// Index adds or replaces chunks. Chunks must carry embeddings.
	Index(ctx context.Context, chunks []*Chunk) error

	// Query returns up to limit chunks for the tenant ordered by
	// descending similarity. Hits below minSimilarity are dropped.
	Query(ctx context.Context, tenantID string, embedding []float32, limit int, minSimilarity float64) ([]*VectorHit, error)

	// Delete removes chunks by id within a tenant.
	Delete(ctx context.Context, tenantID string, chunkIDs []string) error

	Close() error
}

// TextIndex performs keyword search over chunk content.
type TextIndex interface {
	// Index adds or replaces chunks.
	Index(ctx context.Context, chunks []*Chunk) error

	// Query returns up to limit chunks for the tenant ordered by
	// descending lexical score.
	Query(ctx context.Context, tenantID, query string, limit int) ([]*TextHit, error)

	// Delete removes chunks by id within a tenant.
	Delete(ctx context.Context, tenantID string, chunkIDs []string) error

	Close() error
}

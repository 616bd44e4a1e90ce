package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHNSW(t *testing.T) *HNSWVectorIndex {
	t.Helper()
	idx, err := NewHNSWVectorIndex(HNSWConfig{Dimensions: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func chunkWithVector(id, tenant string, vec []float32) *Chunk {
	return &Chunk{
		ID:         id,
		DocumentID: "doc-" + id,
		TenantID:   tenant,
		Content:    "content " + id,
		Embedding:  vec,
	}
}

func TestHNSWVectorIndex_QueryOrdersBySimilarity(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	// Given three chunks at decreasing similarity to the query axis
	require.NoError(t, idx.Index(ctx, []*Chunk{
		chunkWithVector("exact", "acme", []float32{1, 0, 0, 0}),
		chunkWithVector("near", "acme", []float32{0.9, 0.1, 0, 0}),
		chunkWithVector("far", "acme", []float32{0, 1, 0, 0}),
	}))

	hits, err := idx.Query(ctx, "acme", []float32{1, 0, 0, 0}, 3, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "exact", hits[0].ChunkID)
	assert.Equal(t, "near", hits[1].ChunkID)
	assert.Equal(t, "far", hits[2].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-5)
	assert.Greater(t, hits[1].Similarity, hits[2].Similarity)
}

func TestHNSWVectorIndex_MinSimilarityFilters(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		chunkWithVector("exact", "acme", []float32{1, 0, 0, 0}),
		chunkWithVector("orthogonal", "acme", []float32{0, 1, 0, 0}),
	}))

	// Orthogonal vectors have similarity 0.5 on the [0, 1] scale
	hits, err := idx.Query(ctx, "acme", []float32{1, 0, 0, 0}, 10, 0.9)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "exact", hits[0].ChunkID)
}

func TestHNSWVectorIndex_TenantIsolation(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		chunkWithVector("acme-1", "acme", []float32{1, 0, 0, 0}),
		chunkWithVector("globex-1", "globex", []float32{1, 0, 0, 0}),
	}))

	hits, err := idx.Query(ctx, "acme", []float32{1, 0, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "acme-1", hits[0].ChunkID)
}

func TestHNSWVectorIndex_DeleteIsLazy(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		chunkWithVector("a", "acme", []float32{1, 0, 0, 0}),
		chunkWithVector("b", "acme", []float32{0, 1, 0, 0}),
	}))
	require.NoError(t, idx.Delete(ctx, "acme", []string{"a"}))

	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Query(ctx, "acme", []float32{1, 0, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ChunkID)
}

func TestHNSWVectorIndex_ReindexReplacesChunk(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		chunkWithVector("a", "acme", []float32{1, 0, 0, 0}),
	}))
	updated := chunkWithVector("a", "acme", []float32{0, 1, 0, 0})
	updated.Content = "updated content"
	require.NoError(t, idx.Index(ctx, []*Chunk{updated}))

	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Query(ctx, "acme", []float32{0, 1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "updated content", hits[0].Content)
}

func TestHNSWVectorIndex_DimensionMismatch(t *testing.T) {
	idx := newTestHNSW(t)
	ctx := context.Background()

	err := idx.Index(ctx, []*Chunk{chunkWithVector("a", "acme", []float32{1, 0})})
	var dimErr ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 4, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)

	_, err = idx.Query(ctx, "acme", []float32{1, 0}, 5, 0)
	require.ErrorAs(t, err, &dimErr)
}

func TestHNSWVectorIndex_EmptyIndexReturnsNothing(t *testing.T) {
	idx := newTestHNSW(t)

	hits, err := idx.Query(context.Background(), "acme", []float32{1, 0, 0, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestHNSWVectorIndex_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	idx, err := NewHNSWVectorIndex(HNSWConfig{Dimensions: 4})
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, []*Chunk{
		chunkWithVector("a", "acme", []float32{1, 0, 0, 0}),
		chunkWithVector("b", "acme", []float32{0, 1, 0, 0}),
	}))
	require.NoError(t, idx.Save(path))
	require.NoError(t, idx.Close())

	loaded, err := NewHNSWVectorIndex(HNSWConfig{Dimensions: 4})
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	hits, err := loaded.Query(ctx, "acme", []float32{1, 0, 0, 0}, 1, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ChunkID)
}

package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBleve(t *testing.T) *BleveTextIndex {
	t.Helper()
	idx, err := NewBleveTextIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func textChunk(id, tenant, content string) *Chunk {
	return &Chunk{
		ID:         id,
		DocumentID: "doc-" + id,
		TenantID:   tenant,
		Content:    content,
		Position:   1,
		Page:       2,
	}
}

func TestBleveTextIndex_QueryMatchesKeywords(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		textChunk("refund", "acme", "Our refund policy allows returns within thirty days"),
		textChunk("shipping", "acme", "Shipping takes five business days"),
	}))

	hits, err := idx.Query(ctx, "acme", "refund policy", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	assert.Equal(t, "refund", hits[0].ChunkID)
	assert.Equal(t, "doc-refund", hits[0].DocumentID)
	assert.Contains(t, hits[0].Content, "refund policy")
	assert.Equal(t, 1, hits[0].Position)
	assert.Equal(t, 2, hits[0].Page)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestBleveTextIndex_TenantIsolation(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		textChunk("a", "acme", "quarterly revenue report"),
		textChunk("g", "globex", "quarterly revenue report"),
	}))

	hits, err := idx.Query(ctx, "acme", "revenue", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ChunkID)
}

func TestBleveTextIndex_EmptyQueryReturnsNothing(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		textChunk("a", "acme", "some content"),
	}))

	hits, err := idx.Query(ctx, "acme", "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBleveTextIndex_Delete(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		textChunk("a", "acme", "delete me please"),
		textChunk("b", "acme", "keep me around"),
	}))
	require.NoError(t, idx.Delete(ctx, "acme", []string{"a"}))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := idx.Query(ctx, "acme", "delete", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBleveTextIndex_LimitCapsResults(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Chunk{
		textChunk("a", "acme", "invoice total due"),
		textChunk("b", "acme", "invoice number and date"),
		textChunk("c", "acme", "invoice payment terms"),
	}))

	hits, err := idx.Query(ctx, "acme", "invoice", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

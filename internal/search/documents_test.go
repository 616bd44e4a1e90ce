package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/docsift/docsift/internal/errors"
	"github.com/docsift/docsift/internal/index"
)

func chunkHitsForDocs(docIDs ...string) []*index.VectorHit {
	hits := make([]*index.VectorHit, len(docIDs))
	for i, docID := range docIDs {
		hits[i] = &index.VectorHit{
			ChunkID:    docID + "-chunk",
			DocumentID: docID,
			Similarity: 0.9 - float64(i)*0.05,
		}
	}
	return hits
}

func TestFindRelevantDocuments_FirstDistinctParentsInChunkOrder(t *testing.T) {
	// Given: ranked chunks whose parents repeat
	fx := newEngineFixture(t)
	fx.vector.hits = chunkHitsForDocs("A", "B", "A", "C", "A", "D")

	// When: three documents are wanted
	docIDs, err := fx.engine.FindRelevantDocuments(context.Background(), "query", "tenant-a", 3)

	// Then: each parent appears once, ordered by its best chunk
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, docIDs)
}

func TestFindRelevantDocuments_OverfetchesChunks(t *testing.T) {
	// Given
	fx := newEngineFixture(t)
	fx.vector.hits = chunkHitsForDocs("A")

	// When: desired count 3 with the default overfetch factor 5
	_, err := fx.engine.FindRelevantDocuments(context.Background(), "query", "tenant-a", 3)

	// Then: the chunk query asked for 15 candidates
	require.NoError(t, err)
	assert.Equal(t, 15, fx.vector.lastLimit)
}

func TestFindRelevantDocuments_FewerParentsThanRequested(t *testing.T) {
	// Given: only two distinct parents exist
	fx := newEngineFixture(t)
	fx.vector.hits = chunkHitsForDocs("A", "B", "A", "B")

	// When
	docIDs, err := fx.engine.FindRelevantDocuments(context.Background(), "query", "tenant-a", 5)

	// Then
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, docIDs)
}

func TestFindRelevantDocuments_EmptyQueryOrCountShortCircuits(t *testing.T) {
	// Given
	fx := newEngineFixture(t)

	// When / Then: no backend work for degenerate inputs
	docIDs, err := fx.engine.FindRelevantDocuments(context.Background(), "  ", "tenant-a", 3)
	require.NoError(t, err)
	assert.Empty(t, docIDs)

	docIDs, err = fx.engine.FindRelevantDocuments(context.Background(), "query", "tenant-a", 0)
	require.NoError(t, err)
	assert.Empty(t, docIDs)

	assert.Equal(t, 0, fx.embedder.embedCalls)
	assert.Equal(t, 0, fx.vector.queryCalls)
}

func TestFindRelevantDocuments_EmbeddingFailurePropagates(t *testing.T) {
	// Given
	fx := newEngineFixture(t)
	fx.embedder.err = errors.New("api unreachable")

	// When
	_, err := fx.engine.FindRelevantDocuments(context.Background(), "query", "tenant-a", 3)

	// Then
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeEmbeddingFailed, derrors.GetCode(err))
}

package search

import (
	"context"
	"strings"

	derrors "github.com/docsift/docsift/internal/errors"
)

// FindRelevantDocuments returns up to desiredCount distinct parent
// document ids for the query, for consumers that want whole documents
// rather than chunks.
//
// Chunk-level vector matches are over-fetched at desiredCount times the
// overfetch factor, then the ranked chunk list is walked in order and
// each parent id recorded the first time it appears. A document's
// position therefore reflects its best chunk's rank, not an aggregate
// over all its chunks.
func (e *Engine) FindRelevantDocuments(ctx context.Context, query, tenantID string, desiredCount int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" || desiredCount <= 0 {
		return []string{}, nil
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeEmbeddingFailed, "compute query embedding", err)
	}

	limit := desiredCount * e.config.DocumentOverfetchFactor
	hits, err := e.vector.Query(ctx, tenantID, embedding, limit, e.config.VectorThreshold)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeVectorQueryFailed, "query vector index", err)
	}

	seen := make(map[string]struct{}, desiredCount)
	docIDs := make([]string, 0, desiredCount)
	for _, hit := range hits {
		if _, ok := seen[hit.DocumentID]; ok {
			continue
		}
		seen[hit.DocumentID] = struct{}{}
		docIDs = append(docIDs, hit.DocumentID)
		if len(docIDs) >= desiredCount {
			break
		}
	}
	return docIDs, nil
}

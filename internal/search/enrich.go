package search

import (
	"context"
	"log/slog"
)

// enrichResults joins the filtered candidates with parent-document
// display names in one batch lookup over the distinct document ids.
// A missing parent (deleted concurrently) leaves SourceName empty;
// enrichment never changes the result count or order.
func (e *Engine) enrichResults(ctx context.Context, tenantID string, ranked []rankedResult) ([]*EnrichedResult, error) {
	if len(ranked) == 0 {
		return []*EnrichedResult{}, nil
	}

	seen := make(map[string]struct{}, len(ranked))
	docIDs := make([]string, 0, len(ranked))
	for _, r := range ranked {
		id := r.fused.DocumentID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		docIDs = append(docIDs, id)
	}

	docs, err := e.store.GetDocuments(ctx, tenantID, docIDs)
	if err != nil {
		return nil, err
	}
	nameByID := make(map[string]string, len(docs))
	for _, d := range docs {
		nameByID[d.ID] = d.Name
	}

	results := make([]*EnrichedResult, len(ranked))
	for i, r := range ranked {
		name, ok := nameByID[r.fused.DocumentID]
		if !ok {
			slog.Debug("parent_document_missing",
				slog.String("document_id", r.fused.DocumentID),
				slog.String("chunk_id", r.fused.ChunkID))
		}
		results[i] = &EnrichedResult{
			ChunkID:        r.fused.ChunkID,
			DocumentID:     r.fused.DocumentID,
			Content:        r.fused.Content,
			Position:       r.fused.Position,
			Page:           r.fused.Page,
			Metadata:       r.fused.Metadata,
			SourceName:     name,
			Similarity:     r.fused.Similarity,
			RelevanceScore: r.relevance,
			Scale:          r.scale,
			Rank:           i + 1,
		}
	}
	return results, nil
}

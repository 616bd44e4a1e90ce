package search

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	derrors "github.com/docsift/docsift/internal/errors"
	"github.com/docsift/docsift/internal/index"
)

// retrieveCandidates issues the embedding computation and both index
// queries. The text query starts immediately; the vector query waits
// only on its own embedding.
//
// The failure policy is asymmetric. Full-text is a precision booster:
// when it fails the dispatcher logs and substitutes an empty list.
// Semantic retrieval is load-bearing: an embedding or vector failure
// propagates because there is no safe degraded mode.
func (e *Engine) retrieveCandidates(ctx context.Context, query, tenantID string, limit int) ([]*index.VectorHit, []*index.TextHit, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		vectorHits []*index.VectorHit
		textHits   []*index.TextHit
		textErr    error
	)

	g.Go(func() error {
		hits, err := e.text.Query(gctx, tenantID, query, limit)
		if err != nil {
			textErr = err
			return nil // degradable, never fails the group
		}
		if e.config.TextThreshold > 0 {
			filtered := hits[:0]
			for _, h := range hits {
				if h.Score >= e.config.TextThreshold {
					filtered = append(filtered, h)
				}
			}
			hits = filtered
		}
		textHits = hits
		return nil
	})

	g.Go(func() error {
		embedding, err := e.embedder.Embed(gctx, query)
		if err != nil {
			return derrors.New(derrors.ErrCodeEmbeddingFailed, "compute query embedding", err)
		}

		hits, err := e.vector.Query(gctx, tenantID, embedding, limit, e.config.VectorThreshold)
		if err != nil {
			return derrors.New(derrors.ErrCodeVectorQueryFailed, "query vector index", err)
		}
		vectorHits = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if textErr != nil {
		slog.Warn("full-text query failed, continuing vector-only",
			slog.String("tenant_id", tenantID),
			slog.String("error", textErr.Error()))
		textHits = []*index.TextHit{}
		if e.metrics != nil {
			e.metrics.RecordDegraded()
		}
	}

	return vectorHits, textHits, nil
}

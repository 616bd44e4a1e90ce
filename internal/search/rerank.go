package search

import (
	"context"
	"log/slog"
	"sort"
)

// rankCandidates applies the adaptive reranking stage to the fused
// list and returns scored candidates tagged with the scale their
// relevance score lives on.
//
// The rerank pool is the top RerankPoolSize fused candidates. Let
// topSimilarity be the vector similarity of the pool's first entry.
// The cross-encoder runs only when
//
//	topSimilarity < SkipSimilarityCeiling OR poolSize > SkipPoolLimit
//
// A single highly confident top hit with a small pool skips the call
// entirely. Four outcomes are possible, each on its own score scale:
//
//   - skipped on confidence: relevance = cosine similarity
//   - invoked, succeeded: relevance = cross-encoder score
//   - invoked, failed: relevance = synthetic 1/(index+1), pool order kept
//   - reranking off or unavailable: relevance = raw RRF score
func (e *Engine) rankCandidates(ctx context.Context, query string, fused []*FusedResult, opts Options) []rankedResult {
	pool := fused
	if len(pool) > opts.RerankPoolSize {
		pool = pool[:opts.RerankPoolSize]
	}
	if len(pool) == 0 {
		return []rankedResult{}
	}

	topSimilarity := pool[0].Similarity
	shouldRerank := topSimilarity < e.config.SkipSimilarityCeiling || len(pool) > e.config.SkipPoolLimit

	if !shouldRerank {
		// High-confidence skip. The cosine scale is meaningful to the
		// caller, unlike the fusion scale, so it becomes the relevance.
		slog.Debug("rerank_skipped_high_confidence",
			slog.Float64("top_similarity", topSimilarity),
			slog.Int("pool_size", len(pool)))
		ranked := make([]rankedResult, len(pool))
		for i, f := range pool {
			ranked[i] = rankedResult{fused: f, relevance: f.Similarity, scale: ScaleCosine}
		}
		return ranked
	}

	if !opts.UseReranking || e.reranker == nil || !e.reranker.Available(ctx) {
		// Reranking is off for this call or the service is down; the
		// fused order stands on its raw RRF scores.
		slog.Debug("rerank_unavailable_using_fusion_order",
			slog.Bool("requested", opts.UseReranking),
			slog.Int("pool_size", len(pool)))
		ranked := make([]rankedResult, len(pool))
		for i, f := range pool {
			ranked[i] = rankedResult{fused: f, relevance: f.RRFScore, scale: ScaleRRF}
		}
		return ranked
	}

	documents := make([]string, len(pool))
	for i, f := range pool {
		documents[i] = f.Content
	}

	results, err := e.reranker.Rerank(ctx, query, documents, len(pool))
	if err != nil {
		// Degrade to the pre-rerank pool order with synthetic ordinal
		// scores so callers still get a usable ranking.
		slog.Warn("rerank_failed_using_pool_order",
			slog.String("error", err.Error()),
			slog.Int("pool_size", len(pool)))
		if e.metrics != nil {
			e.metrics.RecordDegraded()
		}
		ranked := make([]rankedResult, len(pool))
		for i, f := range pool {
			ranked[i] = rankedResult{fused: f, relevance: 1.0 / float64(i+1), scale: ScaleOrdinal}
		}
		return ranked
	}

	if e.metrics != nil {
		e.metrics.RecordReranked()
	}

	// The service scores by position in the documents slice, not by id;
	// re-associate through the pool's original ordering.
	ranked := make([]rankedResult, 0, len(results))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(pool) {
			slog.Warn("rerank_index_out_of_range",
				slog.Int("index", r.Index),
				slog.Int("pool_size", len(pool)))
			continue
		}
		ranked = append(ranked, rankedResult{
			fused:     pool[r.Index],
			relevance: r.Score,
			scale:     ScaleReranker,
		})
	}

	// The response order is not trusted; the final ranking is by score.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].relevance > ranked[j].relevance
	})
	return ranked
}

// filterRanked applies the caller threshold with scale-aware rules and
// caps at topK. A 0-1 caller threshold is applied directly to cosine
// and cross-encoder scores. RRF scores are numerically tiny, so the
// effective floor there is capped at RRFFilterCeiling. Ordinal scores
// are not comparable to any caller threshold; the fallback path keeps
// the whole pool and only truncates.
func (e *Engine) filterRanked(ranked []rankedResult, opts Options) []rankedResult {
	filtered := make([]rankedResult, 0, len(ranked))
	for _, r := range ranked {
		threshold := opts.MinRelevanceScore
		switch r.scale {
		case ScaleRRF:
			if ceiling := e.config.RRFFilterCeiling; threshold > ceiling {
				threshold = ceiling
			}
		case ScaleOrdinal:
			threshold = 0
		}
		if r.relevance < threshold {
			continue
		}
		filtered = append(filtered, r)
	}

	if len(filtered) > opts.TopK {
		filtered = filtered[:opts.TopK]
	}
	return filtered
}

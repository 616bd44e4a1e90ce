// Package rerank scores candidate passages against a query with a
// cross-encoder service. The engine treats reranking as best effort:
// when the service is down or the breaker is open, Available reports
// false and the engine falls back to fusion ordering.
package rerank

import "context"

// Result is a single reranked document. Index refers back to the
// position in the input documents slice.
type Result struct {
	Index    int
	Score    float64
	Document string
}

// Reranker reorders documents by cross-encoder relevance to a query.
type Reranker interface {
	// Rerank scores documents against the query and returns up to topK
	// results ordered by descending score in [0, 1].
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error)

	// Available reports whether the reranker can serve requests.
	Available(ctx context.Context) bool

	Close() error
}

// Disabled is a Reranker that never runs. Used when reranking is
// turned off in config.
type Disabled struct{}

var _ Reranker = (*Disabled)(nil)

func (Disabled) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error) {
	return []Result{}, nil
}

func (Disabled) Available(ctx context.Context) bool { return false }

func (Disabled) Close() error { return nil }

package rerank

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerReranker wraps a Reranker with a circuit breaker. After
// repeated failures the breaker opens, Available reports false, and the
// engine stops sending rerank traffic until the cooldown expires.
type BreakerReranker struct {
	inner Reranker
	cb    *gobreaker.CircuitBreaker
}

var _ Reranker = (*BreakerReranker)(nil)

// NewBreakerReranker wraps inner with a circuit breaker tuned for a
// local cross-encoder service: trip after 3+ requests with a majority
// failing, retry after 30 seconds.
func NewBreakerReranker(inner Reranker) *BreakerReranker {
	st := gobreaker.Settings{
		Name:        "reranker",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("reranker_breaker_state_changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	return &BreakerReranker{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(st),
	}
}

// Rerank executes the inner call through the breaker.
func (b *BreakerReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Result, error) {
	resp, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Rerank(ctx, query, documents, topK)
	})
	if err != nil {
		return nil, err
	}
	return resp.([]Result), nil
}

// Available reports false while the breaker is open, without probing
// the service.
func (b *BreakerReranker) Available(ctx context.Context) bool {
	if b.cb.State() == gobreaker.StateOpen {
		return false
	}
	return b.inner.Available(ctx)
}

// Close closes the inner reranker.
func (b *BreakerReranker) Close() error {
	return b.inner.Close()
}

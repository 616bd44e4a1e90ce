package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docsift/docsift/internal/embed"
	"github.com/docsift/docsift/internal/index"
	"github.com/docsift/docsift/internal/rerank"
	"github.com/docsift/docsift/internal/store"
	"github.com/docsift/docsift/internal/telemetry"
)

// Engine is the hybrid retrieval pipeline. It is stateless per call;
// all dependencies are injected at construction so tests can
// substitute fakes without touching process-wide state.
type Engine struct {
	vector   index.VectorIndex
	text     index.TextIndex
	embedder embed.Embedder
	store    store.DocumentStore
	reranker rerank.Reranker
	config   EngineConfig
	fusion   *rrfFusion
	metrics  *telemetry.QueryMetrics
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithReranker sets the cross-encoder reranker. Without it the engine
// always returns fusion-ordered results.
func WithReranker(r rerank.Reranker) EngineOption {
	return func(e *Engine) {
		e.reranker = r
	}
}

// WithMetrics sets an optional query telemetry collector.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates the engine. All four positional dependencies are
// required.
func NewEngine(
	vector index.VectorIndex,
	text index.TextIndex,
	embedder embed.Embedder,
	docs store.DocumentStore,
	config EngineConfig,
	opts ...EngineOption,
) (*Engine, error) {
	if vector == nil {
		return nil, fmt.Errorf("%w: vector index is required", ErrNilDependency)
	}
	if text == nil {
		return nil, fmt.Errorf("%w: text index is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if docs == nil {
		return nil, fmt.Errorf("%w: document store is required", ErrNilDependency)
	}

	if config.RRFConstant <= 0 {
		config.RRFConstant = DefaultRRFConstant
	}
	defaults := DefaultEngineConfig()
	if config.DefaultTopK <= 0 {
		config.DefaultTopK = defaults.DefaultTopK
	}
	if config.MaxTopK <= 0 {
		config.MaxTopK = defaults.MaxTopK
	}
	if config.DefaultRerankPoolSize <= 0 {
		config.DefaultRerankPoolSize = defaults.DefaultRerankPoolSize
	}
	if config.SkipSimilarityCeiling <= 0 {
		config.SkipSimilarityCeiling = defaults.SkipSimilarityCeiling
	}
	if config.SkipPoolLimit <= 0 {
		config.SkipPoolLimit = defaults.SkipPoolLimit
	}
	if config.RRFFilterCeiling <= 0 {
		config.RRFFilterCeiling = defaults.RRFFilterCeiling
	}
	if config.CandidateMultiplier <= 0 {
		config.CandidateMultiplier = defaults.CandidateMultiplier
	}
	if config.DocumentOverfetchFactor <= 0 {
		config.DocumentOverfetchFactor = defaults.DocumentOverfetchFactor
	}

	e := &Engine{
		vector:   vector,
		text:     text,
		embedder: embedder,
		store:    docs,
		config:   config,
		fusion:   newRRFFusion(config.RRFConstant),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs the full pipeline: concurrent retrieval, rank fusion,
// adaptive reranking, threshold filtering, and enrichment. It returns
// a ranked list or an error only when the load-bearing path (embedding
// or vector index) is broken; all other failures degrade.
func (e *Engine) Search(ctx context.Context, query, tenantID string, opts Options) ([]*EnrichedResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return []*EnrichedResult{}, nil
	}
	opts = e.applyDefaults(opts)

	candidateLimit := opts.RerankPoolSize * e.config.CandidateMultiplier

	vectorHits, textHits, err := e.retrieveCandidates(ctx, query, tenantID, candidateLimit)
	if err != nil {
		return nil, err
	}

	fused := e.fusion.Fuse(vectorHits, textHits)
	ranked := e.rankCandidates(ctx, query, fused, opts)
	filtered := e.filterRanked(ranked, opts)

	enriched, err := e.enrichResults(ctx, tenantID, filtered)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.Record(telemetry.QueryEvent{
			TenantID:    tenantID,
			Query:       query,
			ResultCount: len(enriched),
			Latency:     elapsed,
			Timestamp:   time.Now(),
		})
	}
	slog.Debug("search_completed",
		slog.String("tenant_id", tenantID),
		slog.Int("vector_hits", len(vectorHits)),
		slog.Int("text_hits", len(textHits)),
		slog.Int("results", len(enriched)),
		slog.Duration("elapsed", elapsed))

	return enriched, nil
}

// applyDefaults fills in and bounds search options.
func (e *Engine) applyDefaults(opts Options) Options {
	if opts.TopK <= 0 {
		opts.TopK = e.config.DefaultTopK
	}
	if opts.TopK > e.config.MaxTopK {
		opts.TopK = e.config.MaxTopK
	}
	if opts.RerankPoolSize <= 0 {
		opts.RerankPoolSize = e.config.DefaultRerankPoolSize
	}
	return opts
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docsift/docsift/internal/config"
	"github.com/docsift/docsift/internal/embed"
	"github.com/docsift/docsift/internal/index"
	"github.com/docsift/docsift/internal/rerank"
	"github.com/docsift/docsift/internal/search"
	"github.com/docsift/docsift/internal/store"
	"github.com/docsift/docsift/internal/telemetry"
)

// app bundles the wired engine with everything that needs closing.
type app struct {
	engine  *search.Engine
	metrics *telemetry.QueryMetrics
	closers []func() error
}

// Close releases backends in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close_failed", slog.String("error", err.Error()))
		}
	}
}

// newApp wires the retrieval pipeline from configuration: index
// backend, embedding provider, optional reranker, and the engine.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{metrics: telemetry.NewQueryMetrics()}

	vector, text, docs, err := buildBackend(a, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	embedder := buildEmbedder(a, cfg)
	reranker := buildReranker(ctx, a, cfg)

	engineCfg := search.EngineConfig{
		RRFConstant:             cfg.Search.RRFConstant,
		DefaultTopK:             cfg.Search.DefaultTopK,
		MaxTopK:                 cfg.Search.MaxTopK,
		DefaultRerankPoolSize:   cfg.Search.RerankPoolSize,
		SkipSimilarityCeiling:   cfg.Search.SkipSimilarityCeiling,
		SkipPoolLimit:           cfg.Search.SkipPoolLimit,
		RRFFilterCeiling:        cfg.Search.RRFFilterCeiling,
		VectorThreshold:         cfg.Search.VectorThreshold,
		TextThreshold:           cfg.Search.TextThreshold,
		CandidateMultiplier:     cfg.Search.CandidateMultiplier,
		DocumentOverfetchFactor: cfg.Search.DocumentOverfetchFactor,
	}

	opts := []search.EngineOption{search.WithMetrics(a.metrics)}
	if reranker != nil {
		opts = append(opts, search.WithReranker(reranker))
	}

	engine, err := search.NewEngine(vector, text, embedder, docs, engineCfg, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.engine = engine
	return a, nil
}

func buildBackend(a *app, cfg *config.Config) (index.VectorIndex, index.TextIndex, store.DocumentStore, error) {
	switch cfg.Backend.Kind {
	case config.BackendPostgres:
		idx, err := index.NewPostgresIndex(cfg.Backend.PostgresDSN, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres index: %w", err)
		}
		a.closers = append(a.closers, idx.Close)

		// Share the index's connection pool with the document store.
		docs, err := store.NewPostgresDocumentStoreWithDB(idx.DB())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres document store: %w", err)
		}
		return idx, idx.TextAdapter(), docs, nil

	case config.BackendEmbedded:
		dataDir := cfg.Backend.DataDir
		if dataDir == "" {
			dataDir = defaultDataDir()
		}
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create data dir: %w", err)
		}

		vector, err := index.NewHNSWVectorIndex(index.HNSWConfig{
			Dimensions: cfg.Embedding.Dimensions,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create vector index: %w", err)
		}
		vectorPath := filepath.Join(dataDir, "vectors.hnsw")
		if _, statErr := os.Stat(vectorPath); statErr == nil {
			if err := vector.Load(vectorPath); err != nil {
				return nil, nil, nil, fmt.Errorf("load vector index: %w", err)
			}
		}
		a.closers = append(a.closers, vector.Close)

		text, err := index.NewBleveTextIndex(filepath.Join(dataDir, "text.bleve"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open text index: %w", err)
		}
		a.closers = append(a.closers, text.Close)

		docs, err := store.NewSQLiteDocumentStore(filepath.Join(dataDir, "documents.db"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open document store: %w", err)
		}
		a.closers = append(a.closers, docs.Close)
		return vector, text, docs, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend.Kind)
	}
}

// buildEmbedder returns the OpenAI embedder wrapped with retries and a
// query cache, or the deterministic static embedder when no API key is
// configured.
func buildEmbedder(a *app, cfg *config.Config) embed.Embedder {
	apiKey := os.Getenv(cfg.Embedding.APIKeyEnv)
	if apiKey == "" {
		slog.Warn("embedding_api_key_missing_using_static",
			slog.String("env", cfg.Embedding.APIKeyEnv))
		return embed.NewStaticEmbedder(cfg.Embedding.Dimensions)
	}

	inner, err := embed.NewOpenAIEmbedder(embed.OpenAIConfig{
		APIKey:     apiKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		slog.Warn("embedder_init_failed_using_static", slog.String("error", err.Error()))
		return embed.NewStaticEmbedder(cfg.Embedding.Dimensions)
	}
	a.closers = append(a.closers, inner.Close)

	retrying := embed.NewRetryingEmbedder(inner, embed.DefaultRetryConfig())
	return embed.NewCachedEmbedder(retrying, cfg.Embedding.CacheSize)
}

// buildReranker returns the configured reranker or nil when reranking
// is off or the service is unreachable at startup.
func buildReranker(ctx context.Context, a *app, cfg *config.Config) rerank.Reranker {
	if !cfg.Reranker.Enabled {
		return nil
	}

	inner, err := rerank.NewHTTPReranker(ctx, rerank.HTTPConfig{
		Endpoint: cfg.Reranker.Endpoint,
		Model:    cfg.Reranker.Model,
		Timeout:  cfg.Reranker.Timeout,
	})
	if err != nil {
		slog.Warn("reranker_unreachable_continuing_without",
			slog.String("endpoint", cfg.Reranker.Endpoint),
			slog.String("error", err.Error()))
		return nil
	}
	a.closers = append(a.closers, inner.Close)

	if cfg.Reranker.BreakerEnabled {
		return rerank.NewBreakerReranker(inner)
	}
	return inner
}

// defaultDataDir returns ~/.docsift/data, falling back to the temp
// directory when the home directory is unavailable.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docsift", "data")
	}
	return filepath.Join(home, ".docsift", "data")
}

// Package config loads and validates docsift configuration.
//
// Configuration hierarchy (later overrides earlier):
//  1. Hardcoded defaults (NewConfig)
//  2. Config file (docsift.yaml, or path given via --config)
//  3. Environment variables (DOCSIFT_*)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selects where the vector and full-text indexes live.
type Backend string

const (
	// BackendPostgres serves both index primitives and the document store
	// from one Postgres database (pgvector + tsvector).
	BackendPostgres Backend = "postgres"
	// BackendEmbedded uses an in-process HNSW graph and a bleve index with
	// a SQLite document store. Intended for local use and tests.
	BackendEmbedded Backend = "embedded"
)

// Config is the complete docsift configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Backend   BackendConfig   `yaml:"backend" json:"backend"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Reranker  RerankerConfig  `yaml:"reranker" json:"reranker"`
	Chat      ChatConfig      `yaml:"chat" json:"chat"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// BackendConfig configures the index and document-store backend.
type BackendConfig struct {
	// Kind is "postgres" or "embedded".
	Kind Backend `yaml:"kind" json:"kind"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`

	// DataDir holds the embedded backend's index files and SQLite store.
	// Defaults to ~/.docsift/data.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// SearchConfig configures the retrieval pipeline. Every constant the
// ranking heuristics depend on is configurable; the defaults are the
// empirically chosen values, not derived ones.
type SearchConfig struct {
	// RRFConstant is the rank-fusion smoothing parameter k (default: 60).
	// Large enough to flatten rank differences among top results.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// RerankPoolSize is the default number of fused candidates eligible
	// for cross-encoder reranking (default: 8).
	RerankPoolSize int `yaml:"rerank_pool_size" json:"rerank_pool_size"`

	// SkipSimilarityCeiling: reranking is skipped when the top fused
	// candidate's vector similarity is at or above this value and the
	// pool is small (default: 0.85).
	SkipSimilarityCeiling float64 `yaml:"skip_similarity_ceiling" json:"skip_similarity_ceiling"`

	// SkipPoolLimit: pools larger than this always pay for reranking
	// (default: 5).
	SkipPoolLimit int `yaml:"skip_pool_limit" json:"skip_pool_limit"`

	// RRFFilterCeiling caps the caller's relevance threshold when raw RRF
	// scores are the final scores, since RRF values are numerically tiny
	// compared to a 0-1 threshold (default: 0.01).
	RRFFilterCeiling float64 `yaml:"rrf_filter_ceiling" json:"rrf_filter_ceiling"`

	// VectorThreshold is the minimum cosine similarity requested from the
	// vector index (default: 0.3).
	VectorThreshold float64 `yaml:"vector_threshold" json:"vector_threshold"`

	// TextThreshold is the minimum lexical rank score requested from the
	// full-text index (default: 0, index-specific scale).
	TextThreshold float64 `yaml:"text_threshold" json:"text_threshold"`

	// CandidateMultiplier oversizes both index queries relative to the
	// rerank pool so fusion has material to reorder (default: 2).
	CandidateMultiplier int `yaml:"candidate_multiplier" json:"candidate_multiplier"`

	// DocumentOverfetchFactor oversizes the chunk fetch in document
	// discovery mode relative to the desired document count (default: 5).
	DocumentOverfetchFactor int `yaml:"document_overfetch_factor" json:"document_overfetch_factor"`

	// DefaultTopK is the result count when the caller doesn't set one
	// (default: 5). MaxTopK caps caller requests (default: 50).
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k" json:"max_top_k"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// BaseURL is the OpenAI-compatible API endpoint. Empty uses the
	// provider default.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// APIKeyEnv names the environment variable holding the API key
	// (default: OPENAI_API_KEY). The key itself never lives in config.
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`

	// Model is the embedding model (default: text-embedding-3-small).
	Model string `yaml:"model" json:"model"`

	// Dimensions is the pipeline-wide embedding dimension (default: 1536).
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// CacheSize is the query-embedding LRU capacity (default: 1000).
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// Timeout per embedding request (default: 30s).
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RerankerConfig configures the cross-encoder reranking service.
type RerankerConfig struct {
	// Enabled turns the reranking stage on (default: true). Disabled means
	// fused scores are final.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Endpoint is the reranking service URL (default: http://localhost:8787).
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// Model is the cross-encoder model alias (default: reranker-base).
	Model string `yaml:"model" json:"model"`

	// Timeout per rerank request (default: 30s).
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// BreakerEnabled wraps the client in a circuit breaker so a flapping
	// service degrades to fused ranking instead of adding latency.
	BreakerEnabled bool `yaml:"breaker_enabled" json:"breaker_enabled"`
}

// ChatConfig configures answer generation and the response cache.
type ChatConfig struct {
	// Model is the chat completion model (default: gpt-4o-mini).
	Model string `yaml:"model" json:"model"`

	// BaseURL is the OpenAI-compatible API endpoint. Empty uses the
	// provider default.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// APIKeyEnv names the environment variable holding the API key
	// (default: OPENAI_API_KEY).
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`

	// CacheSize bounds the response cache (default: 256 entries).
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// CacheTTL expires cached answers (default: 1h).
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`

	// MaxCacheableTemperature: only requests at or below this temperature
	// are near-deterministic enough to cache (default: 0.2).
	MaxCacheableTemperature float32 `yaml:"max_cacheable_temperature" json:"max_cacheable_temperature"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	FilePath  string `yaml:"file_path" json:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig returns the hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Backend: BackendConfig{
			Kind: BackendEmbedded,
		},
		Search: SearchConfig{
			RRFConstant:             60,
			RerankPoolSize:          8,
			SkipSimilarityCeiling:   0.85,
			SkipPoolLimit:           5,
			RRFFilterCeiling:        0.01,
			VectorThreshold:         0.3,
			TextThreshold:           0,
			CandidateMultiplier:     2,
			DocumentOverfetchFactor: 5,
			DefaultTopK:             5,
			MaxTopK:                 50,
		},
		Embedding: EmbeddingConfig{
			APIKeyEnv:  "OPENAI_API_KEY",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			CacheSize:  1000,
			Timeout:    30 * time.Second,
		},
		Reranker: RerankerConfig{
			Enabled:        true,
			Endpoint:       "http://localhost:8787",
			Model:          "reranker-base",
			Timeout:        30 * time.Second,
			BreakerEnabled: true,
		},
		Chat: ChatConfig{
			Model:                   "gpt-4o-mini",
			APIKeyEnv:               "OPENAI_API_KEY",
			CacheSize:               256,
			CacheTTL:                time.Hour,
			MaxCacheableTemperature: 0.2,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// Load reads configuration from the given path (empty means defaults only),
// then applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies DOCSIFT_* environment overrides. Only the knobs that
// operators actually flip at deploy time get env handles.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOCSIFT_BACKEND"); v != "" {
		c.Backend.Kind = Backend(v)
	}
	if v := os.Getenv("DOCSIFT_POSTGRES_DSN"); v != "" {
		c.Backend.PostgresDSN = v
	}
	if v := os.Getenv("DOCSIFT_DATA_DIR"); v != "" {
		c.Backend.DataDir = v
	}
	if v := os.Getenv("DOCSIFT_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("DOCSIFT_RERANK_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.RerankPoolSize = n
		}
	}
	if v := os.Getenv("DOCSIFT_RERANKER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Reranker.Enabled = b
		}
	}
	if v := os.Getenv("DOCSIFT_RERANKER_ENDPOINT"); v != "" {
		c.Reranker.Endpoint = v
	}
	if v := os.Getenv("DOCSIFT_EMBEDDING_BASE_URL"); v != "" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("DOCSIFT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendPostgres:
		if c.Backend.PostgresDSN == "" {
			return fmt.Errorf("backend.postgres_dsn is required for the postgres backend")
		}
	case BackendEmbedded:
		// DataDir defaults late so tests can leave it empty.
	default:
		return fmt.Errorf("backend.kind must be %q or %q, got %q",
			BackendPostgres, BackendEmbedded, c.Backend.Kind)
	}

	s := &c.Search
	if s.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", s.RRFConstant)
	}
	if s.RerankPoolSize <= 0 {
		return fmt.Errorf("search.rerank_pool_size must be positive, got %d", s.RerankPoolSize)
	}
	if s.SkipSimilarityCeiling < 0 || s.SkipSimilarityCeiling > 1 {
		return fmt.Errorf("search.skip_similarity_ceiling must be in [0,1], got %v", s.SkipSimilarityCeiling)
	}
	if s.SkipPoolLimit < 0 {
		return fmt.Errorf("search.skip_pool_limit must not be negative, got %d", s.SkipPoolLimit)
	}
	if s.VectorThreshold < 0 || s.VectorThreshold > 1 {
		return fmt.Errorf("search.vector_threshold must be in [0,1], got %v", s.VectorThreshold)
	}
	if s.CandidateMultiplier < 1 {
		return fmt.Errorf("search.candidate_multiplier must be at least 1, got %d", s.CandidateMultiplier)
	}
	if s.DocumentOverfetchFactor < 1 {
		return fmt.Errorf("search.document_overfetch_factor must be at least 1, got %d", s.DocumentOverfetchFactor)
	}
	if s.DefaultTopK <= 0 || s.MaxTopK <= 0 || s.DefaultTopK > s.MaxTopK {
		return fmt.Errorf("search.default_top_k (%d) must be positive and not exceed max_top_k (%d)",
			s.DefaultTopK, s.MaxTopK)
	}

	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Chat.MaxCacheableTemperature < 0 {
		return fmt.Errorf("chat.max_cacheable_temperature must not be negative, got %v",
			c.Chat.MaxCacheableTemperature)
	}
	if c.Chat.CacheSize <= 0 {
		return fmt.Errorf("chat.cache_size must be positive, got %d", c.Chat.CacheSize)
	}
	if c.Chat.CacheTTL <= 0 {
		return fmt.Errorf("chat.cache_ttl must be positive, got %v", c.Chat.CacheTTL)
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

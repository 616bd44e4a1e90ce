// Package search implements the hybrid retrieval pipeline: concurrent
// vector and full-text candidate retrieval, Reciprocal Rank Fusion,
// adaptive cross-encoder reranking, and batch metadata enrichment.
package search

import "errors"

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// ScoreScale identifies which stage last wrote a relevance score.
// Scores on different scales must never be compared to each other; the
// scale travels with the score until the final result is assembled.
type ScoreScale string

const (
	// ScaleRRF is the raw fusion score, typically 0.003 to 0.03.
	ScaleRRF ScoreScale = "rrf"

	// ScaleCosine is vector similarity in [0, 1].
	ScaleCosine ScoreScale = "cosine"

	// ScaleReranker is the cross-encoder score in [0, 1].
	ScaleReranker ScoreScale = "reranker"

	// ScaleOrdinal is the synthetic 1/(index+1) score assigned when a
	// rerank call fails mid-flight. Only its ordering is meaningful.
	ScaleOrdinal ScoreScale = "ordinal"
)

// Options controls a single search call.
type Options struct {
	// TopK is the maximum number of results to return.
	TopK int

	// MinRelevanceScore filters results below this threshold. The
	// threshold is interpreted against the scale of the branch that
	// produced the scores; see the engine for the per-branch rules.
	MinRelevanceScore float64

	// RerankPoolSize is how many fused candidates the reranker sees.
	RerankPoolSize int

	// UseReranking enables the cross-encoder pass for this call.
	UseReranking bool
}

// EngineConfig holds tunable pipeline parameters. The skip heuristic
// constants are empirical and deliberately configurable.
type EngineConfig struct {
	// RRFConstant is the k in 1/(k+rank). Default 60.
	RRFConstant int

	// DefaultTopK and MaxTopK bound Options.TopK.
	DefaultTopK int
	MaxTopK     int

	// DefaultRerankPoolSize is used when Options leaves it zero.
	DefaultRerankPoolSize int

	// SkipSimilarityCeiling and SkipPoolLimit gate the reranker: it
	// runs only when topSimilarity < ceiling or pool size > limit.
	SkipSimilarityCeiling float64
	SkipPoolLimit         int

	// RRFFilterCeiling caps the relevance filter when raw RRF scores
	// are returned, since a 0-1 caller threshold would reject
	// everything on the RRF scale.
	RRFFilterCeiling float64

	// VectorThreshold and TextThreshold are passed to the indexes.
	VectorThreshold float64
	TextThreshold   float64

	// CandidateMultiplier oversizes index queries relative to the
	// rerank pool so fusion has material to reorder.
	CandidateMultiplier int

	// DocumentOverfetchFactor oversizes chunk retrieval in document
	// discovery mode to surface enough distinct parents.
	DocumentOverfetchFactor int
}

// DefaultEngineConfig returns the standard pipeline parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		RRFConstant:             60,
		DefaultTopK:             5,
		MaxTopK:                 50,
		DefaultRerankPoolSize:   8,
		SkipSimilarityCeiling:   0.85,
		SkipPoolLimit:           5,
		RRFFilterCeiling:        0.01,
		VectorThreshold:         0.3,
		TextThreshold:           0,
		CandidateMultiplier:     2,
		DocumentOverfetchFactor: 5,
	}
}

// FusedResult is a candidate after rank fusion. Each stage builds new
// slices; earlier stages' output stays valid for logging.
type FusedResult struct {
	ChunkID    string
	DocumentID string
	Content    string
	Position   int
	Page       int
	Metadata   map[string]string

	// Similarity is the raw cosine score when the candidate came from
	// the vector list, or its fusion contribution when it only matched
	// full-text (there is no true cosine value for those).
	Similarity float64

	// RRFScore is the summed 1/(k+rank) contribution.
	RRFScore float64

	// VectorRank and TextRank are the 1-based source ranks, 0 if the
	// candidate was absent from that list.
	VectorRank int
	TextRank   int

	// Rank is the 1-based position after fusion sorting.
	Rank int
}

// rankedResult pairs a fused candidate with the relevance score the
// rerank stage chose for it and the scale that score lives on.
type rankedResult struct {
	fused     *FusedResult
	relevance float64
	scale     ScoreScale
}

// EnrichedResult is the final per-chunk search result. RelevanceScore
// is comparable within one engine pass only; Scale records which
// branch produced it.
type EnrichedResult struct {
	ChunkID    string
	DocumentID string
	Content    string
	Position   int
	Page       int
	Metadata   map[string]string

	// SourceName is the parent document's display name, empty when the
	// document was deleted between indexing and this query.
	SourceName string

	Similarity     float64
	RelevanceScore float64
	Scale          ScoreScale
	Rank           int
}

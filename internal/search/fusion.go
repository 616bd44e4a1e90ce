package search

import (
	"sort"

	"github.com/docsift/docsift/internal/index"
)

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// large enough to flatten rank differences among top results so a
// rank-1 vs rank-2 gap in one list cannot dominate the merge.
const DefaultRRFConstant = 60

// rrfFusion merges vector and full-text candidate lists with
// Reciprocal Rank Fusion.
//
// Score(d) = sum over source lists of 1 / (K + rank_d)
//
// A candidate in both lists gets the sum of both contributions; a
// candidate in one list gets that single contribution. Raw index
// scores are never compared across sources, only rank positions.
type rrfFusion struct {
	K int
}

// newRRFFusion creates a fusion instance, defaulting K to 60.
func newRRFFusion(k int) *rrfFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &rrfFusion{K: k}
}

// fusionEntry tracks a candidate during the merge. seen orders
// candidates by first appearance with the vector list processed first,
// which makes score ties resolve to first-seen-in-vector-list.
type fusionEntry struct {
	result *FusedResult
	seen   int
}

// Fuse merges the two ranked lists into one list sorted descending by
// RRF score, with ranks 1..N assigned after sorting.
func (f *rrfFusion) Fuse(vector []*index.VectorHit, text []*index.TextHit) []*FusedResult {
	if len(vector) == 0 && len(text) == 0 {
		return []*FusedResult{}
	}

	entries := make(map[string]*fusionEntry, len(vector)+len(text))
	order := 0

	for i, hit := range vector {
		rank := i + 1
		e := &fusionEntry{
			result: &FusedResult{
				ChunkID:    hit.ChunkID,
				DocumentID: hit.DocumentID,
				Content:    hit.Content,
				Position:   hit.Position,
				Page:       hit.Page,
				Metadata:   hit.Metadata,
				Similarity: hit.Similarity,
				VectorRank: rank,
				RRFScore:   1.0 / float64(f.K+rank),
			},
			seen: order,
		}
		order++
		entries[hit.ChunkID] = e
	}

	for i, hit := range text {
		rank := i + 1
		contribution := 1.0 / float64(f.K+rank)

		if e, ok := entries[hit.ChunkID]; ok {
			e.result.TextRank = rank
			e.result.RRFScore += contribution
			continue
		}

		// Text-only match: there is no true cosine value, so the
		// fusion contribution stands in for similarity.
		entries[hit.ChunkID] = &fusionEntry{
			result: &FusedResult{
				ChunkID:    hit.ChunkID,
				DocumentID: hit.DocumentID,
				Content:    hit.Content,
				Position:   hit.Position,
				Page:       hit.Page,
				Metadata:   hit.Metadata,
				Similarity: contribution,
				TextRank:   rank,
				RRFScore:   contribution,
			},
			seen: order,
		}
		order++
	}

	sorted := make([]*fusionEntry, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].result.RRFScore != sorted[j].result.RRFScore {
			return sorted[i].result.RRFScore > sorted[j].result.RRFScore
		}
		return sorted[i].seen < sorted[j].seen
	})

	results := make([]*FusedResult, len(sorted))
	for i, e := range sorted {
		e.result.Rank = i + 1
		results[i] = e.result
	}
	return results
}

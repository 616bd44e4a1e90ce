package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// StaticEmbedder produces deterministic embeddings derived from a hash
// of the input text. It needs no network and gives the same text the
// same vector every run, which is what tests and offline smoke runs
// need. The vectors carry no semantic meaning.
type StaticEmbedder struct {
	dimensions int
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a deterministic embedder.
func NewStaticEmbedder(dimensions int) *StaticEmbedder {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &StaticEmbedder{dimensions: dimensions}
}

// Embed derives a unit-length vector from the text hash.
func (s *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dimensions)

	// Stretch the 32-byte digest across the vector by rehashing with a
	// counter until every dimension is filled.
	seed := sha256.Sum256([]byte(text))
	var counter [8]byte
	filled := 0
	for filled < s.dimensions {
		binary.LittleEndian.PutUint64(counter[:], uint64(filled))
		block := sha256.Sum256(append(seed[:], counter[:]...))
		for i := 0; i+4 <= len(block) && filled < s.dimensions; i += 4 {
			bits := binary.LittleEndian.Uint32(block[i : i+4])
			// Map to [-1, 1)
			vec[filled] = float32(int32(bits)) / float32(math.MaxInt32)
			filled++
		}
	}

	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (s *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// Dimensions returns the vector length.
func (s *StaticEmbedder) Dimensions() int {
	return s.dimensions
}

// ModelName identifies the static model.
func (s *StaticEmbedder) ModelName() string {
	return "static-hash"
}

// Close is a no-op.
func (s *StaticEmbedder) Close() error {
	return nil
}

func normalize(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

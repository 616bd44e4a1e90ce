package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts upstream calls.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls int
	batchCalls int
	batchTexts int
	failNext   bool
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.failNext {
		c.failNext = false
		return nil, errors.New("upstream unavailable")
	}
	c.embedCalls++
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	c.batchTexts += len(texts)
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_RepeatHitsCache(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(8)}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "refund policy")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "refund policy")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedEmbedder_BatchOnlySendsMisses(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(8)}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	// Warm one entry
	_, err := cached.Embed(ctx, "alpha")
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 8)
	}

	// Only the two misses went upstream
	assert.Equal(t, 1, inner.batchCalls)
	assert.Equal(t, 2, inner.batchTexts)
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(8), failNext: true}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "alpha")
	require.Error(t, err)

	// Retry succeeds and goes upstream
	vec, err := cached.Embed(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedEmbedder_EvictsOldEntries(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder(8)}
	cached := NewCachedEmbedder(inner, 2)
	ctx := context.Background()

	_, _ = cached.Embed(ctx, "one")
	_, _ = cached.Embed(ctx, "two")
	_, _ = cached.Embed(ctx, "three") // evicts "one"
	_, _ = cached.Embed(ctx, "one")   // upstream again

	assert.Equal(t, 4, inner.embedCalls)
}

func TestStaticEmbedder_Deterministic(t *testing.T) {
	s := NewStaticEmbedder(16)
	ctx := context.Background()

	a1, err := s.Embed(ctx, "hello")
	require.NoError(t, err)
	a2, err := s.Embed(ctx, "hello")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "world")
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
	assert.Len(t, a1, 16)

	// Unit length
	var sum float64
	for _, v := range a1 {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
}

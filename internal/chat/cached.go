package chat

import (
	"context"
	"log/slog"
)

// DefaultMaxCacheableTemperature bounds which requests are memoized.
// Higher-temperature generation is intentionally non-reproducible;
// caching it would silently pin one sample forever.
const DefaultMaxCacheableTemperature float32 = 0.2

// CachedGenerator wraps a Generator with the response cache. Only
// requests at or below the temperature ceiling consult or populate it.
type CachedGenerator struct {
	upstream Generator
	cache    *ResponseCache
	maxTemp  float32
}

var _ Generator = (*CachedGenerator)(nil)

// NewCachedGenerator wraps upstream. maxTemp <= 0 uses the default
// ceiling.
func NewCachedGenerator(upstream Generator, cache *ResponseCache, maxTemp float32) *CachedGenerator {
	if maxTemp <= 0 {
		maxTemp = DefaultMaxCacheableTemperature
	}
	return &CachedGenerator{
		upstream: upstream,
		cache:    cache,
		maxTemp:  maxTemp,
	}
}

// Generate returns a cached answer when the request is deterministic
// enough to memoize, otherwise delegates every call upstream.
func (g *CachedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	cacheable := req.Temperature <= g.maxTemp

	if cacheable {
		if answer, ok := g.cache.Get(req); ok {
			slog.Debug("chat_cache_hit", slog.String("model", req.Model))
			return answer, nil
		}
	}

	answer, err := g.upstream.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	if cacheable {
		g.cache.Put(req, answer)
	}
	return answer, nil
}

func (g *CachedGenerator) Close() error {
	return g.upstream.Close()
}

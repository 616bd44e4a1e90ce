package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultCacheSize bounds the response cache.
	DefaultCacheSize = 256

	// DefaultCacheTTL expires cached answers.
	DefaultCacheTTL = time.Hour
)

type cacheEntry struct {
	answer   string
	storedAt time.Time
}

// ResponseCache memoizes generated answer text keyed by the full
// conversation window, model, and temperature. Entries expire lazily:
// a read past the TTL deletes the entry and reports a miss rather
// than returning a stale answer. A successful read refreshes the
// entry's recency, so eviction at capacity is least-recently-used.
//
// Safe for concurrent use.
type ResponseCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, cacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewResponseCache creates a cache with the given capacity and TTL,
// falling back to defaults for non-positive values.
func NewResponseCache(size int, ttl time.Duration) (*ResponseCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create response cache: %w", err)
	}
	return &ResponseCache{
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// Get returns the cached answer for the request, if present and fresh.
func (c *ResponseCache) Get(req Request) (string, bool) {
	key := cacheKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.cache.Remove(key)
		return "", false
	}
	return entry.answer, true
}

// Put stores the answer for the request.
func (c *ResponseCache) Put(req Request, answer string) {
	key := cacheKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(key, cacheEntry{answer: answer, storedAt: c.now()})
}

// Len returns the current entry count, including not-yet-collected
// expired entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// cacheKey hashes the conversation window together with the model and
// temperature. Separator bytes keep adjacent fields from colliding.
func cacheKey(req Request) string {
	h := sha256.New()
	for _, m := range req.Messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0x00})
		h.Write([]byte(m.Content))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte(req.Model))
	h.Write([]byte{0x00})
	h.Write([]byte(strconv.FormatFloat(float64(req.Temperature), 'g', -1, 32)))
	return hex.EncodeToString(h.Sum(nil))
}

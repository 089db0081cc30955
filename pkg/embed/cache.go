package embed

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// EmbeddingCache wraps an Embedder with a bounded LRU keyed by exact
// text, computing each distinct key at most once concurrently (single-
// flight). This is the concrete component requires: "Implementations
// MUST cache by exact text key using an LRU of bounded size; a cache
// hit and miss must return byte-identical vectors for the same input
// across the session."
type EmbeddingCache struct {
	inner Embedder
	cache *lru.Cache
	group singleflight.Group
}

// NewEmbeddingCache wraps inner with an LRU of the given capacity.
func NewEmbeddingCache(inner Embedder, capacity int) (*EmbeddingCache, error) {
	if capacity <= 0 {
		capacity = 1000
	}
	c, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &EmbeddingCache{inner: inner, cache: c}, nil
}

// Embed returns the cached vector for text if present, otherwise
// computes it via inner, caches it, and returns it. Concurrent callers
// requesting the same text block on a single in-flight computation.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.([]float32), nil
	}

	v, err, _ := c.group.Do(text, func() (any, error) {
		if v, ok := c.cache.Get(text); ok {
			return v.([]float32), nil
		}
		vec, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(text, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbedBatch embeds each text through the cache, preserving order.
func (c *EmbeddingCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimension delegates to the wrapped embedder.
func (c *EmbeddingCache) Dimension() int {
	return c.inner.Dimension()
}

// Len reports the number of distinct texts currently cached.
func (c *EmbeddingCache) Len() int {
	return c.cache.Len()
}

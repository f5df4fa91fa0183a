package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultEmbeddingCacheSize is the default number of embeddings to cache.
const DefaultEmbeddingCacheSize = 1000

// CacheKeyAlg names the cache-key algorithm recorded in LayerMetadataV1,
// matching the one implemented by cacheKey below.
const CacheKeyAlg = "Sha256ProfileJsonV2NullContentUtf8"

// CachedEmbedder wraps an Embedder with LRU caching keyed by the spec's
// own cache_key_alg: sha256(profile JSON bytes + 0x00 + UTF-8 content
// bytes). Keying on the profile (not just the model name) means a cache
// entry can never be served across two incompatible vector spaces.
type CachedEmbedder struct {
	inner       Embedder
	cache       *lru.Cache[string, []float32]
	profileJSON []byte
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with an LRU cache of the given size (0 or
// negative uses DefaultEmbeddingCacheSize).
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	profileJSON, _ := json.Marshal(inner.Profile())
	return &CachedEmbedder{inner: inner, cache: cache, profileJSON: profileJSON}
}

func (c *CachedEmbedder) cacheKey(content string) string {
	h := sha256.New()
	h.Write(c.profileJSON)
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Profile implements Embedder (passthrough to inner).
func (c *CachedEmbedder) Profile() EmbeddingProfile { return c.inner.Profile() }

// Metadata implements Embedder (passthrough to inner).
func (c *CachedEmbedder) Metadata() EmbedderMetadata { return c.inner.Metadata() }

// Embed implements Embedder, serving cached vectors where available and
// only calling through to inner for the remaining inputs.
func (c *CachedEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(inputs))
	missIdx := make([]int, 0, len(inputs))
	missInputs := make([]string, 0, len(inputs))

	for i, s := range inputs {
		key := c.cacheKey(s)
		if vec, ok := c.cache.Get(key); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missInputs = append(missInputs, s)
	}

	if len(missInputs) == 0 {
		return results, nil
	}

	computed, err := c.inner.Embed(ctx, missInputs)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		results[idx] = computed[j]
		c.cache.Add(c.cacheKey(inputs[idx]), computed[j])
	}
	return results, nil
}

// Inner returns the underlying embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }
